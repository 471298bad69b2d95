package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dawn-archive/internal/archive"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New(0, nil)
	id1, err := pub.Publish(context.Background(), "archive.day", map[string]string{"date": "2014-10-15"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "archive.day", "payload")
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "archive.day", msgs[0].Topic)

	msgs[0].Topic = "modified"
	require.Equal(t, "archive.day", pub.Messages()[0].Topic, "Messages() must return a copy")
}

func TestPublisherKeepsOnlyLimit(t *testing.T) {
	t.Parallel()

	pub := New(2, nil)
	for _, date := range []string{"2014-10-13", "2014-10-14", "2014-10-15"} {
		_, err := pub.Publish(context.Background(), "archive.day", archive.ScrapeEvent{Date: date})
		require.NoError(t, err)
	}
	_, err := pub.Publish(context.Background(), "other", "not an event")
	require.NoError(t, err)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "memory-4", msgs[1].ID)

	events := pub.Events()
	require.Len(t, events, 1)
	require.Equal(t, "2014-10-15", events[0].Date)
}

func TestEventsNewestFirst(t *testing.T) {
	t.Parallel()

	pub := New(0, nil)
	for _, date := range []string{"2014-10-13", "2014-10-14"} {
		_, err := pub.Publish(context.Background(), "archive.day", archive.ScrapeEvent{Date: date})
		require.NoError(t, err)
	}
	events := pub.Events()
	require.Equal(t, "2014-10-14", events[0].Date)
	require.Equal(t, "2014-10-13", events[1].Date)
}

func TestPublisherForwardsToNext(t *testing.T) {
	t.Parallel()

	next := New(0, nil)
	pub := New(0, next)
	id, err := pub.Publish(context.Background(), "archive.day", "x")
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)
	require.Len(t, next.Messages(), 1)

	failing := New(0, failingPublisher{})
	_, err = failing.Publish(context.Background(), "archive.day", "y")
	require.Error(t, err)
	require.Len(t, failing.Messages(), 1, "message is recorded even when forwarding fails")
}

func TestPublisherHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(0, nil).Publish(ctx, "archive.day", "x")
	require.ErrorIs(t, err, context.Canceled)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) (string, error) {
	return "", errors.New("topic unavailable")
}
