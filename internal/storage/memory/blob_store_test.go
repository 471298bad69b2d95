package memory

import (
	"bytes"
	"context"
	"testing"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "archives/2014-10-15.json", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://archives/2014-10-15.json" {
		t.Fatalf("unexpected uri %s", uri)
	}
	payload[0] = 'C'
	stored, ok := store.Get("archives/2014-10-15.json")
	if !ok || string(stored) != "content" {
		t.Fatalf("expected stored copy to be immutable, got %q", stored)
	}
	stored[0] = 'X'
	again, _ := store.Get("archives/2014-10-15.json")
	if string(again) != "content" {
		t.Fatalf("Get() must return a copy, got %q", again)
	}
}

func TestBlobStoreRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := NewBlobStore().PutObject(context.Background(), "", "", bytes.NewReader(nil)); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestBlobStorePathsSorted(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	for _, p := range []string{"b.json", "a.json"} {
		if _, err := store.PutObject(context.Background(), p, "", bytes.NewReader([]byte("x"))); err != nil {
			t.Fatalf("PutObject() error = %v", err)
		}
	}
	got := store.Paths()
	if len(got) != 2 || got[0] != "a.json" || got[1] != "b.json" {
		t.Fatalf("unexpected paths %v", got)
	}
}
