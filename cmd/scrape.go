package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/dawn-archive/internal/archive"
)

func newScrapeCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrapes one archive day and saves it",
		Long: `Scrapes every section for a single date and writes {date}.json into the
data directory. Without --date the anchored current date is used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if date == "" {
				date = appInstance.Today()
			}
			if _, err := archive.ParseDate(date); err != nil {
				return err
			}
			day, err := appInstance.ScrapeDay(cmd.Context(), date)
			if day.Date != "" {
				printSummary(cmd.OutOrStdout(), day)
			}
			if err != nil {
				return fmt.Errorf("scrape %s: %w", date, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to scrape as YYYY-MM-DD")
	return cmd
}

func printSummary(w io.Writer, day archive.DayArchive) {
	_, _ = fmt.Fprintf(w, "%s\n", day.Date)
	counts := day.SectionCounts()
	for _, section := range archive.Sections() {
		_, _ = fmt.Fprintf(w, "  %-12s %d\n", section, counts[section])
	}
	_, _ = fmt.Fprintf(w, "  %-12s %d\n", "total", day.ArticleCount())
}
