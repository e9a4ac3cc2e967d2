package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/width"

	"IDCIntel/internal/app"
	"IDCIntel/internal/domain"
	"IDCIntel/internal/usecase"
)

const listTitleColumns = 48

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch all sources once and store relevant articles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		stats, err := a.Collect(cmd.Context())
		printStats(os.Stdout, stats)
		return err
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compose the weekly report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		var res usecase.ReportResult
		if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
			res, err = a.Weekly(cmd.Context(), time.Now())
		} else {
			res, err = a.Report(cmd.Context())
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "articles: %d\nmarkdown: %s\nhtml:     %s\nnotified: %t\n",
			res.Report.Total, res.Artifacts.Markdown, res.Artifacts.HTML, res.Notified)
		return nil
	},
}

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Recompute scores and categories for the report window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		n, err := a.Rescore(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "rescored: %d\n", n)
		return nil
	},
}

var verifyLinksCmd = &cobra.Command{
	Use:   "verify-links",
	Short: "Check that article urls in the report window still resolve",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		s, err := a.VerifyLinks(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "checked: %d valid: %d invalid: %d unreachable: %d\n",
			s.Checked, s.Valid, s.Invalid, s.Unreachable)
		return nil
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate missing summaries for the report window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		s, err := a.FillSummaries(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "attempted: %d filled: %d failed: %d\n", s.Attempted, s.Filled, s.Failed)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored article",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return eris.New("refusing to clear the store without --yes")
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		n, err := a.Count(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "deleted: %d\n", n)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored articles, best first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		priority, _ := cmd.Flags().GetString("priority")
		category, _ := cmd.Flags().GetString("category")
		days, _ := cmd.Flags().GetInt("days")

		articles, err := a.List(cmd.Context(), app.ListFilter{
			Priority: domain.Priority(priority),
			Category: domain.Category(category),
			Days:     days,
		})
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			fmt.Fprintln(os.Stderr, "No articles found.")
			return nil
		}
		formatArticles(os.Stdout, articles)
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run collection and reporting on their cron schedules until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		return a.Schedule(cmd.Context())
	},
}

func init() {
	reportCmd.Flags().Bool("refresh", false, "rescore, fill summaries and verify links first")
	clearCmd.Flags().Bool("yes", false, "confirm deletion")
	listCmd.Flags().String("priority", "", "only this priority (高, 中, 低)")
	listCmd.Flags().String("category", "", "only this category label")
	listCmd.Flags().Int("days", 0, "window in days (default report.days)")

	rootCmd.AddCommand(collectCmd, reportCmd, rescoreCmd, verifyLinksCmd,
		summarizeCmd, clearCmd, listCmd, scheduleCmd)
}

func printStats(w io.Writer, s usecase.BatchStats) {
	fmt.Fprintf(w, "run %s\n", s.RunID)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range []struct {
		name string
		n    int
	}{
		{"fetched", s.Fetched},
		{"malformed", s.Malformed},
		{"quick_filtered", s.QuickFiltered},
		{"gate_rejected", s.GateRejected},
		{"degraded", s.Degraded},
		{"stored", s.Stored},
		{"duplicates", s.Duplicates},
		{"errored", s.Errored},
		{"sources_failed", s.SourcesFailed},
	} {
		fmt.Fprintf(tw, "%s\t%d\n", row.name, row.n)
	}
	fmt.Fprintf(tw, "avg_llm_total\t%.1f\n", s.AvgLLMTotal)
	fmt.Fprintf(tw, "avg_llm_relevance\t%.1f\n", s.AvgLLMRelevance)
	_ = tw.Flush()
}

func formatArticles(w io.Writer, articles []domain.ScoredArticle) {
	for _, a := range articles {
		fmt.Fprintf(w, "%5d  %3d %s  %s  %s  %s\n",
			a.ID, a.Scores.Total, a.Scores.Priority,
			a.PublishDate.Format(domain.DateLayout),
			padColumns(a.Title, listTitleColumns),
			a.Categories.String())
	}
}

// padColumns fits s into n terminal columns, counting East Asian wide runes twice.
func padColumns(s string, n int) string {
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := runeColumns(r)
		if used+w > n {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + strings.Repeat(" ", n-used)
}

func runeColumns(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}
