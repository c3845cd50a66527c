package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/deepfake-detector/internal/client"
	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
)

type options struct {
	apiBase     string
	session     string
	apiKey      string
	concurrency int
	limit       int
	output      string
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "detectctl",
		Short:         "Analyze media for deepfakes through the detector API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.apiBase, "api-base", envOr("API_BASE", client.DefaultBaseURL), "detector API base URL")
	root.PersistentFlags().StringVar(&opts.session, "session", envOr("DETECTOR_SESSION", "default"), "history session")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv("DETECTOR_API_KEY"), "API key, if the server requires one")

	newClient := func() *client.Client {
		c := client.New(opts.apiBase, opts.session)
		c.APIKey = opts.apiKey
		return c
	}

	analyze := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Upload files and print their verdicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), newClient(), args, opts.concurrency)
		},
	}
	analyze.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 4, "parallel uploads")

	history := &cobra.Command{
		Use:   "history",
		Short: "List recent analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := newClient().History(cmd.Context(), opts.limit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), list)
			return nil
		},
	}
	history.Flags().IntVarP(&opts.limit, "limit", "n", 0, "max entries (server default when 0)")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Show prediction counts for the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newClient().Summary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total: %d\nreal: %d\nfake: %d\ndeepfake: %d\nunknown: %d\naverage confidence: %d%%\n",
				s.Total, s.Real, s.Fake, s.Deepfake, s.Unknown, domain.Percent(s.AverageConfidence))
			return nil
		},
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Download the session history as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			if opts.output == "" || opts.output == "-" {
				return c.ExportCSV(cmd.Context(), cmd.OutOrStdout())
			}
			return exportToFile(opts.output, func(w io.Writer) error {
				return c.ExportCSV(cmd.Context(), w)
			})
		},
	}
	export.Flags().StringVarP(&opts.output, "output", "o", "", "write CSV to file instead of stdout")

	report := &cobra.Command{
		Use:   "report ID",
		Short: "Print the text report of one analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().Report(cmd.Context(), args[0], cmd.OutOrStdout())
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the session history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
			return nil
		},
	}

	root.AddCommand(analyze, history, summary, export, report, clearCmd)
	return root
}

// exportToFile writes through fn into path. A failed export leaves no file behind.
func exportToFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

type analyzer interface {
	AnalyzeFile(ctx context.Context, path string) (*domain.Record, error)
}

// runAnalyze uploads files concurrently and prints results in argument order.
func runAnalyze(ctx context.Context, out io.Writer, c analyzer, paths []string, concurrency int) error {
	if len(paths) == 0 {
		return domain.ErrNoFile
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]string, len(paths))
	var mu sync.Mutex
	var failed int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, p := range paths {
		g.Go(func() error {
			rec, err := c.AnalyzeFile(gctx, p)
			if err != nil {
				// satu file gagal, yang lain tetap jalan
				results[i] = fmt.Sprintf("%s: error: %v", p, err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			results[i] = fmt.Sprintf("%s: %s (%d%%)", rec.File, rec.Prediction, rec.Percent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, line := range results {
		fmt.Fprintln(out, line)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

func printHistory(out io.Writer, list []*domain.Record) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tPREDICTION\tCONFIDENCE\tTIME")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\n", r.ID, r.File, r.Prediction, r.Percent, r.Time)
	}
	tw.Flush()
}
