package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shineum/email-json/internal/output"
	"github.com/shineum/email-json/internal/resolver"
)

// Exit codes of the resolve command.
const (
	exitFound    = 0
	exitFatal    = 1
	exitNotFound = 2
)

// fileResolver resolves the email stored at path. *resolver.Resolver
// implements it.
type fileResolver interface {
	ResolveFile(ctx context.Context, path string) (resolver.Result, error)
}

func newResolveCmd(configPath *string) *cobra.Command {
	var (
		concurrency int
		compact     bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <path>...",
		Short: "Resolve the JSON payload of one or more email files",
		Long: "Resolve reads each email file and prints the JSON it carries or links to.\n" +
			"Exits 0 when every file yields JSON, 2 when any file yields none, and 1 when\n" +
			"any file cannot be read or decoded.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := setupLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

			r, err := newResolver(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}

			printer := output.NewWithWriter(cmd.OutOrStdout(), compact)
			if code := resolveAll(cmd.Context(), r, printer, args, concurrency, logger); code != exitFound {
				return &exitError{code: code}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "number of emails resolved in parallel")
	cmd.Flags().BoolVar(&compact, "compact", false, "print JSON on a single line")
	return cmd
}

// resolveAll resolves paths with at most concurrency in flight, prints the
// results in argument order and returns the exit code.
func resolveAll(ctx context.Context, r fileResolver, printer *output.Printer, paths []string, concurrency int, logger *slog.Logger) int {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]resolver.Result, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, path := range paths {
		g.Go(func() error {
			results[i], errs[i] = r.ResolveFile(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	code := exitFound
	for i, path := range paths {
		if err := printer.Print(path, results[i], errs[i]); err != nil {
			logger.Error("failed to write result", "path", path, "error", err)
			return exitFatal
		}
		switch {
		case errs[i] != nil:
			code = exitFatal
		case !results[i].Found() && code == exitFound:
			code = exitNotFound
		}
	}
	return code
}
