package app

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noxenys/AI-Knowledge-Agent/internal/cmd/output"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/backup"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/dedupe"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/logging"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/reconcile"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/store"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/upsert"
)

// NewRunCommand creates the scheduler loop command.
func (a *App) NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		GroupID: "core",
		Short:   "Run reconciliation cycles until interrupted",
		Long: `Run starts the scheduler. A cycle runs immediately and then once per
period (24h by default, see "period"). Failed cycles are notified and the
loop continues; SIGINT or SIGTERM stops it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := a.Reconciler()
			if err != nil {
				return err
			}

			err = a.Scheduler().Run(cmd.Context(), func(ctx context.Context) error {
				res, err := rec.RunCycle(ctx)
				if err != nil {
					return err
				}
				logging.Ctx(ctx).Info().
					Str("summary", res.Total().Summary()).
					Dur("duration", res.Duration).
					Msg("Cycle finished")
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// NewOnceCommand creates the single cycle command.
func (a *App) NewOnceCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "once",
		GroupID: "core",
		Short:   "Run a single reconciliation cycle and exit",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := a.Reconciler()
			if err != nil {
				return err
			}

			var res *reconcile.Result
			err = a.Scheduler().RunOnce(cmd.Context(), func(ctx context.Context) error {
				var cerr error
				res, cerr = rec.RunCycle(ctx)
				return cerr
			})
			if err != nil {
				return err
			}
			return output.FormatCycle(cmd.OutOrStdout(), res, a.format())
		},
	}
}

// NewDiscoverCommand creates the discovery command.
func (a *App) NewDiscoverCommand() *cobra.Command {
	var keywords []string

	cmd := &cobra.Command{
		Use:     "discover",
		GroupID: "core",
		Short:   "Import new rules from the rule directory",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(keywords) > 0 {
				a.config.DiscoveryKeywords = keywords
			}
			d, err := a.Discoverer()
			if err != nil {
				return err
			}
			stats, err := d.Discover(cmd.Context())
			if err != nil {
				return err
			}
			return output.FormatStats(cmd.OutOrStdout(), stats, a.format())
		},
	}
	cmd.Flags().StringSliceVarP(&keywords, "keyword", "k", nil, "search keyword (repeatable, default stripe,automation)")
	return cmd
}

// NewSaveCommand creates the single upsert command.
func (a *App) NewSaveCommand() *cobra.Command {
	var (
		title, content, file string
		tag, status, url     string
	)

	cmd := &cobra.Command{
		Use:     "save",
		GroupID: "core",
		Short:   "Create or update one record by title",
		Example: `  knowledge-agent save --title "Stripe Webhooks" --file rules.md --url https://github.com/x/y
  knowledge-agent save --title "Notes" --content "self-managed text" --tag MCP`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return errors.WrapIO("read", file, err)
				}
				content = string(data)
			}

			t, ok := records.ParseTag(tag)
			if !ok {
				return errors.NewValidationError("tag", tag, "must be Skill or MCP")
			}
			p := upsert.Params{
				Title:     title,
				Content:   content,
				Tag:       t,
				Status:    records.ParseStatus(status),
				SourceURL: url,
			}

			engine, err := a.Engine()
			if err != nil {
				return err
			}
			outcome, rec, err := engine.Save(cmd.Context(), p)
			if err != nil {
				return err
			}
			cmd.Printf("%s: %s (%s)\n", outcome, rec.Title, rec.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "record title (required)")
	cmd.Flags().StringVar(&content, "content", "", "record content")
	cmd.Flags().StringVar(&file, "file", "", "read content from file")
	cmd.Flags().StringVar(&tag, "tag", records.DefaultTag.String(), "record tag: Skill or MCP")
	cmd.Flags().StringVar(&status, "status", records.StatusActive.String(), "record status: Active, Broken or Review")
	cmd.Flags().StringVar(&url, "url", "", "source URL (empty for self-managed records)")
	_ = cmd.MarkFlagRequired("title")
	cmd.MarkFlagsMutuallyExclusive("content", "file")

	return cmd
}

// NewListCommand creates the listing command.
func (a *App) NewListCommand() *cobra.Command {
	var status, tag string

	cmd := &cobra.Command{
		Use:     "list",
		GroupID: "core",
		Short:   "List records in the store",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.Store()
			if err != nil {
				return err
			}

			var recs []*records.Record
			err = store.Walk(cmd.Context(), s, a.pause(), func(r *records.Record) error {
				if status != "" && !strings.EqualFold(r.Status.String(), status) {
					return nil
				}
				if tag != "" && !strings.EqualFold(r.Tag.String(), tag) {
					return nil
				}
				recs = append(recs, r)
				return nil
			})
			if err != nil {
				return err
			}
			return output.FormatRecords(cmd.OutOrStdout(), recs, a.format())
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only records with this status")
	cmd.Flags().StringVar(&tag, "tag", "", "only records with this tag")
	return cmd
}

// NewDedupeCommand creates the duplicate resolution command.
func (a *App) NewDedupeCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:     "dedupe",
		GroupID: "management",
		Short:   "Archive duplicate records, keeping the best of each title",
		Long: `Dedupe groups records by exact title. In each group the record with
non-trivial content wins, then the oldest, then the smallest id; every
other record in the group is archived.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.Store()
			if err != nil {
				return err
			}
			report, err := dedupe.New(s,
				dedupe.WithDryRun(dryRun),
				dedupe.WithPageDelay(a.config.PageDelay),
				dedupe.WithSleeper(a.sleeper),
			).Run(cmd.Context())
			if err != nil {
				return err
			}
			return output.FormatDedupe(cmd.OutOrStdout(), report, a.format())
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report duplicates without archiving")
	return cmd
}

// NewBackupCommand creates the snapshot command.
func (a *App) NewBackupCommand() *cobra.Command {
	var (
		dir     string
		formats []string
	)

	cmd := &cobra.Command{
		Use:     "backup",
		GroupID: "management",
		Short:   "Write a snapshot of every record",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := a.Snapshotter(dir, formats...)
			if err != nil {
				return err
			}
			paths, err := snap.Take(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range paths {
				cmd.Println(p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default from config)")
	cmd.Flags().StringSliceVar(&formats, "snapshot-format", nil, "snapshot formats: json, yaml")
	return cmd
}

// NewRestoreCommand creates the command that replays a snapshot through the
// upsert engine.
func (a *App) NewRestoreCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:     "restore",
		GroupID: "management",
		Short:   "Upsert every record of a snapshot file",
		Long: `Restore reads a snapshot written by "backup" and upserts each record by
title. Records already matching the snapshot are skipped, so restoring
twice is harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := backup.Load(file)
			if err != nil {
				return err
			}
			engine, err := a.Engine()
			if err != nil {
				return err
			}

			var stats upsert.Stats
			for _, r := range snap.Records {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				stats.Add(engine.Upsert(cmd.Context(), upsert.Params{
					Title:     r.Title,
					Content:   r.Content,
					Tag:       r.Tag,
					Status:    restoredStatus(r.Status),
					SourceURL: r.SourceURL,
				}))
			}
			return output.FormatStats(cmd.OutOrStdout(), stats, a.format())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "snapshot file (.json or .yaml)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// restoredStatus maps labels that cannot be written back to Active.
func restoredStatus(s records.Status) records.Status {
	if s.Valid() {
		return s
	}
	return records.StatusActive
}

// NewExportCommand creates the export command.
func (a *App) NewExportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:     "export",
		GroupID: "management",
		Short:   "Write all Active records as one markdown document",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.Store()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.FilePermissions)
				if err != nil {
					return errors.WrapIO("create", out, err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			n, err := backup.Export(cmd.Context(), s, a.pause(), w)
			if err != nil {
				return err
			}
			logging.Ctx(cmd.Context()).Info().Int("records", n).Str("file", out).Msg("Export written")
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("knowledge-agent %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
