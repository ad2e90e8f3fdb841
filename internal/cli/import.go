package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadimport/internal/config"
	"github.com/JonMunkholm/leadimport/internal/core"
)

// errSiteRequired is returned when a real import names no site.
var errSiteRequired = errors.New("--site is required unless --dry-run is set")

// storeOpener connects the import command to persistence. Tests replace it.
type storeOpener func(ctx context.Context) (core.BulkCreator, func(), error)

func newImportCmd() *cobra.Command {
	return newImportCmdWith(openLeadStore)
}

func newImportCmdWith(open storeOpener) *cobra.Command {
	var (
		opts    fileOptions
		siteID  string
		dryRun  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Validate a file and import its leads",
		Long:  "Import runs the whole workflow: map, validate, transform and bulk-create. With --dry-run the transformed records are printed as JSON instead.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if siteID == "" && !dryRun {
				return errSiteRequired
			}

			sess, err := opts.loadSession(args[0])
			if err != nil {
				return err
			}

			if err := sess.Next(); err != nil {
				fmt.Fprint(cmd.OutOrStdout(), renderErrors(sess.RowCount(), sess.Errors()))
				return err
			}
			if err := sess.Next(); err != nil {
				return err
			}

			if dryRun {
				return writeJSON(cmd, sess.Preview(0))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			creator, closeStore, err := open(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx = core.ContextWithFileName(ctx, sess.FileName)
			start := time.Now()
			res, err := sess.Import(ctx, creator, siteID)
			if err != nil {
				return err
			}

			slog.Info("import completed", "site", siteID, "count", res.Count, "duration_ms", time.Since(start).Milliseconds())
			fmt.Fprintln(cmd.OutOrStdout(), passStyle.Render(fmt.Sprintf("✓ imported %d leads into %s", res.Count, siteID)))
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&siteID, "site", "", "Site the leads belong to")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print transformed records instead of importing")
	cmd.Flags().DurationVar(&timeout, "timeout", core.DefaultImportTimeout, "Maximum duration of the import")
	return cmd
}

// openLeadStore connects to DATABASE_URL and prepares the schema.
func openLeadStore(ctx context.Context) (core.BulkCreator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	store := core.NewLeadStore(pool, cfg.Import.BatchSize)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}
