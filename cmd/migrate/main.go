package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"salonhub.io/internal/migrate"
	"salonhub.io/migrations"
)

type options struct {
	dsn        string
	migrations string
	seeds      string
	timeout    time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply salonhub schema migrations and seeds",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN (defaults to DATABASE_URL)")
	root.PersistentFlags().StringVar(&opts.migrations, "migrations", "", "directory of *.up.sql/*.down.sql files (defaults to the embedded set)")
	root.PersistentFlags().StringVar(&opts.seeds, "seeds", "", "directory of *.sql seed files (defaults to the embedded set)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall deadline")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: withManager(opts, func(ctx context.Context, cmd *cobra.Command, m *migrate.Manager) error {
				applied, err := m.Up(ctx)
				printList(cmd, "applied", applied)
				return err
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: withManager(opts, func(ctx context.Context, cmd *cobra.Command, m *migrate.Manager) error {
				name, err := m.Down(ctx)
				if errors.Is(err, migrate.ErrNothingApplied) {
					cmd.Println("nothing to roll back")
					return nil
				}
				if err != nil {
					return err
				}
				cmd.Printf("rolled back %s\n", name)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Apply pending seed files",
			RunE: withManager(opts, func(ctx context.Context, cmd *cobra.Command, m *migrate.Manager) error {
				applied, err := m.Seed(ctx)
				printList(cmd, "seeded", applied)
				return err
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied migrations",
			RunE: withManager(opts, func(ctx context.Context, cmd *cobra.Command, m *migrate.Manager) error {
				history, err := m.Status(ctx)
				if err != nil {
					return err
				}
				for _, item := range history {
					cmd.Println(item)
				}
				return nil
			}),
		},
	)
	return root
}

type managerFunc func(ctx context.Context, cmd *cobra.Command, m *migrate.Manager) error

func withManager(opts *options, fn managerFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if opts.dsn == "" {
			return errors.New("missing DSN: provide --dsn or DATABASE_URL")
		}
		migFS, seedFS := sourceFS(opts)

		ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
		defer cancel()

		db, err := sql.Open("pgx", opts.dsn)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		if err := fn(ctx, cmd, migrate.NewManager(db, migFS, seedFS)); err != nil {
			return fmt.Errorf("migrate %s: %w", cmd.Name(), err)
		}
		return nil
	}
}

func sourceFS(opts *options) (fs.FS, fs.FS) {
	var migFS fs.FS = migrations.SQL
	var seedFS fs.FS = migrations.Seeds
	if opts.migrations != "" {
		migFS = os.DirFS(opts.migrations)
	}
	if opts.seeds != "" {
		seedFS = os.DirFS(opts.seeds)
	}
	return migFS, seedFS
}

func printList(cmd *cobra.Command, verb string, names []string) {
	if len(names) == 0 {
		cmd.Printf("%s: nothing pending\n", verb)
		return
	}
	for _, n := range names {
		cmd.Printf("%s %s\n", verb, n)
	}
}
