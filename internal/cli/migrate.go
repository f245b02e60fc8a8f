package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"stock-parody/manager-go/internal/config"
	"stock-parody/manager-go/internal/utils"
	"stock-parody/manager-go/migrations"
)

// migration is one schema file, named by its base file name.
type migration struct {
	Name string
	SQL  string
}

func runMigrate(ctx context.Context, cfg config.Config, args []string) error {
	flags := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dir := flags.String("dir", defaultMigrationsDir(cfg), "Directory of *.sql migrations (default: the set built into the binary)")
	dryRun := flags.Bool("dry-run", false, "List pending migrations without applying")
	if err := flags.Parse(args); err != nil {
		return err
	}

	action := "up"
	if len(flags.Args()) > 0 {
		action = strings.TrimSpace(flags.Args()[0])
	}
	switch action {
	case "", "up", "status":
	default:
		return fmt.Errorf("unsupported migrate action %q (supported: up, status)", action)
	}

	all, err := loadMigrations(migrationSource(*dir))
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return fmt.Errorf("no .sql migrations found (dir=%q)", *dir)
	}

	pool, err := pgxpool.New(ctx, cfg.DBConnString())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := ensureMigrationsTable(ctx, pool); err != nil {
		return err
	}
	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return err
	}

	if action == "status" {
		printStatus(os.Stdout, all, applied)
		return nil
	}
	pending := pendingMigrations(all, applied)
	if *dryRun {
		printPending(os.Stdout, pending)
		return nil
	}
	for _, m := range pending {
		if err := applyMigration(ctx, pool, m); err != nil {
			return err
		}
	}
	fmt.Printf("Applied %d migration(s)\n", len(pending))
	return nil
}

// defaultMigrationsDir lets MIGRATIONS_DIR point at a checkout; empty means the embedded set.
func defaultMigrationsDir(cfg config.Config) string {
	return os.Getenv("MIGRATIONS_DIR")
}

func migrationSource(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

// loadMigrations reads the top-level *.sql files of fsys sorted by name. Blank files
// are dropped.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := make([]migration, 0, len(names))
	for _, name := range names {
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		sql := strings.TrimSpace(string(body))
		if sql == "" {
			utils.Debug("migrate skip empty", "migration", name)
			continue
		}
		out = append(out, migration{Name: path.Base(name), SQL: sql})
	}
	return out, nil
}

func pendingMigrations(all []migration, applied map[string]bool) []migration {
	var out []migration
	for _, m := range all {
		if !applied[m.Name] {
			out = append(out, m)
		}
	}
	return out
}

func printPending(w io.Writer, pending []migration) {
	for _, m := range pending {
		fmt.Fprintln(w, m.Name)
	}
}

func printStatus(w io.Writer, all []migration, applied map[string]bool) {
	for _, m := range all {
		state := "pending"
		if applied[m.Name] {
			state = "applied"
		}
		fmt.Fprintf(w, "%-8s %s\n", state, m.Name)
	}
}

func ensureMigrationsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func appliedMigrations(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

// applyMigration runs one file and records it in the same transaction.
func applyMigration(ctx context.Context, pool *pgxpool.Pool, m migration) error {
	start := time.Now()
	utils.Info("migrate apply", "migration", m.Name)
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("migration %s failed: %w", m.Name, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename, applied_at) VALUES ($1, NOW())`, m.Name); err != nil {
		return fmt.Errorf("record migration %s: %w", m.Name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	utils.Info("migrate applied", "migration", m.Name, "dur", time.Since(start).Truncate(time.Millisecond).String())
	return nil
}
