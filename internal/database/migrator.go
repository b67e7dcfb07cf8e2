// Package database provides helpers for managing database migrations.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/Proton-105/onramp/pkg/config"
	"github.com/Proton-105/onramp/pkg/logger"
)

//go:embed migrations/*.up.sql
var embedded embed.FS

// Migrator applies plain .sql file migrations in lexical order.
// Only .up.sql is supported; statements are expected to be idempotent.
type Migrator struct {
	db  *sql.DB
	log *slog.Logger
}

// NewMigrator constructs a Migrator that logs through the provided logger instance.
func NewMigrator(db *sql.DB, log *slog.Logger) *Migrator {
	return &Migrator{
		db:  db,
		log: log,
	}
}

func (m *Migrator) baseLogger() *slog.Logger {
	if m.log != nil {
		return m.log
	}

	cfg := config.Config{
		AppEnv: "migrator",
		Logger: config.LoggerConfig{Level: "info", Format: "text"},
		Sentry: config.SentryConfig{Enabled: false},
	}

	l := logger.New(cfg)
	m.log = l
	return l
}

// Apply runs the migrations bundled with the binary.
func (m *Migrator) Apply(ctx context.Context) error {
	return m.ApplyFS(ctx, embedded, "migrations")
}

// ApplyDir runs the migrations found in dir on disk.
func (m *Migrator) ApplyDir(ctx context.Context, dir string) error {
	return m.ApplyFS(ctx, os.DirFS(dir), ".")
}

// ApplyFS scans root in fsys, finds *.up.sql, sorts them, and executes sequentially.
func (m *Migrator) ApplyFS(ctx context.Context, fsys fs.FS, root string) error {
	names, err := ListMigrations(fsys, root)
	if err != nil {
		return fmt.Errorf("read migrations dir %q: %w", root, err)
	}

	baseLog := m.baseLogger().With(slog.String("dir", root))

	if len(names) == 0 {
		baseLog.Info("no .up.sql migrations found")
		return nil
	}

	for _, name := range names {
		if err := m.applyFile(ctx, baseLog, fsys, path.Join(root, name)); err != nil {
			return err
		}
	}

	return nil
}

func (m *Migrator) applyFile(ctx context.Context, baseLog *slog.Logger, fsys fs.FS, file string) error {
	scopedLog := baseLog.With(slog.String("file", path.Base(file)))

	scopedLog.Info("applying migration")

	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return fmt.Errorf("read migration %q: %w", file, err)
	}

	statement := strings.TrimSpace(string(data))
	if len(statement) == 0 {
		scopedLog.Warn("migration is empty, skipping")
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction for migration %q: %w", file, err)
	}

	if _, execErr := tx.ExecContext(ctx, statement); execErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			scopedLog.Error("rollback error", "error", rbErr)
		}
		return fmt.Errorf("execute migration %q: %w", file, execErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			scopedLog.Error("rollback error after commit failure", "error", rbErr)
		}
		return fmt.Errorf("commit migration %q: %w", file, commitErr)
	}

	return nil
}

func isUpMigration(name string) bool {
	return strings.HasSuffix(name, ".up.sql")
}

// ListMigrations returns all .up.sql files under root in lexical order.
func ListMigrations(fsys fs.FS, root string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isUpMigration(e.Name()) {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	return names, nil
}
