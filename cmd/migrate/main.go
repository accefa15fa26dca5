// Command migrate applies pending schema migrations and exits. Intended
// as a release-pipeline step run ahead of cmd/controlplane, which also
// runs migrations itself on startup — this binary exists for operators who
// want the migration step decoupled from the server's own boot sequence.
package main

import (
	"database/sql"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hostplane/controlplane/internal/config"
	"github.com/hostplane/controlplane/internal/lib/sl"
	"github.com/hostplane/controlplane/internal/migrations"
)

func main() {
	cfg := config.MustLoad()

	base := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(sl.NewRedactingHandler(base, sl.DefaultBlacklist))

	db, err := sql.Open("pgx", cfg.Postgres.ConnectionString)
	if err != nil {
		logger.Error("failed to open database connection", sl.Err(err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := migrations.Run(db, cfg.Postgres.MigrationsPath); err != nil {
		logger.Error("migration failed", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("migrations applied")
}
