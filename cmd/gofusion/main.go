package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/anshuman365/gofusion/internal/auth"
	"github.com/anshuman365/gofusion/internal/config"
	"github.com/anshuman365/gofusion/internal/database"
	"github.com/anshuman365/gofusion/internal/logging"
	"github.com/anshuman365/gofusion/internal/scheduler"
	"github.com/anshuman365/gofusion/internal/web"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	port          int
	bind          string
	dbPath        string
	poolSize      int
	migrationsDir string
	logFilePath   string
	verbosity     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gofusion",
		Short: "GoFusion - pooled SQLite application server",
		Long:  `GoFusion is an application server built around a connection-pooled SQLite store with versioned schema migrations, sessions, and a key-value API.`,
		RunE:  runServe,
	}

	// Flags
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "./gofusion.db", "SQLite database path (or set DB_PATH env var)")
	rootCmd.PersistentFlags().IntVar(&poolSize, "pool-size", database.DefaultPoolSize, "Database connection pool size")
	rootCmd.PersistentFlags().StringVarP(&migrationsDir, "migrations", "m", "./migrations", "Directory of .sql migration files")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port (required, or set PORT env var)")
	rootCmd.Flags().StringVarP(&bind, "bind", "b", "", "IP address to bind to (e.g., 127.0.0.1, 0.0.0.0)")
	rootCmd.Flags().StringVar(&logFilePath, "log-file", "", "Log file path (defaults to gofusion.log)")

	rootCmd.AddCommand(migrateCmd(), rollbackCmd(), statusCmd(), userCmd(), versionCmd())

	// Bootstrap console logging before any settings are loadable
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Check for PORT env var if flag not set
	if port == 0 {
		if envPort := os.Getenv("PORT"); envPort != "" {
			if _, err := fmt.Sscanf(envPort, "%d", &port); err != nil {
				return fmt.Errorf("invalid PORT environment variable %q: %w", envPort, err)
			}
		}
	}
	if port == 0 {
		return fmt.Errorf("--port flag or PORT environment variable is required")
	}
	if bind != "" {
		if ip := net.ParseIP(bind); ip == nil {
			return fmt.Errorf("invalid bind address: %s", bind)
		}
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.InitializeDefaults(ctx); err != nil {
		return fmt.Errorf("failed to initialize default settings: %w", err)
	}

	loader := config.NewLoader(db)
	logging.Apply(ctx, logLevel(ctx, loader), loader, logFilePath)

	if n, err := runMigrations(ctx, db, ""); err != nil {
		return err
	} else if n > 0 {
		log.Info().Int("count", n).Msg("Schema migrations applied on startup")
	}

	authService := auth.NewService(db, loader.Duration(ctx, "session.duration", auth.DefaultSessionDuration))

	maint := scheduler.New(db, loader)
	if err := maint.Start(ctx); err != nil {
		return fmt.Errorf("failed to start maintenance scheduler: %w", err)
	}
	defer maint.Stop()

	server := web.NewServer(db, authService, port, bind)
	return server.Start(ctx)
}

func migrateCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := runMigrations(cmd.Context(), db, target)
			if err != nil {
				return err
			}
			fmt.Printf("Applied %d migration(s)\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "Apply migrations up to and including this version")
	return cmd
}

func rollbackCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recently applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			migrator, err := newMigrator(db)
			if err != nil {
				return err
			}
			n, err := migrator.Rollback(cmd.Context(), steps)
			if err != nil {
				return err
			}
			fmt.Printf("Reverted %d migration(s)\n", n)
			return nil
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "s", 1, "Number of migrations to revert")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			migrator, err := newMigrator(db)
			if err != nil {
				return err
			}
			st, err := migrator.Status(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Current version: %s\n", orNone(st.CurrentVersion))
			fmt.Printf("Applied (%d):\n", st.TotalApplied)
			for _, v := range st.Applied {
				fmt.Printf("  %s\n", v)
			}
			fmt.Printf("Pending (%d):\n", st.TotalPending)
			for _, v := range st.Pending {
				fmt.Printf("  %s\n", v)
			}
			return nil
		},
	}
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var username, email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := auth.NewService(db, 0)
			user, err := svc.CreateUser(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}

			if err := db.RecordAudit(cmd.Context(), database.AuditEntry{
				Action:  "user.create",
				UserID:  user.ID,
				Details: "created via CLI",
			}); err != nil {
				log.Error().Err(err).Msg("Failed to record audit entry")
			}

			fmt.Printf("Created user %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	create.Flags().StringVarP(&username, "username", "u", "", "Username")
	create.Flags().StringVarP(&email, "email", "e", "", "Email address")
	create.Flags().StringVarP(&password, "password", "p", "", "Password")
	create.MarkFlagRequired("username")
	create.MarkFlagRequired("email")
	create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gofusion %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func openDB() (*database.DB, error) {
	// Check for DB_PATH env var if using default
	if dbPath == "./gofusion.db" {
		if envDB := os.Getenv("DB_PATH"); envDB != "" {
			dbPath = envDB
		}
	}

	db, err := database.Open(database.Config{Path: dbPath, PoolSize: poolSize})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func newMigrator(db *database.DB) (*database.Migrator, error) {
	migrations, err := database.LoadDir(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations from %s: %w", migrationsDir, err)
	}
	return database.NewMigrator(db, migrations...)
}

func runMigrations(ctx context.Context, db *database.DB, target string) (int, error) {
	migrator, err := newMigrator(db)
	if err != nil {
		return 0, err
	}
	return migrator.Migrate(ctx, target)
}

func logLevel(ctx context.Context, loader *config.Loader) string {
	switch {
	case verbosity >= 2:
		return "trace"
	case verbosity == 1:
		return "debug"
	default:
		return loader.String(ctx, "log.level", "info")
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
