// Command migrate manages the storefront schema with golang-migrate.
//
//	migrate up
//	migrate step -1
//	migrate create add_order_notes "Free text notes on orders"
//
// Database settings come from config.toml or SHOP_DATABASE_* variables.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

// env is what a command runs against. m is nil for file-only commands.
type env struct {
	log     *zap.Logger
	dir     string
	m       *migration.Migrator
	confirm bool
}

type command struct {
	usage   string
	help    string
	minArgs int
	offline bool
	run     func(e *env, args []string) error
}

var commands = map[string]command{
	"up": {
		help: "Apply all pending migrations",
		run:  func(e *env, _ []string) error { return e.m.Up() },
	},
	"down": {
		help: "Roll back all migrations",
		run:  func(e *env, _ []string) error { return e.m.Down() },
	},
	"step": {
		usage: "<n>", help: "Apply n migrations, negative rolls back", minArgs: 1,
		run: func(e *env, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			return e.m.Steps(n)
		},
	},
	"goto": {
		usage: "<version>", help: "Migrate up or down to version", minArgs: 1,
		run: func(e *env, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return e.m.GoTo(uint(v))
		},
	},
	"version": {
		help: "Show the applied version",
		run: func(e *env, _ []string) error {
			st, err := e.m.Status()
			if err != nil {
				return err
			}
			if !st.Applied {
				e.log.Info("No migrations applied")
				return nil
			}
			e.log.Info("Current migration version", zap.Uint("version", st.Version), zap.Bool("dirty", st.Dirty))
			return nil
		},
	},
	"force": {
		usage: "<version>", help: "Record version as applied and clear the dirty flag", minArgs: 1,
		run: func(e *env, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return e.m.Force(v)
		},
	},
	"drop": {
		help: "Drop every table (requires -confirm)",
		run: func(e *env, _ []string) error {
			if !e.confirm {
				return errors.New("drop removes every table, re-run as 'migrate -confirm drop'")
			}
			return e.m.Drop()
		},
	},
	"create": {
		usage: "<name> [desc]", help: "Write the next up/down file pair", minArgs: 1, offline: true,
		run: func(e *env, args []string) error {
			desc := ""
			if len(args) > 1 {
				desc = args[1]
			}
			mf, err := migration.CreateMigration(e.dir, args[0], desc)
			if err != nil {
				return err
			}
			e.log.Info("Migration created",
				zap.Uint64("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	},
	"list": {
		help: "List migration files", offline: true,
		run: func(e *env, _ []string) error {
			files, err := migration.ListMigrations(e.dir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				e.log.Info("No migrations found")
			}
			for _, f := range files {
				fmt.Println("  -", f.BaseName())
			}
			return nil
		},
	},
}

func main() {
	var (
		dir      string
		logLevel string
		confirm  bool
	)
	flag.StringVar(&dir, "path", "", "Migrations directory (default: ./migrations)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&confirm, "confirm", false, "Confirm destructive commands")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	name, args := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok || len(args) < cmd.minArgs {
		usage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	if err := execute(log, name, cmd, args, dir, confirm); err != nil {
		log.Fatal("Migration command failed", zap.String("command", name), zap.Error(err))
	}
}

func execute(log *zap.Logger, name string, cmd command, args []string, dir string, confirm bool) error {
	dir, err := resolveMigrationsPath(dir)
	if err != nil {
		return fmt.Errorf("resolve migrations path: %w", err)
	}
	log.Info("Migration CLI started", zap.String("command", name), zap.String("migrations_path", dir))

	e := &env{log: log, dir: dir, confirm: confirm}
	if cmd.offline {
		return cmd.run(e, args)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if e.m, err = migration.New(db, dir, log); err != nil {
		return err
	}
	defer func() {
		if err := e.m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return cmd.run(e, args)
}

// resolveMigrationsPath prefers an explicit path, then ./migrations, then
// the migrations directory two levels above the executable.
func resolveMigrationsPath(path string) (string, error) {
	if path != "" {
		return filepath.Abs(path)
	}
	if _, err := os.Stat(defaultMigrationsPath); err != nil {
		if exe, err := os.Executable(); err == nil {
			candidate := filepath.Join(filepath.Dir(exe), "..", "..", defaultMigrationsPath)
			if _, err := os.Stat(candidate); err == nil {
				return filepath.Abs(candidate)
			}
		}
	}
	return filepath.Abs(defaultMigrationsPath)
}

func usage() {
	names := []string{"up", "down", "step", "goto", "version", "force", "drop", "create", "list"}
	var b strings.Builder
	b.WriteString("Storefront schema migrations\n\nUsage:\n  migrate [flags] <command> [arguments]\n\nCommands:\n")
	for _, n := range names {
		c := commands[n]
		fmt.Fprintf(&b, "  %-22s %s\n", strings.TrimSpace(n+" "+c.usage), c.help)
	}
	b.WriteString("\nFlags:\n")
	fmt.Fprint(flag.CommandLine.Output(), b.String())
	flag.PrintDefaults()
}
