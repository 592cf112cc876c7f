// Command migrate applies, inspects and rolls back the recipe schema.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"recipeexchange/internal/config"
	"recipeexchange/internal/database"

	"gorm.io/gorm"
)

type command struct {
	usage string
	run   func(ctx context.Context, env *migrateEnv, args []string) error
}

type migrateEnv struct {
	cfg *config.Config
	db  *gorm.DB
}

var commands = map[string]command{
	"up":     {"up", runUp},
	"auto":   {"auto", runAuto},
	"status": {"status", runStatus},
	"down":   {"down <version>", runDown},
}

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "give up after this long")
	flag.Usage = printUsage
	flag.Parse()

	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		printUsage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err := execute(ctx, cmd, flag.Args()[1:])
	cancel()
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

func printUsage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	fmt.Fprintln(os.Stderr, "usage: migrate [-timeout d] <command>")
	for _, name := range names {
		fmt.Fprintln(os.Stderr, "  "+commands[name].usage)
	}
}

func execute(ctx context.Context, cmd command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	return cmd.run(ctx, &migrateEnv{cfg: cfg, db: db}, args)
}

func migrator(env *migrateEnv) (*database.Migrator, error) {
	migrations := database.GetMigrations()
	if len(migrations) == 0 {
		return nil, errors.New("no embedded migrations")
	}
	return database.NewMigrator(env.db, migrations), nil
}

func runUp(ctx context.Context, env *migrateEnv, _ []string) error {
	m, err := migrator(env)
	if err != nil {
		return err
	}
	n, err := m.Up(ctx)
	if err != nil {
		return err
	}
	log.Printf("applied %d migration(s)", n)
	return nil
}

func runAuto(ctx context.Context, env *migrateEnv, _ []string) error {
	env.cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, env.db, env.cfg); err != nil {
		return err
	}
	log.Println("models automigrated")
	return nil
}

func runStatus(ctx context.Context, env *migrateEnv, _ []string) error {
	status, err := database.GetSchemaStatus(ctx, env.db, env.cfg)
	if err != nil {
		return err
	}

	fmt.Printf("env %s, schema mode %s (sql=%t auto=%t)\n\n",
		status.Environment, status.Mode, status.WillRunSQL, status.WillRunAutoMigrate)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATE")
	for _, m := range database.GetMigrations() {
		state := "pending"
		if slices.Contains(status.AppliedVersions, m.Version) {
			state = "applied"
		}
		fmt.Fprintf(w, "%06d\t%s\t%s\n", m.Version, m.Name, state)
	}
	return w.Flush()
}

func runDown(ctx context.Context, env *migrateEnv, args []string) error {
	if len(args) != 1 {
		return errors.New("down needs exactly one version")
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, env.db, version); err != nil {
		return err
	}
	log.Printf("rolled back %06d", version)
	return nil
}
