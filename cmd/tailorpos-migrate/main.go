package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/darzisoft/tailorpos-migrator/config"
	"github.com/darzisoft/tailorpos-migrator/migrate"
	"github.com/sirupsen/logrus"
)

// tailorpos-migrate maintains the schema and denormalized data of the POS
// database. It is an offline tool: quiesce application writers before
// running it against production.
//
// Subcommands:
//
//	migrate            apply pending schema/data migrations
//	repair-sequences   align identity generators to MAX(id)+1
//	backfill-tenants   create missing per-tenant rows with documented defaults
//	reconcile-loyalty  rebuild loyalty aggregates from the ledgers
//	all                run every stage in order
//
// Exit codes: 0 success, 2 partial (skipped-blocked work remains), 3 failure,
// 4 configuration error.
func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 4
	}
	subcommand := args[0]
	stages, ok := migrate.StagesFor(subcommand)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", subcommand)
		usage()
		return 4
	}

	fs := flag.NewFlagSet(subcommand, flag.ContinueOnError)
	database := fs.String("database", "default", "Database alias; resolves <ALIAS>_DB_* env vars (default alias reads DB_*)")
	actor := fs.String("actor", "", "Operator recorded in the migration ledger (defaults to $USER)")
	dryRun := fs.Bool("dry-run", false, "Log planned SQL and roll back every stage transaction")
	yes := fs.Bool("yes", false, "Skip the interactive confirmation")
	jsonOut := fs.Bool("json", false, "Emit the run report as JSON on stdout")
	verbose := fs.Bool("verbose", false, "Debug logging plus SQL echo")
	timeoutSec := fs.Int("query-timeout", 30, "Per-query deadline in seconds")
	if err := fs.Parse(args[1:]); err != nil {
		return 4
	}

	logger := config.GetLogger()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		os.Setenv("SQL_ECHO", "true")
	}

	cfg, err := config.LoadDBConfig(*database)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		if errors.Is(err, config.ErrConfig) {
			return 4
		}
		return 3
	}

	if !*yes && !*dryRun {
		target := cfg.Name
		if cfg.Driver == config.DriverSQLite {
			target = cfg.Path
		}
		fmt.Fprintf(os.Stderr, "About to run %q against %s (%s). Continue? [y/N] ", subcommand, target, cfg.Driver)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Fprintln(os.Stderr, "aborted")
			return 4
		}
	}

	if _, err := config.ConnectDatabaseWithRetry(cfg, 5); err != nil {
		config.LogError(logger, "main", "run", "connect", cfg.Driver, err)
		return 3
	}
	db := config.GetDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := migrate.NewPipeline(db, logger, migrate.Options{
		Database:     *database,
		Actor:        *actor,
		DryRun:       *dryRun,
		QueryTimeout: time.Duration(*timeoutSec) * time.Second,
	})
	if err != nil {
		config.LogError(logger, "main", "run", "pipeline", nil, err)
		return 3
	}

	report := pipeline.Run(ctx, stages)

	if *jsonOut {
		if err := report.WriteJSON(os.Stdout); err != nil {
			config.LogError(logger, "main", "run", "report", nil, err)
			return 3
		}
	} else {
		report.Log(logger)
	}
	return report.ExitCode()
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: tailorpos-migrate <subcommand> [flags]

subcommands:
  migrate            apply pending schema/data migrations
  repair-sequences   align identity generators to MAX(id)+1
  backfill-tenants   create missing per-tenant rows
  reconcile-loyalty  rebuild loyalty aggregates from the ledgers
  all                run every stage in order

flags: --database <alias> --actor <name> --dry-run --yes --json --verbose --query-timeout <s>`)
}
