package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/dealflow/internal/config"
	"github.com/hpungsan/dealflow/internal/db"
	"github.com/hpungsan/dealflow/internal/logging"
	"github.com/hpungsan/dealflow/internal/mcp"
	"github.com/hpungsan/dealflow/internal/metrics"
	"github.com/hpungsan/dealflow/internal/pipeline"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"extract": true, "ingest": true, "watch": true,
	"score": true, "memo": true, "rank": true,
	"fetch": true, "list": true, "export": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	// --metrics-file is the only global flag
	return strings.HasPrefix(arg, "--"+metricsFileFlag)
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
       _             _  __ _
    __| | ___  __ _ | |/ _| | _____      __
   / _' |/ _ \/ _' || | |_| |/ _ \ \ /\ / /
  | (_| |  __/ (_| || |  _| | (_) \ V  V /
   \__,_|\___|\__,_||_|_| |_|\___/ \_/\_/

  Deal flow extraction and scoring

  Usage: dealflow <command> [options]
         dealflow --help

  MCP server mode requires piped input.`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Help and version need no database
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil, nil)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, config.RepoDirName)

	wd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, wd)
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fatal("%v", err)
	}
	defer func() { _ = logger.Sync() }()

	if unknown := mcp.ValidateDisabledTools(cfg.MCP.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in mcp.disabled_tools", zap.Strings("tools", unknown))
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.MCP.DisabledTypes); len(unknown) > 0 {
		logger.Warn("unknown types in mcp.disabled_types", zap.Strings("types", unknown))
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg.DB)

	p, err := pipeline.New(cfg, pipeline.WithLogger(logger), pipeline.WithMetrics(metrics.New()))
	if err != nil {
		fatal("%v", err)
	}

	if isCLIMode() {
		app := newCLIApp(database, cfg, p)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			database.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'dealflow --help' for usage.\n")
		os.Exit(1)
	}

	logger.Info("starting mcp server", zap.String("version", Version))
	if err := mcp.Run(database, cfg, p, Version); err != nil {
		logger.Error("mcp server stopped", zap.Error(err))
		database.Close()
		os.Exit(1)
	}
}
