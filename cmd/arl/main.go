package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sambeau/arl/config"
	"github.com/sambeau/arl/pkg/arl/logging"
)

// Version is set at build time via -ldflags
var Version = "0.1.0-dev"

// errFailed means a diagnostic has already been printed; only the exit
// status remains to be set.
var errFailed = errors.New("failed")

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// env carries what every subcommand needs
type env struct {
	cfg    *config.Config
	log    *logging.Logger
	json   bool
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("arl", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		configPath  = flags.String("config", "", "Path to config file")
		verbose     = flags.Bool("v", false, "Verbose logging")
		jsonOut     = flags.Bool("json", false, "Write JSON output")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showHelp {
		printUsage(stdout)
		return nil
	}

	if *showVersion {
		fmt.Fprintf(stdout, "arl version %s\n", Version)
		return nil
	}

	rest := flags.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return errFailed
	}

	cfg, _, err := config.LoadWithPath(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	if *verbose {
		level = logging.LevelDebug
	}
	log := logging.New(stderr, logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		Color:  cfg.Logging.Color,
	})
	for _, w := range config.Warnings(cfg) {
		log.Warn(w)
	}

	e := &env{
		cfg:    cfg,
		log:    log,
		json:   *jsonOut || cfg.Output.Format == "json",
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch rest[0] {
	case "check":
		return e.check(rest[1:])
	case "ast":
		return e.ast(rest[1:])
	case "index":
		return e.index(ctx, rest[1:])
	case "lookup":
		return e.lookup(ctx, rest[1:])
	case "watch":
		return e.watch(ctx, rest[1:])
	case "repl":
		return e.repl()
	default:
		return e.tokens(rest[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `arl - scanner and symbol tools for ARL source

Usage:
  arl [options] FILE         Print the tokens of FILE ("--" reads stdin)
  arl [options] COMMAND ...

Commands:
  check FILE...              Scan files and report the first error in each
  ast FILE                   Print the syntax tree of FILE
  index PATH...              Record symbols of files (and directories) in the index
  lookup NAME                List indexed occurrences of NAME
  watch [-index] PATH...     Re-scan files when they change
  repl                       Interactive scanner

Options:
  --config PATH    Path to config file (default: auto-detect)
  -v               Verbose logging
  --json           Write JSON instead of text
  --version        Show version
  --help           Show this help

Config Resolution:
  1. --config flag
  2. ARL_CONFIG environment variable
  3. ./arl.yaml
  4. ~/.config/arl/arl.yaml

Examples:
  arl hello.arl              Print tokens
  cat hello.arl | arl --     Print tokens of stdin
  arl --json ast hello.arl   Print the syntax tree as JSON
  arl index ./src            Index every .arl file under ./src

`)
}
