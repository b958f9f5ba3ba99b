package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dusk-indust/farmops/internal/audit"
	"github.com/dusk-indust/farmops/internal/config"
	"github.com/dusk-indust/farmops/internal/mcptools"
	"github.com/dusk-indust/farmops/internal/schedule"
	"github.com/dusk-indust/farmops/internal/worker"
)

// CLI flags parsed from command line.
type cliFlags struct {
	Dir      string
	DBPath   string
	Addr     string
	Verbose  bool
	ServeMCP bool
	Version  bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("farmops", flag.ContinueOnError)
	fs.StringVar(&flags.Dir, "dir", ".", "project directory holding farmops.yml")
	fs.StringVar(&flags.DBPath, "db", "", "database path (default: value from farmops.yml, else in-memory)")
	fs.StringVar(&flags.Addr, "addr", "", "listen address for --serve-mcp (default :8450)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable verbose output")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as MCP server for assistant integration")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	cfg, err := config.Load(flags.Dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.DBPath == "" {
		flags.DBPath = cfg.DBPath
	}
	if flags.Addr == "" {
		flags.Addr = cfg.ListenAddr
	}
	if flags.Addr == "" {
		flags.Addr = ":8450"
	}
	if cfg.Verbose {
		flags.Verbose = true
	}

	log, err := newLogger(flags.Verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	if fs.Arg(0) == "init" {
		return cmdInit(flags, cfg, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(flags.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	graph, err := st.LoadGraph(ctx)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}

	workers := worker.NewStaticDirectory()
	sink := audit.NewMemorySink()

	// In server mode every stage transition is logged from the engine's
	// event feed; one-shot commands produce no transitions.
	var reporter *schedule.Reporter
	if flags.ServeMCP {
		reporter = schedule.NewReporter()
	}
	engine := schedule.NewEngine(workers, sink, reporter)
	svc := mcptools.NewFarmService(graph, st, engine, workers)

	if flags.ServeMCP {
		defer reporter.Close()
		go func() {
			for ev := range reporter.Subscribe() {
				log.Info("stage transition",
					zap.String("job", ev.JobID),
					zap.String("schedule", ev.ScheduleID),
					zap.String("category", ev.CategoryName),
					zap.String("from", string(ev.From)),
					zap.String("to", string(ev.To)),
					zap.String("actor", ev.Actor),
				)
			}
		}()
		return mcptools.RunMCPServer(ctx, svc, flags.Addr, version, log)
	}

	switch fs.Arg(0) {
	case "pipeline":
		return cmdPipeline(graph)
	case "status":
		if fs.Arg(1) == "" {
			return fmt.Errorf("usage: farmops status <job-id>")
		}
		return cmdStatus(ctx, st, graph, fs.Arg(1))
	case "export":
		if fs.NArg() < 2 {
			return fmt.Errorf("usage: farmops export <job-id>...")
		}
		return cmdExport(ctx, st, fs.Args()[1:])
	case "":
		fs.Usage()
		fmt.Fprintln(fs.Output(), "\ncommands: init, pipeline, status <job-id>, export <job-id>...")
		return nil
	default:
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
