package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/leengari/minidb/internal/config"
	"github.com/leengari/minidb/internal/engine"
	"github.com/leengari/minidb/internal/logging"
	"github.com/leengari/minidb/internal/repl"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	dataDir := flag.String("data", "", "Data directory (overrides config)")
	execStmt := flag.String("exec", "", "Execute statements and exit instead of starting the shell")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	logger, closeFn := logging.SetupLogger(cfg.Logging.SeqURL)
	defer closeFn()
	slog.SetDefault(logger)

	eng, err := engine.New(cfg)
	if err != nil {
		slog.Error("failed to start engine", "data_dir", cfg.DataDir, "error", err)
		closeFn()
		os.Exit(1)
	}
	slog.Info("engine ready", "data_dir", cfg.DataDir, "join_algorithm", cfg.JoinAlgorithm)

	if *execStmt != "" {
		failed := false
		for _, res := range eng.Execute(*execStmt) {
			repl.PrintResult(os.Stdout, res)
			if res.IsError() {
				failed = true
			}
		}
		if failed {
			closeFn()
			os.Exit(1)
		}
		return
	}

	if err := repl.Start(eng); err != nil {
		slog.Error("shell failed", "error", err)
		closeFn()
		os.Exit(1)
	}
}
