// Webmail is a terminal mail client with contact autosuggest.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/nhle/webmail/internal/app"
	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/store"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "Path to config file")
	dbPath := flag.String("db", model.DefaultDBPath(), "Path to contact database")
	envFile := flag.String("env-file", "", "Path to env file")
	logFile := flag.String("log-file", "", "Path to log file (default: discard)")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "loading env file: %v\n", err)
			os.Exit(1)
		}
	}

	logger, closeLog, err := setupLogger(*logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	st, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening contact database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = st.Close() }()

	root := app.New(cfg, *configPath, st, logger)
	program := tea.NewProgram(root, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "running program: %v\n", err)
		os.Exit(1)
	}
}

// setupLogger builds a structured logger. The TUI owns the terminal, so
// logs go to a file when one is given and are discarded otherwise.
func setupLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return logger, func() { _ = f.Close() }, nil
}
