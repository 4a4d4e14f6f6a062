// Command vulnissimo is the CLI for the Vulnissimo scanning service: start
// scans, wait for their results, and inspect what was found.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vulnissimo/vulnissimo-go/internal/cli"
	"github.com/vulnissimo/vulnissimo-go/internal/client"
	"github.com/vulnissimo/vulnissimo-go/internal/history"
	"github.com/vulnissimo/vulnissimo-go/internal/logging"
	"github.com/vulnissimo/vulnissimo-go/internal/report"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	args, err := cli.ParseArgs(argv)
	if err != nil {
		return err
	}

	// Flags win over environment variables.
	baseURL := args.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("VULNISSIMO_BASE_URL")
	}
	token := args.Token
	if token == "" {
		token = os.Getenv("VULNISSIMO_API_TOKEN")
	}

	logger := logging.Logger(logging.Nop{})
	if os.Getenv("VULNISSIMO_DEBUG") != "" {
		logger = logging.NewStdoutLogger("vulnissimo")
	}

	apiClient, err := client.New(client.Options{
		BaseURL: baseURL,
		Token:   token,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	app := &cli.App{
		Client:     apiClient,
		Summarizer: report.New(nil),
		Logger:     logger,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}

	// History is best-effort: a broken local store should not block scans.
	if path, err := historyPath(); err == nil {
		if store, err := history.Open(path, logger); err == nil {
			app.History = store
			defer store.Close()
		} else {
			logger.Warn("opening history store", logging.Field{Key: "error", Value: err.Error()})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, args)
}

func historyPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "vulnissimo"), nil
}
