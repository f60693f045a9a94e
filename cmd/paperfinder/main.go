package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paperfinder/paperfinder/internal/config"
	logpkg "github.com/paperfinder/paperfinder/internal/logger"
)

func main() {
	// .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "failed to load .env:", err)
		os.Exit(1)
	}

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	env string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "paperfinder",
		Short:        "Past-paper question finder API and tools",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(),
		"configuration environment (config/<env>.yaml)")

	cmd.AddCommand(
		newServeCmd(opts),
		newWorksheetCmd(opts),
		newLabelCmd(),
		newVersionCmd(),
	)
	return cmd
}

// load reads the environment's config and builds its logger.
func (o *rootOptions) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(o.env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}
