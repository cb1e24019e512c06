// Command interviewer drives persona interviews from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/persona-interviewer/internal/backend"
	"github.com/BerylCAtieno/persona-interviewer/internal/config"
	"github.com/BerylCAtieno/persona-interviewer/internal/logging"
)

var (
	apiURL  string
	timeout time.Duration
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
	client *backend.Client
)

var rootCmd = &cobra.Command{
	Use:   "interviewer",
	Short: "Run synthetic persona interviews against the interview backend",
	Long: `interviewer generates personas for a product, interviews three of them,
forms a hypothesis from their answers, interviews them again and prints the
resulting marketing analysis.

The backend URL comes from INTERVIEW_API_URL (default http://localhost:8000)
or the --api-url flag.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if apiURL != "" {
			cfg.APIURL = apiURL
		}
		if timeout > 0 {
			cfg.Timeout = timeout
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = logging.New(cfg.LogLevel, true)
		if err != nil {
			return err
		}
		client = backend.NewClient(cfg.APIURL,
			backend.WithTimeout(cfg.Timeout),
			backend.WithProbeTimeout(cfg.ProbeTimeout),
			backend.WithLogger(logger.Named("backend")),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "interview backend URL (overrides INTERVIEW_API_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for each backend call (overrides INTERVIEW_TIMEOUT)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(probeCmd, questionsCmd, statusCmd, runCmd, historyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
