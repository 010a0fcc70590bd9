package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/iin-community/kehila/pkg/usecase/summary"
	"github.com/iin-community/kehila/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func summarizeCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "summarize",
		Usage: "Run the daily community summary job once",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.New(cfg.logLevel, os.Stderr)
			logging.SetDefault(logger)
			ctx = logging.With(ctx, logger)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			_, summaryTuning, err := cfg.loadTuning()
			if err != nil {
				return err
			}

			job := summary.New(repo, gemini, summary.WithTuning(summaryTuning))

			outcome, err := job.Run(ctx)
			if err != nil {
				return goerr.Wrap(err, "summary job failed")
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(outcome)
		},
	}
}
