package cli

import (
	"context"
	"os"

	"github.com/iin-community/kehila/pkg/adapter"
	"github.com/iin-community/kehila/pkg/repository"
	"github.com/iin-community/kehila/pkg/usecase/search"
	"github.com/iin-community/kehila/pkg/usecase/summary"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel string

	// Repository
	project  string
	database string

	// Adapters
	geminiProject  string
	geminiLocation string
	bucket         string
	authEndpoint   string

	// Jobs
	jobToken string

	// Tuning
	tuningPath string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("KEHILA_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "tuning",
			Usage:       "Path to YAML tuning overrides",
			Sources:     cli.EnvVars("KEHILA_TUNING_FILE"),
			Destination: &cfg.tuningPath,
		},
	}
}

// newRepository creates a new repository instance
func (cfg *config) newRepository(ctx context.Context) (*repository.Firestore, error) {
	if cfg.project == "" {
		return nil, goerr.New("project is required")
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required")
	}

	repo, err := repository.New(ctx, cfg.project, cfg.database)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	project := cfg.geminiProject
	if project == "" {
		project = cfg.project
	}
	if project == "" {
		return nil, goerr.New("gemini-project is required")
	}
	return adapter.NewGemini(ctx, project, cfg.geminiLocation)
}

// newStorage creates a new storage adapter instance
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket == "" {
		return nil, goerr.New("bucket is required")
	}
	return adapter.NewStorage(ctx, cfg.bucket)
}

// tuningFile is the on-disk shape of the optional tuning override file.
// Absent fields keep their defaults.
type tuningFile struct {
	Search  search.Tuning  `yaml:"search"`
	Summary summary.Tuning `yaml:"summary"`
}

// loadTuning reads the tuning override file if one was configured. Defaults
// are filled in first so a partial file only overrides what it names.
func (cfg *config) loadTuning() (search.Tuning, summary.Tuning, error) {
	tf := tuningFile{
		Search:  search.DefaultTuning(),
		Summary: summary.DefaultTuning(),
	}

	if cfg.tuningPath == "" {
		return tf.Search, tf.Summary, nil
	}

	raw, err := os.ReadFile(cfg.tuningPath)
	if err != nil {
		return tf.Search, tf.Summary, goerr.Wrap(err, "failed to read tuning file", goerr.V("path", cfg.tuningPath))
	}
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return tf.Search, tf.Summary, goerr.Wrap(err, "failed to parse tuning file", goerr.V("path", cfg.tuningPath))
	}

	return tf.Search, tf.Summary, nil
}
