package cli

import (
	"context"
	"os"

	"github.com/defectdesk/defectdesk/pkg/adapter"
	"github.com/defectdesk/defectdesk/pkg/repository"
	"github.com/defectdesk/defectdesk/pkg/service/issuer"
	"github.com/defectdesk/defectdesk/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// config holds configuration values shared by the commands
type config struct {
	// Storage
	bucket     string
	basePrefix string
	localStore bool

	// Identifier issuance
	idPolicy          string
	counterBackend    string
	firestoreProject  string
	firestoreDatabase string

	// AI enrichment
	geminiProject  string
	geminiLocation string
	geminiModel    string

	// Logging
	logLevel  string
	logFormat string
}

// globalFlags returns the flags every command shares, bound to cfg
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Aliases:     []string{"b"},
			Usage:       "Cloud Storage bucket holding defect records",
			Sources:     cli.EnvVars("DEFECTDESK_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "base-prefix",
			Usage:       "Object key prefix for defect records",
			Value:       repository.DefaultBasePrefix,
			Sources:     cli.EnvVars("DEFECTDESK_BASE_PREFIX"),
			Destination: &cfg.basePrefix,
		},
		&cli.BoolFlag{
			Name:        "local-store",
			Usage:       "Keep records in memory instead of Cloud Storage (for trials)",
			Sources:     cli.EnvVars("DEFECTDESK_LOCAL_STORE"),
			Destination: &cfg.localStore,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("DEFECTDESK_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       string(logging.FormatConsole),
			Sources:     cli.EnvVars("DEFECTDESK_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// issuerFlags returns flags controlling identifier issuance, bound to cfg
func issuerFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "id-policy",
			Usage:       "Identifier policy (sequential, random)",
			Value:       "sequential",
			Sources:     cli.EnvVars("DEFECTDESK_ID_POLICY"),
			Destination: &cfg.idPolicy,
		},
		&cli.StringFlag{
			Name:        "counter-backend",
			Usage:       "Sequential counter backend (storage, firestore)",
			Value:       "storage",
			Sources:     cli.EnvVars("DEFECTDESK_COUNTER_BACKEND"),
			Destination: &cfg.counterBackend,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID for the Firestore counter",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID for the counter",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.firestoreDatabase,
		},
	}
}

// geminiFlags returns flags for the AI enrichment backend, bound to cfg
func geminiFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini (empty disables AI features)",
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
			Name:        "gemini-model",
			Usage:       "Generative model name",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
	}
}

// setupLogger installs the configured default logger
func (cfg *config) setupLogger() {
	logging.SetDefault(logging.New(cfg.logLevel, logging.Format(cfg.logFormat), os.Stderr))
}

// newStorage creates the record storage backend
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.localStore {
		return adapter.NewMemoryStorage(), nil
	}
	if cfg.bucket == "" {
		return nil, goerr.New("bucket is required (or use --local-store)")
	}

	storage, err := adapter.NewStorage(ctx, cfg.bucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

// newGemini creates the AI backend, or nil when no project is configured.
// A nil backend turns off summarization, transcription and photo gating.
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, nil
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
		adapter.WithGenerativeModel(cfg.geminiModel))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini adapter")
	}
	return gemini, nil
}

// newIssuer creates the identifier issuer per the configured policy
func (cfg *config) newIssuer(ctx context.Context, storage adapter.Storage) (issuer.Issuer, error) {
	switch cfg.idPolicy {
	case "random":
		return issuer.NewRandom(), nil

	case "sequential", "":
		switch cfg.counterBackend {
		case "firestore":
			if cfg.firestoreProject == "" {
				return nil, goerr.New("firestore-project is required for the firestore counter")
			}
			counter, err := repository.NewFirestoreCounter(ctx, cfg.firestoreProject, cfg.firestoreDatabase)
			if err != nil {
				return nil, err
			}
			return issuer.NewSequential(counter), nil

		case "storage", "":
			return issuer.NewSequential(repository.NewStorageCounter(storage, cfg.basePrefix)), nil

		default:
			return nil, goerr.New("unknown counter backend", goerr.V("backend", cfg.counterBackend))
		}

	default:
		return nil, goerr.New("unknown identifier policy", goerr.V("policy", cfg.idPolicy))
	}
}
