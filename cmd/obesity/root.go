package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"obesitycheck/app"
	"obesitycheck/config"
	"obesitycheck/logging"
)

// All linker flags will be set at build time.
var version = "dev"

// rootOptions holds flags shared by every subcommand. Set flags override
// the config file and the environment.
type rootOptions struct {
	configPath string
	scalerPath string
	modelPath  string
	modelType  string
	dbPath     string
	logLevel   string
	noColor    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "obesity",
		Short:         "Predict obesity levels from lifestyle habits and physical attributes.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setColor(!opts.noColor)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "config.yaml", "Path to the YAML config")
	flags.StringVar(&opts.scalerPath, "scaler", "", "Scaler artifact, overrides artifacts.scaler_path")
	flags.StringVar(&opts.modelPath, "model", "", "Classifier artifact, overrides artifacts.model_path")
	flags.StringVar(&opts.modelType, "model-type", "", "Classifier type: random_forest or decision_tree or onnx")
	flags.StringVar(&opts.dbPath, "db", "", "SQLite history database, overrides database.path")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level, overrides log.level")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newPredictCmd(opts),
		newEncodeCmd(opts),
		newHistoryCmd(opts),
		newLabelsCmd(),
		newServeCmd(opts),
		newEvaluateCmd(opts),
		newFitScalerCmd(opts),
	)
	return root
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.scalerPath != "" {
		cfg.Artifacts.ScalerPath = o.scalerPath
	}
	if o.modelPath != "" {
		cfg.Artifacts.ModelPath = o.modelPath
	}
	if o.modelType != "" {
		cfg.Artifacts.ModelType = o.modelType
	}
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, cfg.Validate()
}

// openApp loads config and artifacts for a one-shot command. One-shot
// commands log to stderr at warn level unless told otherwise.
func (o *rootOptions) openApp() (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Artifacts.Watch = false
	return app.New(cfg, o.cliLogger(cfg))
}

func (o *rootOptions) cliLogger(cfg *config.Config) *zap.Logger {
	level := "warn"
	if o.logLevel != "" {
		level = o.logLevel
	}
	return logging.New(logging.Options{Level: level, Format: "console", File: cfg.Log.File})
}
