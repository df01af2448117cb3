package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mashehu/setup-nextflow/internal/api/actions"
	"github.com/mashehu/setup-nextflow/internal/logger"
	"github.com/mashehu/setup-nextflow/internal/service/setup"
	"github.com/mashehu/setup-nextflow/internal/version"
)

var (
	// configPath to the optional configuration YAML file.
	configPath string
	// token, nextflowVersion and all override the INPUT_* variables when set.
	token           string
	nextflowVersion string
	all             bool

	// rootCmd represents the action entry point.
	rootCmd = &cobra.Command{
		Use:           "setup-nextflow",
		Short:         "Install Nextflow and add it to PATH",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			workflow := os.Getenv("GITHUB_ACTIONS") == "true"
			if workflow {
				logger.SetLogger(logger.NewWorkflow(os.Stdout, logger.AtomicLevel()))
				logger.SetLevel(zap.DebugLevel)
			}

			options, err := buildOptions(cmd)
			if err != nil {
				return err
			}

			options.Workflow = workflow

			return setup.Run(ctx, options)
		},
	}
)

// buildOptions reads the action inputs and applies explicit flags on top.
func buildOptions(cmd *cobra.Command) (*setup.Options, error) {
	inputs, err := actions.LoadInputs(nil)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("token") {
		inputs.Token = token
	}

	if flags.Changed("version") && nextflowVersion != "" {
		inputs.Version = nextflowVersion
	}

	if flags.Changed("all") {
		inputs.All = all
	}

	return &setup.Options{
		ConfigPath: configPath,
		Token:      inputs.Token,
		Version:    inputs.Version,
		All:        inputs.All,
	}, nil
}

// Execute runs the setup-nextflow CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), err)
		_ = logger.Logger().Sync()

		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVar(&token, "token", "", "GitHub token (overrides INPUT_TOKEN)")
	rootCmd.Flags().StringVar(&nextflowVersion, "version", "", "version specifier (overrides INPUT_VERSION)")
	rootCmd.Flags().BoolVar(&all, "all", false, `install the "-all" distribution (overrides INPUT_ALL)`)
}
