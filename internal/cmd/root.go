package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"azpim/internal/api"
	"azpim/internal/auth"
	"azpim/internal/config"
	"azpim/internal/logging"
	"azpim/internal/models"
	"azpim/internal/pim"
	"azpim/internal/workflow"
)

// WorkflowFactory builds the workflow for a command from the effective configuration
type WorkflowFactory func(cmd *cobra.Command, cfg models.Config, logger *logging.Logger) (*workflow.Workflow, error)

// rootOptions holds the global flag values and the configuration resolved from them
type rootOptions struct {
	cfgFile     string
	logLevel    string
	accessToken string

	cfg     models.Config
	factory WorkflowFactory
}

const envHelp = "\nEnvironment Variables:\n" +
	"  Configuration can be provided via environment variables as an alternative to CLI flags:\n\n" +
	"  AZPIM_TENANT_ID         Azure AD tenant ID (TENANT_ID is also honored)\n" +
	"  AZPIM_CONFIG            Path to configuration file\n" +
	"  AZPIM_LOG_LEVEL         Log level (debug, info, warn, error)\n" +
	"  AZPIM_DURATION          Activation duration in minutes (default 480)\n" +
	"  AZPIM_REASON            Justification sent with activation requests\n" +
	"  AZPIM_ACCESS_TOKEN      Pre-acquired PIM access token, skips the browser sign-in\n" +
	"  AZPIM_BASE_URL          PIM API base URL\n\n" +
	"  Environment variables have lower precedence than CLI flags but higher than config files.\n\n"

// NewRootCommand builds the azpim command tree. A nil factory uses the real
// PIM client and authenticators.
func NewRootCommand(factory WorkflowFactory) *cobra.Command {
	if factory == nil {
		factory = DefaultWorkflowFactory
	}
	opts := &rootOptions{factory: factory}

	root := &cobra.Command{
		Use:   "azpim",
		Short: "Azure Privileged Identity Management CLI",
		Long: `azpim activates Azure PIM eligible role assignments from the command line.

It signs you in through the browser, finds the eligible assignment matching
a subscription name or number (and optionally a role type), and requests
a time-boxed activation for it.

Key features:
• List the Azure resource roles you are eligible for
• Activate a role by subscription name or subscription number prefix
• Configure tenant, duration and reason through a config file or environment`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.loadConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file path (env: AZPIM_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (env: AZPIM_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&opts.accessToken, "access-token", "", "pre-acquired PIM access token (env: AZPIM_ACCESS_TOKEN)")
	_ = root.PersistentFlags().MarkHidden("access-token")

	root.AddCommand(newListCmd(opts))
	root.AddCommand(newActivateCmd(opts))
	root.AddCommand(newVersionCmd())

	originalHelpFunc := root.HelpFunc()
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != root {
			originalHelpFunc(cmd, args)
			return
		}
		var buf strings.Builder
		originalOut := cmd.OutOrStdout()
		cmd.SetOut(&buf)
		originalHelpFunc(cmd, args)
		cmd.SetOut(originalOut)

		helpText := buf.String()
		useMessage := `Use "azpim [command] --help" for more information about a command.`
		helpText = strings.Replace(helpText, useMessage, envHelp+useMessage, 1)
		cmd.Print(helpText)
	})

	return root
}

func (o *rootOptions) loadConfig(cmd *cobra.Command) error {
	switch cmd.Name() {
	case "version", "help", "completion":
		return nil
	}

	var err error
	if o.cfgFile != "" {
		o.cfg, err = config.LoadConfig(o.cfgFile)
	} else {
		o.cfg, err = config.LoadConfigWithDefaults(nil)
	}
	if err != nil {
		return &ConfigurationError{
			Field:    "config",
			Message:  err.Error(),
			Guidance: "Check the configuration file and the AZPIM_* environment variables",
		}
	}

	if o.logLevel != "" {
		o.cfg.LogLevel = o.logLevel
	}
	if o.accessToken != "" {
		o.cfg.AccessToken = o.accessToken
	}

	return validate(o.cfg)
}

func validate(cfg models.Config) error {
	if err := config.ValidateConfig(cfg); err != nil {
		return &ConfigurationError{
			Field:    "config",
			Message:  err.Error(),
			Guidance: "Log level must be debug, info, warn or error and duration between 1 and 1440 minutes",
		}
	}
	return nil
}

// newLogger creates the stderr logger for a command run
func (o *rootOptions) newLogger(cmd *cobra.Command) *logging.Logger {
	level, err := logging.ParseLevel(o.cfg.LogLevel)
	if err != nil {
		level = logging.ErrorLevel
	}
	return logging.NewLoggerWithLevel(cmd.ErrOrStderr(), level)
}

// DefaultWorkflowFactory wires the PIM API client, repository and authenticator.
// A configured access token replaces the interactive browser sign-in.
func DefaultWorkflowFactory(cmd *cobra.Command, cfg models.Config, logger *logging.Logger) (*workflow.Workflow, error) {
	client, err := api.NewClient(cfg.BaseURL, logger)
	if err != nil {
		return nil, &ConfigurationError{
			Field:    "base_url",
			Message:  err.Error(),
			Guidance: "Set base_url in the config file or AZPIM_BASE_URL to an https URL",
		}
	}

	repo := pim.NewRepository(client, logger,
		pim.WithReason(cfg.Reason),
		pim.WithDuration(cfg.DurationMinutes),
	)

	var authenticator workflow.Authenticator
	if cfg.AccessToken != "" {
		logger.Debug("using pre-acquired access token")
		authenticator = auth.NewStaticTokenAuthenticator(cfg.AccessToken, logger)
	} else {
		authenticator = auth.NewBrowserAuthenticator(cmd.OutOrStdout(), logger)
	}

	return workflow.New(authenticator, repo, logger, workflow.WithProgress(cmd.OutOrStdout())), nil
}

var rootCmd = NewRootCommand(nil)

// ExecuteWithContext runs the root command with a context that is cancelled on shutdown
func ExecuteWithContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
