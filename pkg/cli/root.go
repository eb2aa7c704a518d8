package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"cigroups/internal/config"
	"cigroups/internal/credentials"
	"cigroups/internal/groups"
)

var (
	version = "dev"
	commit  = "none"
)

// app carries the settings resolved for one invocation.
type app struct {
	home       string
	output     string
	profile    string
	endpoint   string
	verbose    int
	customerID string
	qps        float64

	logger *slog.Logger
}

// Execute runs the CLI and returns the process exit status.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if credentials.IsFatal(err) {
			_, _ = fmt.Fprintln(os.Stderr, err)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	a := &app{logger: slog.New(slog.DiscardHandler)}

	rootCmd := &cobra.Command{
		Use:           "cigroups",
		Short:         "Cloud Identity Groups CLI",
		Long:          "Command-line client for the Cloud Identity Groups API: create, read and list groups and memberships.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.resolve(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.home, "home", "", "Installation directory holding the credential files (default: directory of the executable)")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&a.profile, "profile", "p", "", "Config profile to use")
	rootCmd.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().StringVar(&a.endpoint, "endpoint", "", "Override the Cloud Identity API base URL")

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	rootCmd.AddCommand(newGroupsCreateCmd(a))
	rootCmd.AddCommand(newGroupsGetCmd(a))
	rootCmd.AddCommand(newGroupsListCmd(a))
	rootCmd.AddCommand(newMembershipsCreateCmd(a))
	rootCmd.AddCommand(newMembershipsGetCmd(a))
	rootCmd.AddCommand(newMembershipsListCmd(a))
	rootCmd.AddCommand(newMembershipsExpireCmd(a))

	rootCmd.AddCommand(newLoginCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// normalizeFlagName accepts dashed spellings of the underscored flags.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "customer-id", "display-name", "page-size":
		name = strings.ReplaceAll(name, "-", "_")
	}
	return pflag.NormalizedName(name)
}

// resolve applies precedence flag > env > profile > default, then sets up
// logging.
func (a *app) resolve(cmd *cobra.Command) error {
	userCfg, err := LoadUserConfig()
	if err != nil {
		// Config file is optional
		userCfg = &UserConfig{
			CurrentProfile: "default",
			Profiles:       map[string]Profile{},
		}
	}
	p, err := userCfg.ActiveProfile(a.profile)
	if err != nil {
		return err
	}

	flags := cmd.Root().PersistentFlags()
	if !flags.Changed("home") {
		switch {
		case os.Getenv("CIGROUPS_HOME") != "":
			a.home = os.Getenv("CIGROUPS_HOME")
		case p.Home != "":
			a.home = p.Home
		default:
			a.home = config.DefaultHome()
		}
	}

	if err := config.LoadDotEnv(filepath.Join(a.home, ".env")); err != nil {
		return err
	}
	envCfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	if !flags.Changed("output") {
		if envCfg.Output != "" {
			a.output = envCfg.Output
		} else if p.Output != "" {
			a.output = p.Output
		}
	}
	if err := validateOutputFormat(a.output); err != nil {
		return err
	}
	if !flags.Changed("endpoint") {
		if envCfg.Endpoint != "" {
			a.endpoint = envCfg.Endpoint
		} else if p.Endpoint != "" {
			a.endpoint = p.Endpoint
		}
	}
	if a.endpoint != "" {
		if a.endpoint, err = normalizeEndpoint(a.endpoint); err != nil {
			return err
		}
	}
	a.customerID = envCfg.CustomerID
	if a.customerID == "" {
		a.customerID = p.CustomerID
	}
	a.qps = envCfg.QPS

	a.logger = newLogger(envCfg, a.verbose)
	for _, w := range envCfg.Warnings {
		a.logger.Warn(w)
	}
	a.logger.Debug("configuration resolved", "home", a.home, "output", a.output, "endpoint", a.endpoint)
	return nil
}

func newLogger(cfg *config.Config, verbose int) *slog.Logger {
	level := cfg.SlogLevel()
	switch {
	case verbose >= 2:
		level = slog.LevelDebug
	case verbose == 1 && level > slog.LevelInfo:
		level = slog.LevelInfo
	}
	noColor := cfg.NoColor || !term.IsTerminal(int(os.Stderr.Fd())) //nolint:gosec // fd fits in int
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}))
}

// service resolves credentials from the installation directory and builds
// the API client. Credential problems come back as *credentials.FatalError.
func (a *app) service(ctx context.Context) (*groups.Service, error) {
	provider, err := credentials.Resolve(credentials.DefaultPaths(a.home))
	if err != nil {
		return nil, err
	}
	opts := []groups.Option{
		groups.WithLogger(a.logger),
		groups.WithQPS(a.qps),
	}
	if a.endpoint != "" {
		opts = append(opts, groups.WithEndpoint(a.endpoint))
	}
	return groups.New(ctx, provider, opts...)
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
