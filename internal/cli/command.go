package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/idelchi/jolt/internal/config"
	"github.com/idelchi/jolt/internal/logging"
)

// viperKey is the flag annotation naming the configuration key a flag overrides.
const viperKey = "viper_key"

//nolint:gochecknoglobals // Output formats accepted by --output
var allowedOutputs = []string{"table", "json", "yaml"}

//nolint:gochecknoglobals // Color helpers
var (
	errorColor   = color.New(color.FgRed).SprintFunc()
	headingColor = color.New(color.Bold).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
)

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// app carries state shared by the commands of one invocation.
type app struct {
	version    string
	configFile string
	v          *viper.Viper
	cfg        *config.Config
	out        io.Writer
	errOut     io.Writer
}

// Execute runs the CLI with the process arguments. Interrupts cancel the running command.
func (c CLI) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.Command().ExecuteContext(ctx)
}

// PrintError reports err on stderr the way every jolt command fails.
func PrintError(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", errorColor("Error:"), err)
}

// Command builds the root command and its subcommands.
func (c CLI) Command() *cobra.Command {
	a := &app{version: c.version, v: viper.New()}

	root := &cobra.Command{
		Use:   "jolt",
		Short: "Diagnostic tool to help give your computer that extra jolt",
		Long: heredoc.Doc(`
			jolt inspects the host it runs on.

			It finds the largest files on a directory tree or on every mounted volume,
			searches file names, shows processes, CPU, memory and recent system errors,
			and can serve all of this over HTTP.

			Settings are read from $HOME/.jolt.yaml or ./.jolt.yaml and JOLT_* environment
			variables (e.g. JOLT_FINDER_CEILING=8). Flags take precedence.
		`),
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (default $HOME/.jolt.yaml or ./.jolt.yaml)")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (default $LOG_LEVEL or info)")
	root.PersistentFlags().StringP("output", "o", "table", "Output format: table, json or yaml")
	bindFlag(root.PersistentFlags(), "log-level", "log_level")
	bindFlag(root.PersistentFlags(), "output", "output")

	root.AddCommand(
		a.searchCommand(),
		a.searchLogsCommand(),
		a.spaceFinderCommand(),
		a.showErrorsCommand(),
		a.diagnoseCommand(),
		a.cpuCommand(),
		a.memoryCommand(),
		a.killTaskCommand(),
		a.serveCommand(),
		a.initCommand(),
	)

	return root
}

// bindFlag marks a flag as overriding the configuration key.
func bindFlag(flags *pflag.FlagSet, name, key string) {
	if err := flags.SetAnnotation(name, viperKey, []string{key}); err != nil {
		panic(fmt.Sprintf("binding flag %q: %v", name, err))
	}
}

// load reads the configuration, applies flags bound to it and sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()

	var bindErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys, ok := f.Annotations[viperKey]
		if !ok || bindErr != nil {
			return
		}

		if err := a.v.BindPFlag(keys[0], f); err != nil {
			bindErr = fmt.Errorf("binding flag %q: %w", f.Name, err)
		}
	})

	if bindErr != nil {
		return bindErr
	}

	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}

	if !slices.Contains(allowedOutputs, cfg.Output) {
		return fmt.Errorf("invalid output format %q: must be one of %v", cfg.Output, allowedOutputs)
	}

	a.cfg = cfg

	logging.SetDefault("jolt", a.version, cfg.LogLevel)

	return nil
}
