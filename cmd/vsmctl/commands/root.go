package commands

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
)

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the vsmctl command tree with its own configuration
func NewRootCommand() *cobra.Command {
	v := viper.New()
	setDefaults(v)

	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "vsmctl",
		Short: "Inspect and exercise the media surface allocator",
		Long: `vsmctl drives the media surface allocator against a simulated backend.

It can replay a decode-style frame workload and report pool statistics, or print the
placement and compression decisions the allocator would make for a single resource.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./vsmctl.yaml)")
	flags.StringSlice("features", nil, "hardware features, e.g. FeatureLocalMemory,FeatureCopyEngineSwizzle")
	flags.StringSlice("workarounds", nil, "hardware workarounds, e.g. WaForceLocalMemory")
	flags.Bool("server", false, "act as a server context")
	flags.BoolP("verbose", "v", false, "log allocator tracing to stderr")

	// Bind flags to viper
	v.BindPFlag("features", flags.Lookup("features"))
	v.BindPFlag("workarounds", flags.Lookup("workarounds"))
	v.BindPFlag("server", flags.Lookup("server"))
	v.BindPFlag("verbose", flags.Lookup("verbose"))

	rootCmd.AddCommand(newSimulateCommand(v))
	rootCmd.AddCommand(newPolicyCommand(v))

	return rootCmd
}

// initConfig reads in the config file and environment variables
func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("VSMCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		err := v.ReadInConfig()
		if err != nil {
			return errors.Wrapf(err, "failed to read config file %s", cfgFile)
		}
		return nil
	}

	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	v.SetConfigName("vsmctl")

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return errors.Wrap(err, "failed to read vsmctl.yaml")
	}
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.HandlerOptions{Level: level}.NewTextHandler(w))
}
