package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fabricsync/fabricsync/internal/config"
	"github.com/fabricsync/fabricsync/pkg/cli/format"
	"github.com/fabricsync/fabricsync/pkg/log"
	"github.com/fabricsync/fabricsync/pkg/version"
)

var (
	cfgFile string
	verbose bool

	// cfg is loaded once before any command runs.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fabricsync",
	Short: "FabricSync - Network fabric configuration reconciliation",
	Long: `FabricSync reconciles the live configuration of a network
virtualization controller with an operator-supplied desired state:
it discovers what the controller's API actually supports, computes a
classified diff, applies the changes and verifies the result.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is specified, display the help
		if len(args) == 0 {
			cmd.Help()
			return
		}
	},
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Any fatal error exits with code 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		format.PrintFatal(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fabricsync/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	viper.SetEnvPrefix("FABRICSYNC")
	viper.AutomaticEnv()
}

// initConfig loads the configuration file and tunes the default logger.
func initConfig() {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		format.PrintFatal(err)
		os.Exit(1)
	}
	cfg = loaded

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log.GetDefaultLogger().SetLevel(log.ParseLevel(level))
}
