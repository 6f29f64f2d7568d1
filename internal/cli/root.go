// Package cli implements the claimspilot command tree.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bvsbharat/claimspilot/internal/model"
	"github.com/bvsbharat/claimspilot/internal/store"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "claimspilot",
	Short: "ClaimsPilot - automated claims triage decision engine",
	Long: `ClaimsPilot triages incoming insurance claims: it scores severity and
complexity, runs rule-based fraud detection, auto-approves small clean
claims, and routes everything else to the best-fit adjuster or the
Special Investigation Unit.

Claims enter via 'process' for single bundles or 'watch' for a drop
directory. Adjuster rosters load from YAML, and every decision carries
an auditable reason and investigation checklist.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("claimspilot v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.claimspilot/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("db", "", "sqlite database path (overrides config)")
	rootCmd.PersistentFlags().Bool("memory", false, "use the in-memory store (state lost on exit)")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("store.memory", rootCmd.PersistentFlags().Lookup("memory"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.claimspilot")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match CLAIMSPILOT_*
	viper.SetEnvPrefix("CLAIMSPILOT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, config file, and environment into one Config.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Output.Verbose = verbose || cfg.Output.Verbose

	// The key comes from the environment only.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Parse.APIKey = key
	}
	if cfg.Parse.Timeout == 0 {
		cfg.Parse.Timeout = 30 * time.Second
	}
	return cfg, nil
}

// openStore opens the configured store.
func openStore(cfg *model.Config) (store.Store, error) {
	if cfg.Store.Memory {
		return store.NewMemoryStore(), nil
	}
	return store.OpenSQLite(cfg.Store.Path)
}
