// Package cli implements the chartline command tree.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chartlinehq/chartline/internal/model"
)

var (
	cfgFile string
	verbose bool
	log     zerolog.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "chartline",
	Short: "Chartline - clinical document timeline extraction",
	Long: `Chartline extracts structured clinical facts from free-text hospital
documents, resolves relative time references (POD#2, overnight) against
anchor events, and builds a validated chronological timeline.

Ambiguities and clinical irregularities are never errors: they surface
as uncertainties for human review, and human corrections feed an
approval-gated learning loop that improves future extraction.`,
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
		fmt.Println("chartline v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.chartline/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

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
		viper.AddConfigPath(filepath.Join(home, ".chartline"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match CHARTLINE_*
	viper.SetEnvPrefix("CHARTLINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// initLogging sets up the console logger
func initLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// loadConfig builds the effective configuration: defaults overlaid with
// config-file and environment settings.
func loadConfig() *model.Config {
	cfg := model.DefaultConfig()

	if v := viper.GetInt("concurrency.extraction_workers"); v > 0 {
		cfg.Concurrency.ExtractionWorkers = v
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := viper.GetString("llm.provider"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := viper.GetString("llm.model"); v != "" {
		cfg.LLM.Model = v
	}
	if v := viper.GetString("llm.base_url"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := viper.GetString("learning.store_path"); v != "" {
		cfg.Learning.StorePath = v
	}
	if v := viper.GetString("knowledge.overrides_path"); v != "" {
		cfg.Knowledge.OverridesPath = v
	}

	// The API key comes from the environment only, never a file.
	cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")

	if cfg.Cache.Dir == "" {
		if base, err := os.UserCacheDir(); err == nil {
			cfg.Cache.Dir = filepath.Join(base, "chartline")
		}
	}
	if cfg.Learning.StorePath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Learning.StorePath = filepath.Join(home, ".chartline", "patterns.db")
		}
	}
	return cfg
}
