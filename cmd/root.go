package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/maolala233/smart-brain/internal/config"
	"github.com/maolala233/smart-brain/internal/observability"
)

// Version is stamped at build time.
var Version = "dev"

var (
	cfgFile   string
	serverURL string
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "smart-brain",
	Short: "Explore and query digital-persona knowledge graphs.",
	Long: `smart-brain is a client for the knowledge-graph backend: manage
subgraphs, ingest documents, render the graph, and ask questions answered
against selected subgraphs with supporting evidence.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			return fmt.Errorf("failed to initialize configuration: %w", err)
		}
		if serverURL != "" {
			viper.Set("api.base_url", serverURL)
		}
		if err := config.Load(viper.GetViper()); err != nil {
			return err
		}
		observability.InitializeLogger(config.Get().Logger)
		observability.GetLogger().Debug("Starting smart-brain", zap.String("version", Version))
		return nil
	},
}

// Execute runs the root command with a context passed from main for
// graceful shutdown.
func Execute(ctx context.Context) error {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Context cancellation is an expected shutdown path, not a failure.
		if ctx.Err() == nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "backend base URL (overrides api.base_url)")

	rootCmd.AddCommand(newUsersCmd())
	rootCmd.AddCommand(newSubgraphCmd())
	rootCmd.AddCommand(newGraphCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initializeConfig reads the config file and SMART_* environment variables.
func initializeConfig() error {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SMART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
