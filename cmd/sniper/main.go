package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"sniperbot-go/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "sniper",
	Short: "15-minute up/down window sniper",
	Long: `sniper records each asset's price at the open of a 15-minute window and,
in the final seconds before the close, bets on the side the price has already moved to.
Orders are logged, never signed.`,
	SilenceUsage: true,
	RunE:         runSniper,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to the YAML configuration")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file with secrets")
	rootCmd.AddCommand(runCmd, windowCmd, balanceCmd)
}

// loadConfig layers defaults, the YAML file and the environment, then validates.
// A missing default config file is not an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	path := configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
