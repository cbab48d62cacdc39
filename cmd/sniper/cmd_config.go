package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sniperbot-go/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or edit the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a configuration summary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), cfg)
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Prompt for bankroll, risk and window knobs and save them",
	Long: `edit rewrites the YAML file only. Values from .env and the environment
(tokens, wallet, DRY_RUN) are not applied, so they never end up on disk.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := editConfigFile(configPath, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config saved to %s\n", configPath)
		return nil
	},
}

// editConfigFile prompts over the file layer (defaults when the file is missing)
// and saves it back once valid.
func editConfigFile(path string, in io.Reader, out io.Writer) error {
	cfg := config.Defaults()
	if _, err := os.Stat(path); err == nil {
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	editKnobs(&prompter{in: bufio.NewReader(in), out: out}, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("not saved: %w", err)
	}
	return config.Save(path, cfg)
}

func init() {
	configCmd.AddCommand(configShowCmd, configEditCmd)
	rootCmd.AddCommand(configCmd)
}

func printSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "--- Configuration Summary ---")
	fmt.Fprintf(w, "Assets: %s (provider %s)\n", strings.Join(cfg.AssetSymbols(), ", "), cfg.Exchange.Provider)
	fmt.Fprintf(w, "Snipe window: %ds to %ds before close\n", cfg.Window.SnipeStartSecs, cfg.Window.SnipeEndSecs)
	fmt.Fprintf(w, "Min move: %.3f%% | cooldown %ds (%s)\n", cfg.Window.MinMoveFraction*100, cfg.Window.CooldownSecs, cfg.Window.CooldownScope)
	fmt.Fprintf(w, "Odds gate: %v [%.2f, %.2f]\n", cfg.Quotes.Enabled, cfg.Quotes.MinOdds, cfg.Quotes.MaxOdds)
	fmt.Fprintf(w, "Max decisions per day: %d\n", cfg.Risk.MaxDecisionsPerDay)
	fmt.Fprintf(w, "Dry run: %v | order size %.2f @ %.2f\n", cfg.Execution.DryRun, cfg.Execution.OrderSize, cfg.Execution.LimitPrice)
	fmt.Fprintf(w, "Paper cash: $%.2f | bet $%.2f\n", cfg.Paper.StartingCash, cfg.Paper.BetSize)
}

func editKnobs(p *prompter, cfg *config.Config) {
	cfg.Paper.StartingCash = p.float("Starting cash", cfg.Paper.StartingCash)
	cfg.Paper.BetSize = p.float("Paper bet size", cfg.Paper.BetSize)
	cfg.Execution.OrderSize = p.float("Order size", cfg.Execution.OrderSize)
	cfg.Risk.MaxNotionalPerTrade = p.float("Max notional per trade (USD)", cfg.Risk.MaxNotionalPerTrade)
	cfg.Risk.MaxDecisionsPerDay = int(p.float("Max decisions per day", float64(cfg.Risk.MaxDecisionsPerDay)))
	cfg.Window.MinMoveFraction = p.percent("Min move (%)", cfg.Window.MinMoveFraction)
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompter) float(label string, current float64) float64 {
	fmt.Fprintf(p.out, "%s [%.2f]: ", label, current)
	line, _ := p.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Fprintf(p.out, "invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func (p *prompter) percent(label string, current float64) float64 {
	return p.float(label, current*100) / 100
}
