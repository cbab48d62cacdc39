package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sniperbot-go/internal/polymarket"
	"sniperbot-go/internal/strategy"
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Show the current window, time remaining and market slugs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		stratCfg, err := cfg.StrategyConfig()
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		w := strategy.WindowAt(now, stratCfg.WindowLength)

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "bucket\t%d\n", w.Bucket)
		fmt.Fprintf(tw, "start\t%s\n", w.Start.Format(time.RFC3339))
		fmt.Fprintf(tw, "end\t%s\n", w.End.Format(time.RFC3339))
		fmt.Fprintf(tw, "remaining\t%s\n", w.Remaining.Truncate(time.Second))
		fmt.Fprintf(tw, "snipe window\t%v\n", stratCfg.InSnipeWindow(w.Remaining))
		prefixes := cfg.SlugPrefixes()
		for _, asset := range cfg.AssetSymbols() {
			fmt.Fprintf(tw, "%s\t%s\n", asset, polymarket.SlugFor(prefixes, asset, w.Start))
		}
		return tw.Flush()
	},
}
