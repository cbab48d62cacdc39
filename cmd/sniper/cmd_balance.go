package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sniperbot-go/internal/wallet"
)

var balanceAddress string

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the USDC balance of the configured Polygon wallet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		raw := balanceAddress
		if strings.TrimSpace(raw) == "" {
			raw = cfg.Wallet.Address
		}
		owner, err := wallet.ParseAddress(raw)
		if err != nil {
			return err
		}
		rpcURL := cfg.Wallet.RPCURL
		if rpcURL == "" {
			rpcURL = wallet.DefaultRPCURL
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		bal, err := wallet.FetchUSDCBalance(ctx, rpcURL, owner)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s USDC %s\n", owner.Hex(), bal.StringFixed(2))
		return nil
	},
}

func init() {
	balanceCmd.Flags().StringVar(&balanceAddress, "address", "", "Wallet address (defaults to wallet.address / WALLET_ADDRESS)")
}
