package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment without overriding variables that are already set. Missing files are fine.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays secrets and toggles from the process environment.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get("DRY_RUN"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DRY_RUN: %w", err))
		} else {
			c.Execution.DryRun = b
		}
	}
	if v, ok := get("ORDER_SIZE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("ORDER_SIZE: %w", err))
		} else {
			c.Execution.OrderSize = f
		}
	}
	if v, ok := get("BET_SIZE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("BET_SIZE: %w", err))
		} else {
			c.Paper.BetSize = f
		}
	}
	if v, ok := get("WALLET_ADDRESS"); ok {
		c.Wallet.Address = v
	}
	if v, ok := get("POLYGON_RPC_URL"); ok {
		c.Wallet.RPCURL = v
	}
	if v, ok := get("TELEGRAM_BOT_TOKEN"); ok {
		c.Telegram.Token = v
	}
	if v, ok := get("TELEGRAM_CHAT_ID"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err))
		} else {
			c.Telegram.ChatID = id
		}
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}
	return errors.Join(errs...)
}
