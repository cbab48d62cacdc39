// Package wallet reads the bot's USDC balance on Polygon.
package wallet

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// USDCDecimals is the token precision of bridged USDC on Polygon.
const USDCDecimals = 6

// DefaultRPCURL is a public Polygon endpoint.
const DefaultRPCURL = "https://polygon-rpc.com"

// USDCAddress is the USDC.e contract Polymarket settles in.
var USDCAddress = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")

var balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]

// ParseAddress validates a hex wallet address.
func ParseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid wallet address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

// USDCBalance calls balanceOf(owner) through caller and scales the result to whole USDC.
func USDCBalance(ctx context.Context, caller ethereum.ContractCaller, owner common.Address) (decimal.Decimal, error) {
	if (owner == common.Address{}) {
		return decimal.Zero, fmt.Errorf("owner address missing")
	}
	data := make([]byte, 0, 4+32)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)

	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &USDCAddress, Data: data}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("usdc balanceOf(%s): %w", owner.Hex(), err)
	}
	if len(out) == 0 {
		return decimal.Zero, fmt.Errorf("usdc balanceOf returned empty result")
	}
	micros := new(big.Int).SetBytes(out)
	return decimal.NewFromBigInt(micros, -USDCDecimals), nil
}

// FetchUSDCBalance dials rpcURL for a single balance lookup.
func FetchUSDCBalance(ctx context.Context, rpcURL string, owner common.Address) (decimal.Decimal, error) {
	rpcURL = strings.TrimSpace(rpcURL)
	if rpcURL == "" {
		rpcURL = DefaultRPCURL
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("dial polygon RPC: %w", err)
	}
	defer client.Close()
	return USDCBalance(ctx, client, owner)
}
