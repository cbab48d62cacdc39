package wallet

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type fakeCaller struct {
	out  []byte
	err  error
	call ethereum.CallMsg
}

func (f *fakeCaller) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.call = call
	return f.out, f.err
}

func TestUSDCBalanceScalesMicros(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	fake := &fakeCaller{out: common.LeftPadBytes(big.NewInt(12_345_678).Bytes(), 32)}

	bal, err := USDCBalance(context.Background(), fake, owner)
	if err != nil {
		t.Fatalf("USDCBalance: %v", err)
	}
	if !bal.Equal(decimal.RequireFromString("12.345678")) {
		t.Fatalf("unexpected balance %s", bal)
	}
	if fake.call.To == nil || *fake.call.To != USDCAddress {
		t.Fatalf("call must target the USDC contract")
	}
	if len(fake.call.Data) != 36 || !bytes.Equal(fake.call.Data[:4], balanceOfSelector) {
		t.Fatalf("unexpected calldata %x", fake.call.Data)
	}
	if !bytes.Equal(fake.call.Data[4:], common.LeftPadBytes(owner.Bytes(), 32)) {
		t.Fatalf("owner not encoded in calldata")
	}
}

func TestUSDCBalanceErrors(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	if _, err := USDCBalance(context.Background(), &fakeCaller{err: errors.New("rpc down")}, owner); err == nil {
		t.Fatalf("expected rpc error")
	}
	if _, err := USDCBalance(context.Background(), &fakeCaller{}, owner); err == nil {
		t.Fatalf("expected empty result error")
	}
	if _, err := USDCBalance(context.Background(), &fakeCaller{}, common.Address{}); err == nil {
		t.Fatalf("expected owner error")
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := ParseAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"); err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if _, err := ParseAddress("not-an-address"); err == nil {
		t.Fatalf("expected error")
	}
}
