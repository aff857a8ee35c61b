package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ohmynofan/tron-assets/internal/config"
	"github.com/ohmynofan/tron-assets/pkg/utils"
)

const (
	owner = "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8"
	usdt  = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

type fakeBackend struct {
	balance *big.Int
	out     []byte
	err     error
	lastMsg ethereum.CallMsg
	account common.Address
	closed  bool
}

func (f *fakeBackend) BalanceAt(ctx context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	f.account = account
	return f.balance, f.err
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.lastMsg = msg
	return f.out, f.err
}

func (f *fakeBackend) Close() { f.closed = true }

func TestNativeBalance(t *testing.T) {
	fb := &fakeBackend{balance: big.NewInt(2_000_000)}
	c := NewWithBackend(config.TronNile, fb)

	got, err := c.NativeBalance(context.Background(), owner)
	if err != nil {
		t.Fatalf("native: %v", err)
	}
	if got.Int64() != 2_000_000 {
		t.Fatalf("balance = %s", got)
	}
	want, _ := utils.TronToEthAddress(owner)
	if fb.account != want {
		t.Fatalf("queried %s, want %s", fb.account.Hex(), want.Hex())
	}
}

func TestNativeBalanceRejectsBadAddress(t *testing.T) {
	c := NewWithBackend(config.TronNile, &fakeBackend{})
	if _, err := c.NativeBalance(context.Background(), "not-an-address"); err == nil {
		t.Fatal("expected an address error")
	}
}

func TestTokenBalance(t *testing.T) {
	packed, err := trc20.Methods["balanceOf"].Outputs.Pack(big.NewInt(123456))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	fb := &fakeBackend{out: packed}
	c := NewWithBackend(config.TronMainnet, fb)

	got, err := c.TokenBalance(context.Background(), owner, usdt)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if got.Int64() != 123456 {
		t.Fatalf("balance = %s", got)
	}

	tokenAddr, _ := utils.TronToEthAddress(usdt)
	if fb.lastMsg.To == nil || *fb.lastMsg.To != tokenAddr {
		t.Fatalf("call target = %v", fb.lastMsg.To)
	}
	selector := trc20.Methods["balanceOf"].ID
	if !bytes.HasPrefix(fb.lastMsg.Data, selector) {
		t.Fatalf("calldata %x lacks selector %x", fb.lastMsg.Data, selector)
	}
}

func TestTokenBalanceErrors(t *testing.T) {
	c := NewWithBackend(config.TronMainnet, &fakeBackend{err: errors.New("rpc down")})
	if _, err := c.TokenBalance(context.Background(), owner, usdt); err == nil {
		t.Fatal("expected rpc error")
	}

	c = NewWithBackend(config.TronMainnet, &fakeBackend{})
	if _, err := c.TokenBalance(context.Background(), owner, usdt); err == nil {
		t.Fatal("expected unpack error for empty result")
	}
}

func TestCloseOnlyOwnedBackend(t *testing.T) {
	fb := &fakeBackend{}
	NewWithBackend(config.TronMainnet, fb).Close()
	if fb.closed {
		t.Fatal("borrowed backend closed")
	}
}
