package utils

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"
)

// TronAddressPrefix is the version byte of mainnet/testnet TRON addresses.
const TronAddressPrefix byte = 0x41

func TronAddressFromEth(addr common.Address) string {
	return base58.CheckEncode(addr.Bytes(), TronAddressPrefix)
}

// TronToEthAddress accepts a base58check TRON address, a 21-byte "41…" hex address, or a
// 0x-prefixed 20-byte hex address.
func TronToEthAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		if !common.IsHexAddress(s) {
			return common.Address{}, fmt.Errorf("invalid hex address %q", s)
		}
		return common.HexToAddress(s), nil
	case len(s) == 42 && strings.HasPrefix(s, "41"):
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return common.Address{}, fmt.Errorf("invalid tron hex address %q: %w", s, err)
		}
		return common.BytesToAddress(b), nil
	}

	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid tron address %q: %w", s, err)
	}
	if version != TronAddressPrefix || len(payload) != common.AddressLength {
		return common.Address{}, fmt.Errorf("invalid tron address %q", s)
	}
	return common.BytesToAddress(payload), nil
}

func IsTronAddress(s string) bool {
	_, err := TronToEthAddress(s)
	return err == nil
}

// NormalizeTronAddress returns the base58 form of any accepted address encoding.
func NormalizeTronAddress(s string) (string, error) {
	addr, err := TronToEthAddress(s)
	if err != nil {
		return "", err
	}
	return TronAddressFromEth(addr), nil
}
