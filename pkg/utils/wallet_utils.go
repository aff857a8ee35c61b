package utils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	bip32 "github.com/tyler-smith/go-bip32"
	bip39 "github.com/tyler-smith/go-bip39"
)

// TronHDPathFormat is the BIP-44 path for TRON (coin type 195).
const TronHDPathFormat = "m/44'/195'/0'/0/%d"

var pkRegex = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)

func ShortenAddress(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}

func DetermineType(input string) string {
	if IsMnemonic(input) {
		return "Secret Phrase"
	}
	if IsPrivateKey(input) {
		return "Private Key"
	}
	return "Unknown"
}
func IsMnemonic(input string) bool {
	return bip39.IsMnemonicValid(strings.TrimSpace(input))
}
func IsPrivateKey(input string) bool {
	data := strings.TrimPrefix(strings.TrimSpace(input), "0x")
	return pkRegex.MatchString(data)
}
func PrivateKeyFromHex(input string) (*ecdsa.PrivateKey, error) {
	data := strings.TrimPrefix(strings.TrimSpace(input), "0x")
	return crypto.HexToECDSA(data)
}

func TronHDPath(index uint32) string {
	return fmt.Sprintf(TronHDPathFormat, index)
}

// Derive walks hdPath from the BIP-39 seed of mnemonic and returns the private key and TRON
// address at that node.
func Derive(mnemonic, passphrase, hdPath string) (*ecdsa.PrivateKey, string, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, "", errors.New("invalid BIP-39 mnemonic")
	}
	path, err := accounts.ParseDerivationPath(hdPath)
	if err != nil {
		return nil, "", fmt.Errorf("invalid derivation path %q: %w", hdPath, err)
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, "", err
	}
	for _, idx := range path {
		key, err = key.NewChildKey(idx)
		if err != nil {
			return nil, "", err
		}
	}
	pk, err := crypto.ToECDSA(key.Key)
	if err != nil {
		return nil, "", err
	}
	return pk, AddressOf(pk), nil
}

// AddressOf returns the base58 TRON address of pk.
func AddressOf(pk *ecdsa.PrivateKey) string {
	return TronAddressFromEth(crypto.PubkeyToAddress(pk.PublicKey))
}

func ParseUnits(amount string, decimals int) (*big.Int, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, err
	}
	return value.Shift(int32(decimals)).BigInt(), nil
}

func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// FormatHexUnits formats a hex-encoded integer balance with the given decimals.
func FormatHexUnits(hexValue string, decimals int) (string, error) {
	v, ok := new(big.Int).SetString(strings.TrimPrefix(strings.TrimPrefix(hexValue, "0x"), "0X"), 16)
	if !ok {
		return "", fmt.Errorf("invalid hex amount %q", hexValue)
	}
	return FormatUnits(v, decimals), nil
}
