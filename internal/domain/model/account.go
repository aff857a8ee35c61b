package model

import "crypto/ecdsa"

type KeyKind string

const (
	KeyMnemonic   KeyKind = "mnemonic"
	KeyPrivateKey KeyKind = "private_key"
)

// WalletKey is a secret the wallet derives accounts from.
type WalletKey struct {
	ID         string
	Kind       KeyKind
	Secret     string
	Passphrase string
}

// WalletAccount references one derivable account of a wallet key.
type WalletAccount struct {
	WalletKeyID  string `json:"walletKeyId"`
	AccountIndex uint32 `json:"accountIndex"`
}

// AccountVariation is a WalletAccount resolved to its ledger address.
type AccountVariation struct {
	WalletAccount
	HDPath  string `json:"hdPath,omitempty"`
	Address string `json:"address"`
}

type Wallet struct {
	PrivateKey *ecdsa.PrivateKey
	Address    string
	HDPath     string
}

type NetworkAddress struct {
	Network string `json:"network"`
	Address string `json:"address"`
}

type NetworkAddressTokens struct {
	NetworkAddress
	Tokens []string `json:"tokens"`
}
