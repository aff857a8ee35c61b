package model

// Client notification names.
const (
	EventAccountAssetsChanged = "tronAccountAssetsChanged"
	EventAddressChanged       = "tronAddressChanged"
	EventNetworkNameChanged   = "tronNetworkNameChanged"
	EventConnectedChanged     = "tronConnectedStateChanged"
)

// AccountAssetsChanged carries an incremental balance update for one (network, address).
type AccountAssetsChanged struct {
	Address string `json:"address"`
	Network string `json:"network"`
	Tokens  Delta  `json:"tokens"`
}
