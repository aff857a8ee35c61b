package http

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
)

type accountQuery struct {
	OnlyConfirmed bool `url:"only_confirmed"`
}

type accountResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		Address string              `json:"address"`
		TRC20   []map[string]string `json:"trc20"`
	} `json:"data"`
}

// AccountSnapshot holds the TRC20 holdings TronGrid reports for one account, keyed by
// contract address. Native TRX is read from the node instead.
type AccountSnapshot struct {
	TRC20 map[string]*big.Int
}

// TronGrid reads account state from the TronGrid REST API.
type TronGrid struct {
	api *APIClient
}

func NewTronGrid(api *APIClient) *TronGrid {
	return &TronGrid{api: api}
}

// Account returns the confirmed snapshot of address. An account unknown to the network
// yields an empty snapshot.
func (g *TronGrid) Account(ctx context.Context, address string) (AccountSnapshot, error) {
	scope := "[TronGrid.Account] Error :"
	var res accountResponse
	path := "/v1/accounts/" + url.PathEscape(address)
	if err := g.api.Fetch(ctx, path, &FetchOptions{Query: accountQuery{OnlyConfirmed: true}}, &res); err != nil {
		return AccountSnapshot{}, fmt.Errorf("%s %w", scope, err)
	}

	snap := AccountSnapshot{TRC20: map[string]*big.Int{}}
	if len(res.Data) == 0 {
		return snap, nil
	}
	for _, entry := range res.Data[0].TRC20 {
		for contract, raw := range entry {
			v, ok := new(big.Int).SetString(raw, 10)
			if !ok {
				return AccountSnapshot{}, fmt.Errorf("%s bad balance %q for %s", scope, raw, contract)
			}
			snap.TRC20[contract] = v
		}
	}
	return snap, nil
}
