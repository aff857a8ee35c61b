package app

import (
	"github.com/ohmynofan/tron-assets/internal/clients"
	"github.com/ohmynofan/tron-assets/internal/config"
	"github.com/ohmynofan/tron-assets/internal/domain/model"
	"github.com/ohmynofan/tron-assets/internal/platform/ui"
	"github.com/ohmynofan/tron-assets/pkg/utils"
)

// renderAssets mirrors balance notifications into the terminal panels.
func renderAssets(msg clients.Message) {
	if msg.Event != model.EventAccountAssetsChanged {
		return
	}
	change, ok := msg.Payload.(model.AccountAssetsChanged)
	if !ok {
		return
	}
	ui.UpdateBalances(change.Network, change.Address, symbolOf(change.Network), balanceLines(change))
}

func symbolOf(networkName string) string {
	if n, ok := config.LookupNetwork(networkName); ok {
		return n.Symbol
	}
	return "TRX"
}

func balanceLines(change model.AccountAssetsChanged) map[string]*string {
	decimals := 6
	if n, ok := config.LookupNetwork(change.Network); ok {
		decimals = n.Decimals
	}

	out := make(map[string]*string, len(change.Tokens))
	for token, c := range change.Tokens {
		balance, ok := c.Balance()
		if !ok {
			out[token] = nil
			continue
		}
		line := "-"
		if balance.Value.IsSet() {
			line = balance.Value.String()
			if model.EqualFold(token, change.Address) {
				if formatted, err := utils.FormatHexUnits(line, decimals); err == nil {
					line = formatted
				}
			}
		}
		out[token] = &line
	}
	return out
}
