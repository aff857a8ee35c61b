package config

import "strings"

const DefaultNetwork = "mainnet"

type Network struct {
	Name     string
	RPCURL   string
	APIURL   string
	Explorer string
	Symbol   string
	Decimals int
}

var TronMainnet = Network{
	Name:     "mainnet",
	RPCURL:   "https://api.trongrid.io/jsonrpc",
	APIURL:   "https://api.trongrid.io",
	Explorer: "https://tronscan.org/",
	Symbol:   "TRX",
	Decimals: 6,
}

var TronNile = Network{
	Name:     "nile",
	RPCURL:   "https://nile.trongrid.io/jsonrpc",
	APIURL:   "https://nile.trongrid.io",
	Explorer: "https://nile.tronscan.org/",
	Symbol:   "TRX",
	Decimals: 6,
}

var TronShasta = Network{
	Name:     "shasta",
	RPCURL:   "https://api.shasta.trongrid.io/jsonrpc",
	APIURL:   "https://api.shasta.trongrid.io",
	Explorer: "https://shasta.tronscan.org/",
	Symbol:   "TRX",
	Decimals: 6,
}

var Networks = []Network{TronMainnet, TronNile, TronShasta}

func LookupNetwork(name string) (Network, bool) {
	for _, n := range Networks {
		if strings.EqualFold(n.Name, strings.TrimSpace(name)) {
			return n, true
		}
	}
	return Network{}, false
}
