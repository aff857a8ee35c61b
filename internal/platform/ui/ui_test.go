package ui

import (
	"strings"
	"testing"
)

func TestUpdateBalancesWithoutPrinter(t *testing.T) {
	v := "1.5"
	UpdateBalances("Nile", "TAddr", "TRX", map[string]*string{"TAddr": &v, "TToken": &v})
	UpdateBalances("nile", "TAddr", "TRX", map[string]*string{"TToken": nil})
	UpdateStatus("Synchronizer", "refreshing")

	p, ok := Snapshot("NILE", "TAddr")
	if !ok {
		t.Fatalf("panel missing")
	}
	if len(p.Balances) != 1 || p.Balances["TAddr"] != "1.5" {
		t.Fatalf("balances = %v", p.Balances)
	}
	out := FormatPanel(p)
	if !strings.Contains(out, "- TRX : 1.5") {
		t.Fatalf("native balance not labelled with symbol:\n%s", out)
	}
}

func TestFormatDelay(t *testing.T) {
	if got := FormatDelay(3723e9); got != "01 H 02 M 03 S" {
		t.Fatalf("FormatDelay = %q", got)
	}
}
