package ui

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

var (
	multi    *pterm.MultiPrinter
	spinners = make(map[string]*pterm.SpinnerPrinter)
	panels   = make(map[string]*Panel)
	mu       sync.Mutex
)

// Panel is what the console shows for one (network, address).
type Panel struct {
	Network  string
	Address  string
	Symbol   string
	Balances map[string]string
	Status   string
	Updated  time.Time
}

func StartUISystem() {
	m, _ := pterm.DefaultMultiPrinter.Start()
	mu.Lock()
	multi = m
	mu.Unlock()
}

func StopUISystem() {
	mu.Lock()
	defer mu.Unlock()
	for _, s := range spinners {
		_ = s.Stop()
	}
	if multi != nil {
		_, _ = multi.Stop()
	}
	multi = nil
}

// UpdateStatus sets the status line of every panel owned by source, or of the header panel
// when no account panel exists yet.
func UpdateStatus(source, status string) {
	mu.Lock()
	defer mu.Unlock()
	if multi == nil {
		return
	}
	line := fmt.Sprintf("%s: %s", source, status)
	if len(panels) == 0 {
		render("status", &Panel{Status: line})
		return
	}
	for key, p := range panels {
		p.Status = line
		render(key, p)
	}
}

// UpdateBalances merges formatted balances into the panel of (network, address). A nil entry
// in balances removes that token from the panel.
func UpdateBalances(network, address, symbol string, balances map[string]*string) {
	mu.Lock()
	defer mu.Unlock()
	key := strings.ToLower(network) + "/" + address
	p, ok := panels[key]
	if !ok {
		p = &Panel{Network: network, Address: address, Symbol: symbol, Balances: map[string]string{}}
		panels[key] = p
	}
	for token, v := range balances {
		if v == nil {
			delete(p.Balances, token)
			continue
		}
		p.Balances[token] = *v
	}
	p.Updated = time.Now()
	if multi == nil {
		return
	}
	render(key, p)
}

// Snapshot returns a copy of the panel of (network, address).
func Snapshot(network, address string) (Panel, bool) {
	mu.Lock()
	defer mu.Unlock()
	p, ok := panels[strings.ToLower(network)+"/"+address]
	if !ok {
		return Panel{}, false
	}
	out := *p
	out.Balances = make(map[string]string, len(p.Balances))
	for k, v := range p.Balances {
		out.Balances[k] = v
	}
	return out, true
}

func render(key string, p *Panel) {
	content := FormatPanel(*p)
	if spinner, ok := spinners[key]; ok {
		spinner.UpdateText(content)
		return
	}
	spinner, _ := pterm.DefaultSpinner.
		WithWriter(multi.NewWriter()).
		WithRemoveWhenDone(false).
		Start(content)
	spinners[key] = spinner
}

func FormatPanel(p Panel) string {
	if p.Address == "" {
		return p.Status
	}
	return fmt.Sprintf(`
=============== %s ================
Address  : %s
Balances : %s

Status   : %s
Updated  : %s
===========================================`,
		defaultString(p.Network, "-"),
		p.Address,
		formatBalances(p),
		defaultString(p.Status, "WAITING"),
		formatUpdated(p.Updated))
}

func FormatDelay(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d H %02d M %02d S", h, m, s)
}

func formatUpdated(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s (%s ago)", t.Format("15:04:05"), FormatDelay(time.Since(t)))
}

func defaultString(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}

func formatBalances(p Panel) string {
	if len(p.Balances) == 0 {
		return "-"
	}
	tokens := make([]string, 0, len(p.Balances))
	for token := range p.Balances {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	var builder strings.Builder
	for _, token := range tokens {
		label := token
		if token == p.Address {
			label = p.Symbol
		}
		builder.WriteString(fmt.Sprintf("\n- %s : %s", label, p.Balances[token]))
	}
	return builder.String()
}
