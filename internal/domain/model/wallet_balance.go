package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Value is the cached balance of a token as a hex-encoded integer. The zero Value means the
// token is followed but has no priced balance yet.
type Value struct {
	hex string
	set bool
}

func Priced(hex string) Value { return Value{hex: hex, set: true} }

func Unpriced() Value { return Value{} }

func (v Value) IsSet() bool { return v.set }

// IsZero lets encoding/json drop unpriced values with omitzero.
func (v Value) IsZero() bool { return !v.set }

func (v Value) String() string { return v.hex }

// Equal compares hex strings exactly; two unpriced values are equal.
func (v Value) Equal(o Value) bool {
	return v.set == o.set && v.hex == o.hex
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(v.hex)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*v = Value{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*v = Priced(s)
	return nil
}

type TokenBalance struct {
	Value     Value `json:"value,omitzero"`
	Timestamp int64 `json:"timestamp"`
}

// Balances maps a token address to its cached balance. The account's own address stands
// for the native asset.
type Balances map[string]TokenBalance

func (b Balances) Clone() Balances {
	if b == nil {
		return nil
	}
	out := make(Balances, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Delta converts every entry into a Put change.
func (b Balances) Delta() Delta {
	d := make(Delta, len(b))
	for k, v := range b {
		d[k] = Put(v)
	}
	return d
}

type AccountAssets struct {
	Tokens Balances `json:"tokens,omitempty"`
}

// Change is a single entry of a Delta: either a balance to store or a removal.
type Change struct {
	balance TokenBalance
	remove  bool
}

func Put(b TokenBalance) Change { return Change{balance: b} }

func Remove() Change { return Change{remove: true} }

func (c Change) IsRemove() bool { return c.remove }

func (c Change) Balance() (TokenBalance, bool) {
	if c.remove {
		return TokenBalance{}, false
	}
	return c.balance, true
}

func (c Change) MarshalJSON() ([]byte, error) {
	if c.remove {
		return []byte("null"), nil
	}
	return json.Marshal(c.balance)
}

func (c *Change) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*c = Remove()
		return nil
	}
	var tb TokenBalance
	if err := json.Unmarshal(b, &tb); err != nil {
		return err
	}
	*c = Put(tb)
	return nil
}

// Delta is an incremental update of a Balances map.
type Delta map[string]Change

// Merge applies d onto dst and returns it, allocating dst when nil.
func (d Delta) Merge(dst Balances) Balances {
	if dst == nil {
		dst = Balances{}
	}
	for token, change := range d {
		if bal, ok := change.Balance(); ok {
			dst[token] = bal
		} else {
			delete(dst, token)
		}
	}
	return dst
}

func EqualFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
