package assets

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ohmynofan/tron-assets/internal/domain/model"
)

// Suspicious returns the saved tokens that a fresh remote observation contradicts: tokens
// missing from remote and tokens whose value differs. Tokens only present in remote are new
// follows and are not reported.
func Suspicious(saved, remote model.Balances) mapset.Set[string] {
	out := mapset.NewThreadUnsafeSet[string]()
	for token, savedBalance := range saved {
		remoteBalance, ok := remote[token]
		if !ok || !savedBalance.Value.Equal(remoteBalance.Value) {
			out.Add(token)
		}
	}
	return out
}

// withoutAddress drops every entry equal to address, ignoring case.
func withoutAddress(set mapset.Set[string], address string) mapset.Set[string] {
	out := mapset.NewThreadUnsafeSet[string]()
	set.Each(func(token string) bool {
		if !model.EqualFold(token, address) {
			out.Add(token)
		}
		return false
	})
	return out
}
