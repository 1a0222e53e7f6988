package model

import "strings"

// Actor is the identity behind a request. Wallet is the actor id used for
// authorship and votes; UserID is 0 for wallet-header actors.
type Actor struct {
	UserID int64
	Wallet string
	State  string
}

// SameState reports whether the actor and a post author share a state.
// Comparison ignores case and surrounding space.
func (a *Actor) SameState(state *string) bool {
	if a == nil || state == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a.State), strings.TrimSpace(*state))
}
