// Package perms classifies chat identities into permission levels.
package perms

import "github.com/manedatmane/manestream-bot/config"

// Level is an ordered permission level.
type Level int

const (
	Everyone Level = iota
	Admin
)

func (l Level) String() string {
	if l == Admin {
		return "admin"
	}
	return "everyone"
}

// DenialReply is the fixed reply for any permission failure. It is identical
// for every command so the set of admin-only commands never leaks.
const DenialReply = "You don't have permission to use this command."

// Resolver resolves a username to its level against the current tunables
// snapshot; admin-set swaps are picked up on the next resolve, never mid-check.
type Resolver struct {
	rt *config.Runtime
}

// NewResolver returns a Resolver reading from rt.
func NewResolver(rt *config.Runtime) *Resolver { return &Resolver{rt: rt} }

// LevelOf returns the user's permission level.
func (r *Resolver) LevelOf(username string) Level {
	if r.rt.Tunables().IsAdmin(username) {
		return Admin
	}
	return Everyone
}

// Allowed reports whether username meets the required minimum level.
func (r *Resolver) Allowed(username string, required Level) bool {
	return r.LevelOf(username) >= required
}
