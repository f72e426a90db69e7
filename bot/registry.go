// Package bot contains the command registry and the router that turns inbound
// chat messages into handler invocations.
package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/manedatmane/manestream-bot/perms"
)

// HandlerFunc executes one command invocation.
type HandlerFunc func(ctx context.Context, inv *Invocation) error

// Command describes one built-in command.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	MinLevel    perms.Level
	// Cooldown is the default per-user cooldown; zero means none. A
	// COOLDOWN_<NAME> tunable overrides it at dispatch time.
	Cooldown time.Duration
	Hidden   bool
	Handler  HandlerFunc
}

// Set is a group of commands registered and removed together. Setup and
// Teardown run exactly once per transition.
type Set struct {
	Name     string
	Commands []Command
	Setup    func(ctx context.Context) error
	Teardown func(ctx context.Context) error
}

// Registry maps command names and aliases to handlers. Registration is
// explicit; there is no runtime discovery.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
	aliases  map[string]string
	sets     map[string]*Set
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
		sets:     make(map[string]*Set),
	}
}

// Register adds a command set, running its Setup hook first. Name or alias
// collisions with already-registered commands fail the whole set.
func (r *Registry) Register(ctx context.Context, set *Set) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sets[set.Name]; ok {
		return fmt.Errorf("command set %q already registered", set.Name)
	}
	// incoming tracks names claimed earlier in this same set, so an
	// intra-set duplicate fails instead of silently overwriting.
	incoming := make(map[string]struct{})
	claim := func(name string) error {
		if _, taken := r.commands[name]; taken {
			return fmt.Errorf("command %q already registered", name)
		}
		if _, taken := r.aliases[name]; taken {
			return fmt.Errorf("command %q collides with an alias", name)
		}
		if _, taken := incoming[name]; taken {
			return fmt.Errorf("command %q duplicated within set %q", name, set.Name)
		}
		incoming[name] = struct{}{}
		return nil
	}
	for i := range set.Commands {
		c := &set.Commands[i]
		if err := claim(strings.ToLower(c.Name)); err != nil {
			return err
		}
		for _, a := range c.Aliases {
			if err := claim(strings.ToLower(a)); err != nil {
				return err
			}
		}
	}

	if set.Setup != nil {
		if err := set.Setup(ctx); err != nil {
			return fmt.Errorf("setup %s: %w", set.Name, err)
		}
	}
	for i := range set.Commands {
		c := &set.Commands[i]
		name := strings.ToLower(c.Name)
		r.commands[name] = c
		for _, a := range c.Aliases {
			r.aliases[strings.ToLower(a)] = name
		}
	}
	r.sets[set.Name] = set
	return nil
}

// Unregister removes a command set, running its Teardown hook after the
// commands are gone.
func (r *Registry) Unregister(ctx context.Context, setName string) error {
	r.mu.Lock()
	set, ok := r.sets[setName]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("command set %q not registered", setName)
	}
	for i := range set.Commands {
		c := &set.Commands[i]
		delete(r.commands, strings.ToLower(c.Name))
		for _, a := range c.Aliases {
			delete(r.aliases, strings.ToLower(a))
		}
	}
	delete(r.sets, setName)
	r.mu.Unlock()

	if set.Teardown != nil {
		if err := set.Teardown(ctx); err != nil {
			return fmt.Errorf("teardown %s: %w", setName, err)
		}
	}
	return nil
}

// Lookup resolves a command by name or alias, case-insensitively.
func (r *Registry) Lookup(name string) (*Command, bool) {
	name = strings.ToLower(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.commands[name]; ok {
		return c, true
	}
	if canonical, ok := r.aliases[name]; ok {
		return r.commands[canonical], true
	}
	return nil, false
}

// Reserved reports whether name is taken by a built-in command or alias.
func (r *Registry) Reserved(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// List returns visible commands available at the given level, sorted by name.
func (r *Registry) List(level perms.Level, includeHidden bool) []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, 0, len(r.commands))
	for _, c := range r.commands {
		if c.Hidden && !includeHidden {
			continue
		}
		if c.MinLevel > level {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
