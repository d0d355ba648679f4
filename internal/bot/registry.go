package bot

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrCommandExists  = errors.New("bot: command already registered")
	ErrCommandNil     = errors.New("bot: command handler is nil")
	ErrInvalidCommand = errors.New("bot: invalid command name")
)

// Handler runs one command. Errors are logged; the user gets no reply
// unless the handler sends one.
type Handler func(b *Bot, req Request) error

// Command is a chat command such as "!who".
type Command struct {
	// Name without the leading "!".
	Name    string
	Aliases []string
	Usage   string
	Summary string
	Run     Handler
}

// Registry stores commands by name and alias.
type Registry struct {
	items map[string]*Command
	names []string
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*Command)}
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
			return false
		}
	}
	return true
}

// Register adds cmd under its name and aliases.
func (r *Registry) Register(cmd Command) error {
	if cmd.Run == nil {
		return ErrCommandNil
	}
	keys := append([]string{cmd.Name}, cmd.Aliases...)
	for _, k := range keys {
		if !validName(k) {
			return fmt.Errorf("%w: %q", ErrInvalidCommand, k)
		}
		if _, ok := r.items[k]; ok {
			return fmt.Errorf("%w: %q", ErrCommandExists, k)
		}
	}
	c := cmd
	for _, k := range keys {
		r.items[k] = &c
	}
	r.names = append(r.names, cmd.Name)
	sort.Strings(r.names)
	return nil
}

// MustRegister is Register for static command tables.
func (r *Registry) MustRegister(cmd Command) {
	if err := r.Register(cmd); err != nil {
		panic(err)
	}
}

// Resolve returns the command for a name without "!".
func (r *Registry) Resolve(name string) (*Command, bool) {
	c, ok := r.items[strings.ToLower(name)]
	return c, ok
}

// List returns commands ordered by name.
func (r *Registry) List() []Command {
	out := make([]Command, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, *r.items[n])
	}
	return out
}
