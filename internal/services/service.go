// Package services keeps the named runtime components of a process so the
// status API can report on them and trigger their actions.
package services

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrServiceNotFound = errors.New("services: service not found")
	ErrActionNotFound  = errors.New("services: action not found")
	ErrServiceExists   = errors.New("services: service already registered")
)

// Service is a runtime component with a status and optional actions.
type Service interface {
	Name() string
	Status() (any, error)
	Actions() map[string]Action
}

// Action runs one operation of a service and returns its output.
type Action func() (string, error)

// Registry stores services by name.
type Registry struct {
	mu   sync.RWMutex
	repo map[string]Service
}

func NewRegistry() *Registry {
	return &Registry{repo: make(map[string]Service)}
}

func (r *Registry) Register(s Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.repo[s.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrServiceExists, s.Name())
	}
	r.repo[s.Name()] = s
	return nil
}

func (r *Registry) Get(name string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.repo[name]
	return s, ok
}

// Info describes a registered service.
type Info struct {
	Name    string   `json:"name"`
	Actions []string `json:"actions"`
}

// List returns the services sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.repo))
	for name, s := range r.repo {
		actions := make([]string, 0, len(s.Actions()))
		for action := range s.Actions() {
			actions = append(actions, action)
		}
		sort.Strings(actions)
		out = append(out, Info{Name: name, Actions: actions})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Status returns the status of one service.
func (r *Registry) Status(name string) (any, error) {
	s, ok := r.Get(name)
	if !ok {
		return nil, ErrServiceNotFound
	}
	return s.Status()
}

// Execute runs an action of a service.
func (r *Registry) Execute(name, action string) (string, error) {
	s, ok := r.Get(name)
	if !ok {
		return "", ErrServiceNotFound
	}
	run, ok := s.Actions()[action]
	if !ok {
		return "", ErrActionNotFound
	}
	out, err := run()
	if err != nil {
		log.Error().Str("service", name).Str("action", action).Err(err).Msg("service action failed")
		return "", err
	}
	log.Info().Str("service", name).Str("action", action).Msg("service action executed")
	return out, nil
}

// Func builds a Service from closures.
type Func struct {
	ServiceName string
	StatusFunc  func() (any, error)
	ActionSet   map[string]Action
}

func (f Func) Name() string { return f.ServiceName }

func (f Func) Status() (any, error) {
	if f.StatusFunc == nil {
		return "ok", nil
	}
	return f.StatusFunc()
}

func (f Func) Actions() map[string]Action {
	if f.ActionSet == nil {
		return map[string]Action{}
	}
	return f.ActionSet
}
