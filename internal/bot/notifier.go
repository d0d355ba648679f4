package bot

import (
	"context"
	"errors"
)

var ErrNoNotifier = errors.New("bot: no administrator channel configured")

// EventKind classifies notifications so sinks can filter them.
type EventKind int

const (
	EventAdminRequest EventKind = iota
	EventChat
	EventClient
	EventCompany
	EventServer
)

func (k EventKind) String() string {
	switch k {
	case EventAdminRequest:
		return "admin_request"
	case EventChat:
		return "chat"
	case EventClient:
		return "client"
	case EventCompany:
		return "company"
	case EventServer:
		return "server"
	}
	return "unknown"
}

// Notifier delivers text to the administrators.
type Notifier interface {
	Notify(ctx context.Context, kind EventKind, text string) error
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(ctx context.Context, kind EventKind, text string) error

func (f NotifierFunc) Notify(ctx context.Context, kind EventKind, text string) error {
	return f(ctx, kind, text)
}

// Filter drops every kind not enabled. Admin requests always pass.
type Filter struct {
	Next    Notifier
	Chat    bool
	Client  bool
	Company bool
	Server  bool
}

func (f Filter) Enabled(kind EventKind) bool {
	switch kind {
	case EventChat:
		return f.Chat
	case EventClient:
		return f.Client
	case EventCompany:
		return f.Company
	case EventServer:
		return f.Server
	}
	return true
}

func (f Filter) Notify(ctx context.Context, kind EventKind, text string) error {
	if f.Next == nil {
		return ErrNoNotifier
	}
	if !f.Enabled(kind) {
		return nil
	}
	return f.Next.Notify(ctx, kind, text)
}
