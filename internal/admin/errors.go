package admin

import "errors"

var (
	ErrAddressRequired = errors.New("admin: server address required")
	ErrAlreadyStarted  = errors.New("admin: client already started")
	ErrNotStarted      = errors.New("admin: client not started")
	ErrClosed          = errors.New("admin: client closed")
)
