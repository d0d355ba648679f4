package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/gamedate"
	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/spf13/cobra"
)

var (
	errWrongPassword = errors.New("server rejected the admin password")
	errServerFull    = errors.New("server has no free admin slot")
	errServerBanned  = errors.New("server banned this address")
	errServerShut    = errors.New("server shut down")
)

// oneShot collects the answers a single command waits for.
type oneShot struct {
	admin.BaseServerListener

	linesMu sync.Mutex
	lines   []string
	more    chan struct{}

	done  chan string
	pongs chan uint32
	dates chan gamedate.Date
	fail  chan error
}

func newOneShot() *oneShot {
	return &oneShot{
		more:  make(chan struct{}, 1),
		done:  make(chan string, 1),
		pongs: make(chan uint32, 1),
		dates: make(chan gamedate.Date, 1),
		fail:  make(chan error, 1),
	}
}

func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// RconResult keeps every line until takeLines collects it.
func (o *oneShot) RconResult(_ protocol.TextColour, line string) {
	o.linesMu.Lock()
	o.lines = append(o.lines, line)
	o.linesMu.Unlock()
	offer(o.more, struct{}{})
}

// takeLines returns the lines received so far and forgets them.
func (o *oneShot) takeLines() []string {
	o.linesMu.Lock()
	defer o.linesMu.Unlock()
	out := o.lines
	o.lines = nil
	return out
}

func (o *oneShot) RconFinished(command string) { offer(o.done, command) }
func (o *oneShot) Pong(payload uint32)         { offer(o.pongs, payload) }
func (o *oneShot) NewDate(date gamedate.Date)  { offer(o.dates, date) }
func (o *oneShot) WrongPassword()              { offer(o.fail, errWrongPassword) }
func (o *oneShot) ServerFull()                 { offer(o.fail, errServerFull) }
func (o *oneShot) ServerBanned()               { offer(o.fail, errServerBanned) }
func (o *oneShot) Shutdown()                   { offer(o.fail, errServerShut) }

// withClient connects with the loaded config, runs send once the client is
// started and hands the listener to wait. Queued commands go out when the
// session becomes active.
func withClient(cmd *cobra.Command, configPath string, timeout time.Duration, send func(*admin.Client) error, wait func(context.Context, *oneShot) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	client, err := admin.New(cfg.Admin)
	if err != nil {
		return err
	}
	shot := newOneShot()
	remove := client.AddServerListener(shot)
	defer remove()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Start(ctx); err != nil {
		return err
	}
	defer client.Close()
	if err := send(client); err != nil {
		return err
	}
	if err := wait(ctx, shot); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("no answer from %s within %s", cfg.Admin.Address, timeout)
		}
		return err
	}
	return nil
}
