package session

import (
	"sync"

	"github.com/danmuck/ottdctl/internal/protocol"
)

// replayOrder is the fixed order in which subscriptions are re-sent.
var replayOrder = [...]protocol.UpdateType{
	protocol.UpdateDate,
	protocol.UpdateCompanyEconomy,
	protocol.UpdateCompanyStats,
	protocol.UpdateClientInfo,
	protocol.UpdateCompanyInfo,
	protocol.UpdateChat,
	protocol.UpdateConsole,
	protocol.UpdateCmdNames,
	protocol.UpdateCmdLogging,
	protocol.UpdateGamescript,
}

// ReplayOrder returns the update types in replay order.
func ReplayOrder() []protocol.UpdateType {
	out := make([]protocol.UpdateType, len(replayOrder))
	copy(out, replayOrder[:])
	return out
}

// DefaultFrequency is the protocol default for t: poll-only for
// informational updates, nothing for streams.
func DefaultFrequency(t protocol.UpdateType) protocol.Frequency {
	switch t {
	case protocol.UpdateChat, protocol.UpdateConsole, protocol.UpdateCmdLogging, protocol.UpdateGamescript:
		return protocol.FreqNone
	}
	return protocol.FreqPoll
}

// Subscriptions remembers the desired frequency per update type. It belongs
// to the client, not to a connection, so it outlives reconnects.
type Subscriptions struct {
	mu   sync.RWMutex
	freq map[protocol.UpdateType]protocol.Frequency
}

func NewSubscriptions() *Subscriptions {
	s := &Subscriptions{freq: make(map[protocol.UpdateType]protocol.Frequency, len(replayOrder))}
	for _, t := range replayOrder {
		s.freq[t] = DefaultFrequency(t)
	}
	return s
}

// Set records f for t and reports whether the stored value changed.
func (s *Subscriptions) Set(t protocol.UpdateType, f protocol.Frequency) (bool, error) {
	if !t.Valid() {
		return false, protocol.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.freq[t]; ok && cur == f {
		return false, nil
	}
	s.freq[t] = f
	return true, nil
}

func (s *Subscriptions) Get(t protocol.UpdateType) protocol.Frequency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.freq[t]
}

// ReplayAll returns one UpdateFrequency packet per update type, in replay
// order, carrying the most recently set values.
func (s *Subscriptions) ReplayAll() []protocol.UpdateFrequency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.UpdateFrequency, 0, len(replayOrder))
	for _, t := range replayOrder {
		out = append(out, protocol.UpdateFrequency{Update: t, Frequency: s.freq[t]})
	}
	return out
}
