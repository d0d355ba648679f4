package protocol

import (
	"github.com/danmuck/ottdctl/internal/protocol/frame"
	"github.com/danmuck/ottdctl/internal/protocol/wire"
)

// String field limits, terminator included.
const (
	PasswordLength       = 33
	ClientNameLength     = 25
	RevisionLength       = 33
	ChatLength           = 900
	RconCommandLength    = 500
	GamescriptJSONLength = 1457
)

// Packet is one decoded or to-be-encoded admin protocol message.
type Packet interface {
	Type() PacketType
	encode(w *wire.Writer, version uint8)
}

// Join authenticates the admin connection.
type Join struct {
	Password string
	Name     string
	Version  string
}

func (Join) Type() PacketType { return TypeAdminJoin }

func (p Join) encode(w *wire.Writer, _ uint8) {
	w.String(p.Password, PasswordLength)
	w.String(p.Name, ClientNameLength)
	w.String(p.Version, RevisionLength)
}

// Quit announces a graceful disconnect.
type Quit struct{}

func (Quit) Type() PacketType           { return TypeAdminQuit }
func (Quit) encode(*wire.Writer, uint8) {}

// UpdateFrequency subscribes to an update type at the given cadence.
type UpdateFrequency struct {
	Update    UpdateType
	Frequency Frequency
}

func (UpdateFrequency) Type() PacketType { return TypeAdminUpdateFrequency }

func (p UpdateFrequency) encode(w *wire.Writer, _ uint8) {
	w.U16(uint16(p.Update))
	w.U16(uint16(p.Frequency))
}

// Poll asks for an immediate update. Param selects a client or company
// where applicable.
type Poll struct {
	Update UpdateType
	Param  uint32
}

func (Poll) Type() PacketType { return TypeAdminPoll }

func (p Poll) encode(w *wire.Writer, _ uint8) {
	w.U8(uint8(p.Update))
	w.U32(p.Param)
}

type Chat struct {
	Action NetworkAction
	Dest   DestType
	DestID uint32
	Text   string
}

func (Chat) Type() PacketType { return TypeAdminChat }

func (p Chat) encode(w *wire.Writer, _ uint8) {
	w.U8(uint8(p.Action))
	w.U8(uint8(p.Dest))
	w.U32(p.DestID)
	w.String(p.Text, ChatLength)
}

type Rcon struct {
	Command string
}

func (Rcon) Type() PacketType { return TypeAdminRcon }

func (p Rcon) encode(w *wire.Writer, _ uint8) {
	w.String(p.Command, RconCommandLength)
}

type Gamescript struct {
	JSON string
}

func (Gamescript) Type() PacketType { return TypeAdminGamescript }

func (p Gamescript) encode(w *wire.Writer, _ uint8) {
	w.String(p.JSON, GamescriptJSONLength)
}

type Ping struct {
	Payload uint32
}

func (Ping) Type() PacketType { return TypeAdminPing }

func (p Ping) encode(w *wire.Writer, _ uint8) {
	w.U32(p.Payload)
}

// ExternalChat relays a message from another chat system into the game.
type ExternalChat struct {
	Source  string
	Colour  TextColour
	User    string
	Message string
}

func (ExternalChat) Type() PacketType { return TypeAdminExternalChat }

// encode shrinks the fields left to right so the frame always fits the MTU.
func (p ExternalChat) encode(w *wire.Writer, _ uint8) {
	room := int(frame.MTU - frame.HeaderLen)

	source := wire.Truncate(p.Source, min(ChatLength-1, room-5))
	room -= len(source) + 1 + 2
	user := wire.Truncate(p.User, min(ChatLength-1, room-2))
	room -= len(user) + 1
	message := wire.Truncate(p.Message, min(ChatLength-1, room-1))

	w.String(source, 0)
	w.U16(uint16(p.Colour))
	w.String(user, 0)
	w.String(message, 0)
}
