package admin

import (
	"github.com/danmuck/ottdctl/internal/gamedate"
	"github.com/danmuck/ottdctl/internal/protocol"
)

// SpectatorCompany is the company id of clients that are not playing.
const SpectatorCompany uint8 = 255

// ServerInfo is the Welcome snapshot.
type ServerInfo struct {
	Name      string
	Revision  string
	Dedicated bool
	Map       string
	Seed      uint32
	Landscape uint8
	StartDate gamedate.Date
	SizeX     uint16
	SizeY     uint16
}

func serverInfoFrom(p protocol.ServerWelcome) ServerInfo {
	return ServerInfo{
		Name:      p.Name,
		Revision:  p.Revision,
		Dedicated: p.Dedicated,
		Map:       p.Map,
		Seed:      p.Seed,
		Landscape: p.Landscape,
		StartDate: gamedate.FromDays(p.StartDate),
		SizeX:     p.SizeX,
		SizeY:     p.SizeY,
	}
}

type ClientInfo struct {
	ID        uint32
	Address   string
	Name      string
	Language  protocol.Language
	JoinDate  gamedate.Date
	CompanyID uint8
}

// Spectating reports whether the client has no company.
func (c ClientInfo) Spectating() bool { return c.CompanyID == SpectatorCompany }

func clientInfoFrom(p protocol.ServerClientInfo) ClientInfo {
	return ClientInfo{
		ID:        p.ClientID,
		Address:   p.Address,
		Name:      p.Name,
		Language:  p.Language,
		JoinDate:  gamedate.FromDays(p.JoinDate),
		CompanyID: p.CompanyID,
	}
}

// ClientUpdate is the delta sent when a client renames or switches company.
type ClientUpdate struct {
	ID        uint32
	Name      string
	CompanyID uint8
}

// CompanyInfo is either a full company snapshot or a delta update.
// Inaugurated and AI are only meaningful when Full is set.
type CompanyInfo struct {
	ID               uint8
	Name             string
	Manager          string
	Colour           protocol.Colour
	Passworded       bool
	BankruptQuarters uint8
	Full             bool
	Inaugurated      uint32
	AI               bool
	HasShares        bool
	Shares           protocol.Shares
}

func companyInfoFrom(p protocol.ServerCompanyInfo) CompanyInfo {
	return CompanyInfo{
		ID:               p.CompanyID,
		Name:             p.Name,
		Manager:          p.Manager,
		Colour:           p.Colour,
		Passworded:       p.Passworded,
		BankruptQuarters: p.BankruptQuarters,
		Full:             true,
		Inaugurated:      p.Inaugurated,
		AI:               p.AI,
		HasShares:        p.HasShares,
		Shares:           p.Shares,
	}
}

func companyUpdateFrom(p protocol.ServerCompanyUpdate) CompanyInfo {
	return CompanyInfo{
		ID:               p.CompanyID,
		Name:             p.Name,
		Manager:          p.Manager,
		Colour:           p.Colour,
		Passworded:       p.Passworded,
		BankruptQuarters: p.BankruptQuarters,
		HasShares:        p.HasShares,
		Shares:           p.Shares,
	}
}

// Merge applies a delta update onto a full snapshot, keeping the
// full-only fields.
func (c CompanyInfo) Merge(update CompanyInfo) CompanyInfo {
	if update.Full || !c.Full {
		return update
	}
	out := update
	out.Full = true
	out.Inaugurated = c.Inaugurated
	out.AI = c.AI
	return out
}

type CompanyEconomy struct {
	ID             uint8
	Money          int64
	Loan           int64
	Income         int64
	DeliveredCargo uint16
	History        [2]protocol.QuarterEconomy
}

// Value is the company value of the last finished quarter.
func (e CompanyEconomy) Value() int64 { return e.History[0].Value }

// Performance is the performance rating of the last finished quarter.
func (e CompanyEconomy) Performance() uint16 { return e.History[0].Performance }

func companyEconomyFrom(p protocol.ServerCompanyEconomy) CompanyEconomy {
	return CompanyEconomy{
		ID:             p.CompanyID,
		Money:          p.Money,
		Loan:           p.Loan,
		Income:         p.Income,
		DeliveredCargo: p.DeliveredCargo,
		History:        p.History,
	}
}

type CompanyStatistics struct {
	ID       uint8
	Vehicles protocol.TransportCounts
	Stations protocol.TransportCounts
}

// Recipient is who a chat message was addressed to.
type Recipient int

const (
	RecipientOther Recipient = iota
	RecipientAll
	RecipientCompany
	RecipientClient
)

func (r Recipient) String() string {
	switch r {
	case RecipientAll:
		return "all"
	case RecipientCompany:
		return "company"
	case RecipientClient:
		return "client"
	}
	return "other"
}

// ChatMessage is a chat line relayed by the server. ClientID is the sender.
type ChatMessage struct {
	Action    protocol.NetworkAction
	Dest      protocol.DestType
	Recipient Recipient
	ClientID  uint32
	Message   string
	Data      uint32
}

func chatMessageFrom(p protocol.ServerChat) ChatMessage {
	m := ChatMessage{
		Action:   p.Action,
		Dest:     p.Dest,
		ClientID: p.ClientID,
		Message:  p.Message,
		Data:     p.Data,
	}
	switch {
	case p.Action == protocol.ActionChat && p.Dest == protocol.DestBroadcast:
		m.Recipient = RecipientAll
	case p.Action == protocol.ActionChatCompany && p.Dest == protocol.DestTeam:
		m.Recipient = RecipientCompany
	case p.Action == protocol.ActionChatClient && p.Dest == protocol.DestClient:
		m.Recipient = RecipientClient
	}
	return m
}

// CommandLog is one logged DoCommand execution.
type CommandLog struct {
	ClientID  uint32
	CompanyID uint8
	CommandID uint16
	P1        uint32
	P2        uint32
	Tile      uint32
	Text      string
	Frame     uint32
}
