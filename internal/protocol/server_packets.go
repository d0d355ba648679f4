package protocol

import "github.com/danmuck/ottdctl/internal/protocol/wire"

type ServerFull struct{}

func (ServerFull) Type() PacketType           { return TypeServerFull }
func (ServerFull) encode(*wire.Writer, uint8) {}

type ServerBanned struct{}

func (ServerBanned) Type() PacketType           { return TypeServerBanned }
func (ServerBanned) encode(*wire.Writer, uint8) {}

type ServerError struct {
	Code ErrorCode
}

func (ServerError) Type() PacketType { return TypeServerError }

func (p ServerError) encode(w *wire.Writer, _ uint8) {
	w.U8(uint8(p.Code))
}

// UpdateSupport is one advertised (update type, allowed frequencies) pair.
type UpdateSupport struct {
	Update      UpdateType
	Frequencies Frequency
}

type ServerProtocol struct {
	Version uint8
	Updates []UpdateSupport
}

func (ServerProtocol) Type() PacketType { return TypeServerProtocol }

func (p ServerProtocol) encode(w *wire.Writer, _ uint8) {
	w.U8(p.Version)
	for _, u := range p.Updates {
		w.Bool(true)
		w.U16(uint16(u.Update))
		w.U16(uint16(u.Frequencies))
	}
	w.Bool(false)
}

type ServerWelcome struct {
	Name      string
	Revision  string
	Dedicated bool
	Map       string
	Seed      uint32
	Landscape uint8
	StartDate uint32
	SizeX     uint16
	SizeY     uint16
}

func (ServerWelcome) Type() PacketType { return TypeServerWelcome }

func (p ServerWelcome) encode(w *wire.Writer, _ uint8) {
	w.String(p.Name, 0)
	w.String(p.Revision, 0)
	w.Bool(p.Dedicated)
	w.String(p.Map, 0)
	w.U32(p.Seed)
	w.U8(p.Landscape)
	w.U32(p.StartDate)
	w.U16(p.SizeX)
	w.U16(p.SizeY)
}

type ServerNewGame struct{}

func (ServerNewGame) Type() PacketType           { return TypeServerNewGame }
func (ServerNewGame) encode(*wire.Writer, uint8) {}

type ServerShutdown struct{}

func (ServerShutdown) Type() PacketType           { return TypeServerShutdown }
func (ServerShutdown) encode(*wire.Writer, uint8) {}

type ServerDate struct {
	Date uint32
}

func (ServerDate) Type() PacketType { return TypeServerDate }

func (p ServerDate) encode(w *wire.Writer, _ uint8) {
	w.U32(p.Date)
}

type ServerClientJoin struct {
	ClientID uint32
}

func (ServerClientJoin) Type() PacketType { return TypeServerClientJoin }

func (p ServerClientJoin) encode(w *wire.Writer, _ uint8) {
	w.U32(p.ClientID)
}

type ServerClientInfo struct {
	ClientID  uint32
	Address   string
	Name      string
	Language  Language
	JoinDate  uint32
	CompanyID uint8
}

func (ServerClientInfo) Type() PacketType { return TypeServerClientInfo }

func (p ServerClientInfo) encode(w *wire.Writer, _ uint8) {
	w.U32(p.ClientID)
	w.String(p.Address, 0)
	w.String(p.Name, 0)
	w.U8(uint8(p.Language))
	w.U32(p.JoinDate)
	w.U8(p.CompanyID)
}

type ServerClientUpdate struct {
	ClientID  uint32
	Name      string
	CompanyID uint8
}

func (ServerClientUpdate) Type() PacketType { return TypeServerClientUpdate }

func (p ServerClientUpdate) encode(w *wire.Writer, _ uint8) {
	w.U32(p.ClientID)
	w.String(p.Name, 0)
	w.U8(p.CompanyID)
}

type ServerClientQuit struct {
	ClientID uint32
}

func (ServerClientQuit) Type() PacketType { return TypeServerClientQuit }

func (p ServerClientQuit) encode(w *wire.Writer, _ uint8) {
	w.U32(p.ClientID)
}

type ServerClientError struct {
	ClientID uint32
	Code     ErrorCode
}

func (ServerClientError) Type() PacketType { return TypeServerClientError }

func (p ServerClientError) encode(w *wire.Writer, _ uint8) {
	w.U32(p.ClientID)
	w.U8(uint8(p.Code))
}

type ServerCompanyNew struct {
	CompanyID uint8
}

func (ServerCompanyNew) Type() PacketType { return TypeServerCompanyNew }

func (p ServerCompanyNew) encode(w *wire.Writer, _ uint8) {
	w.U8(p.CompanyID)
}

// Shares holds the four 25% share owners sent by protocol versions below 3.
type Shares [4]uint8

// sharesPresent reports whether a session at version carries share bytes.
func sharesPresent(version uint8) bool {
	return version < 3
}

type ServerCompanyInfo struct {
	CompanyID        uint8
	Name             string
	Manager          string
	Colour           Colour
	Passworded       bool
	Inaugurated      uint32
	AI               bool
	BankruptQuarters uint8
	HasShares        bool
	Shares           Shares
}

func (ServerCompanyInfo) Type() PacketType { return TypeServerCompanyInfo }

func (p ServerCompanyInfo) encode(w *wire.Writer, version uint8) {
	w.U8(p.CompanyID)
	w.String(p.Name, 0)
	w.String(p.Manager, 0)
	w.U8(uint8(p.Colour))
	w.Bool(p.Passworded)
	w.U32(p.Inaugurated)
	w.Bool(p.AI)
	w.U8(p.BankruptQuarters)
	if sharesPresent(version) {
		for _, s := range p.Shares {
			w.U8(s)
		}
	}
}

type ServerCompanyUpdate struct {
	CompanyID        uint8
	Name             string
	Manager          string
	Colour           Colour
	Passworded       bool
	BankruptQuarters uint8
	HasShares        bool
	Shares           Shares
}

func (ServerCompanyUpdate) Type() PacketType { return TypeServerCompanyUpdate }

func (p ServerCompanyUpdate) encode(w *wire.Writer, version uint8) {
	w.U8(p.CompanyID)
	w.String(p.Name, 0)
	w.String(p.Manager, 0)
	w.U8(uint8(p.Colour))
	w.Bool(p.Passworded)
	w.U8(p.BankruptQuarters)
	if sharesPresent(version) {
		for _, s := range p.Shares {
			w.U8(s)
		}
	}
}

type ServerCompanyRemove struct {
	CompanyID uint8
	Reason    RemoveReason
}

func (ServerCompanyRemove) Type() PacketType { return TypeServerCompanyRemove }

func (p ServerCompanyRemove) encode(w *wire.Writer, _ uint8) {
	w.U8(p.CompanyID)
	w.U8(uint8(p.Reason))
}

// QuarterEconomy is one historic quarter of company performance.
type QuarterEconomy struct {
	Value          int64
	Performance    uint16
	DeliveredCargo uint16
}

type ServerCompanyEconomy struct {
	CompanyID      uint8
	Money          int64
	Loan           int64
	Income         int64
	DeliveredCargo uint16
	History        [2]QuarterEconomy
}

func (ServerCompanyEconomy) Type() PacketType { return TypeServerCompanyEconomy }

func (p ServerCompanyEconomy) encode(w *wire.Writer, _ uint8) {
	w.U8(p.CompanyID)
	w.I64(p.Money)
	w.I64(p.Loan)
	w.I64(p.Income)
	w.U16(p.DeliveredCargo)
	for _, q := range p.History {
		w.I64(q.Value)
		w.U16(q.Performance)
		w.U16(q.DeliveredCargo)
	}
}

// TransportCounts is a per-transport-mode tally of vehicles or stations.
type TransportCounts struct {
	Trains  uint16
	Lorries uint16
	Buses   uint16
	Planes  uint16
	Ships   uint16
}

func (c TransportCounts) encode(w *wire.Writer) {
	w.U16(c.Trains)
	w.U16(c.Lorries)
	w.U16(c.Buses)
	w.U16(c.Planes)
	w.U16(c.Ships)
}

func decodeTransportCounts(r *wire.Reader) TransportCounts {
	return TransportCounts{
		Trains:  r.U16(),
		Lorries: r.U16(),
		Buses:   r.U16(),
		Planes:  r.U16(),
		Ships:   r.U16(),
	}
}

// Total sums every mode.
func (c TransportCounts) Total() int {
	return int(c.Trains) + int(c.Lorries) + int(c.Buses) + int(c.Planes) + int(c.Ships)
}

type ServerCompanyStats struct {
	CompanyID uint8
	Vehicles  TransportCounts
	Stations  TransportCounts
}

func (ServerCompanyStats) Type() PacketType { return TypeServerCompanyStats }

func (p ServerCompanyStats) encode(w *wire.Writer, _ uint8) {
	w.U8(p.CompanyID)
	p.Vehicles.encode(w)
	p.Stations.encode(w)
}

type ServerChat struct {
	Action   NetworkAction
	Dest     DestType
	ClientID uint32
	Message  string
	Data     uint32
}

func (ServerChat) Type() PacketType { return TypeServerChat }

func (p ServerChat) encode(w *wire.Writer, _ uint8) {
	w.U8(uint8(p.Action))
	w.U8(uint8(p.Dest))
	w.U32(p.ClientID)
	w.String(p.Message, ChatLength)
	w.U32(p.Data)
}

type ServerRcon struct {
	Colour TextColour
	Result string
}

func (ServerRcon) Type() PacketType { return TypeServerRcon }

func (p ServerRcon) encode(w *wire.Writer, _ uint8) {
	w.U16(uint16(p.Colour))
	w.String(p.Result, 0)
}

type ServerConsole struct {
	Origin  string
	Message string
}

func (ServerConsole) Type() PacketType { return TypeServerConsole }

func (p ServerConsole) encode(w *wire.Writer, _ uint8) {
	w.String(p.Origin, 0)
	w.String(p.Message, 0)
}

// CommandName maps a DoCommand id to its name.
type CommandName struct {
	ID   uint16
	Name string
}

type ServerCmdNames struct {
	Commands []CommandName
}

func (ServerCmdNames) Type() PacketType { return TypeServerCmdNames }

func (p ServerCmdNames) encode(w *wire.Writer, _ uint8) {
	for _, c := range p.Commands {
		w.Bool(true)
		w.U16(c.ID)
		w.String(c.Name, 0)
	}
	w.Bool(false)
}

type ServerCmdLogging struct {
	ClientID  uint32
	CompanyID uint8
	CommandID uint16
	P1        uint32
	P2        uint32
	Tile      uint32
	Text      string
	Frame     uint32
}

func (ServerCmdLogging) Type() PacketType { return TypeServerCmdLogging }

func (p ServerCmdLogging) encode(w *wire.Writer, _ uint8) {
	w.U32(p.ClientID)
	w.U8(p.CompanyID)
	w.U16(p.CommandID)
	w.U32(p.P1)
	w.U32(p.P2)
	w.U32(p.Tile)
	w.String(p.Text, 0)
	w.U32(p.Frame)
}

type ServerGamescript struct {
	JSON string
}

func (ServerGamescript) Type() PacketType { return TypeServerGamescript }

func (p ServerGamescript) encode(w *wire.Writer, _ uint8) {
	w.String(p.JSON, GamescriptJSONLength)
}

type ServerRconEnd struct {
	Command string
}

func (ServerRconEnd) Type() PacketType { return TypeServerRconEnd }

func (p ServerRconEnd) encode(w *wire.Writer, _ uint8) {
	w.String(p.Command, 0)
}

type ServerPong struct {
	Payload uint32
}

func (ServerPong) Type() PacketType { return TypeServerPong }

func (p ServerPong) encode(w *wire.Writer, _ uint8) {
	w.U32(p.Payload)
}
