package protocol

import "github.com/danmuck/ottdctl/internal/protocol/wire"

type decodeFunc func(r *wire.Reader, version uint8) Packet

// registry maps every known wire type id to its decoder. Outbound packets
// are registered too so fakes and tests can parse what the client sends.
var registry = map[PacketType]decodeFunc{
	TypeAdminJoin: func(r *wire.Reader, _ uint8) Packet {
		return Join{Password: r.String(), Name: r.String(), Version: r.String()}
	},
	TypeAdminQuit: func(*wire.Reader, uint8) Packet { return Quit{} },
	TypeAdminUpdateFrequency: func(r *wire.Reader, _ uint8) Packet {
		return UpdateFrequency{Update: UpdateType(r.U16()), Frequency: Frequency(r.U16())}
	},
	TypeAdminPoll: func(r *wire.Reader, _ uint8) Packet {
		return Poll{Update: UpdateType(r.U8()), Param: r.U32()}
	},
	TypeAdminChat: func(r *wire.Reader, _ uint8) Packet {
		return Chat{Action: NetworkAction(r.U8()), Dest: DestType(r.U8()), DestID: r.U32(), Text: r.String()}
	},
	TypeAdminRcon:       func(r *wire.Reader, _ uint8) Packet { return Rcon{Command: r.String()} },
	TypeAdminGamescript: func(r *wire.Reader, _ uint8) Packet { return Gamescript{JSON: r.String()} },
	TypeAdminPing:       func(r *wire.Reader, _ uint8) Packet { return Ping{Payload: r.U32()} },
	TypeAdminExternalChat: func(r *wire.Reader, _ uint8) Packet {
		return ExternalChat{Source: r.String(), Colour: TextColour(r.U16()), User: r.String(), Message: r.String()}
	},

	TypeServerFull:     func(*wire.Reader, uint8) Packet { return ServerFull{} },
	TypeServerBanned:   func(*wire.Reader, uint8) Packet { return ServerBanned{} },
	TypeServerError:    func(r *wire.Reader, _ uint8) Packet { return ServerError{Code: ErrorCode(r.U8())} },
	TypeServerProtocol: decodeServerProtocol,
	TypeServerWelcome: func(r *wire.Reader, _ uint8) Packet {
		return ServerWelcome{
			Name:      r.String(),
			Revision:  r.String(),
			Dedicated: r.Bool(),
			Map:       r.String(),
			Seed:      r.U32(),
			Landscape: r.U8(),
			StartDate: r.U32(),
			SizeX:     r.U16(),
			SizeY:     r.U16(),
		}
	},
	TypeServerNewGame:    func(*wire.Reader, uint8) Packet { return ServerNewGame{} },
	TypeServerShutdown:   func(*wire.Reader, uint8) Packet { return ServerShutdown{} },
	TypeServerDate:       func(r *wire.Reader, _ uint8) Packet { return ServerDate{Date: r.U32()} },
	TypeServerClientJoin: func(r *wire.Reader, _ uint8) Packet { return ServerClientJoin{ClientID: r.U32()} },
	TypeServerClientInfo: func(r *wire.Reader, _ uint8) Packet {
		return ServerClientInfo{
			ClientID:  r.U32(),
			Address:   r.String(),
			Name:      r.String(),
			Language:  Language(r.U8()),
			JoinDate:  r.U32(),
			CompanyID: r.U8(),
		}
	},
	TypeServerClientUpdate: func(r *wire.Reader, _ uint8) Packet {
		return ServerClientUpdate{ClientID: r.U32(), Name: r.String(), CompanyID: r.U8()}
	},
	TypeServerClientQuit: func(r *wire.Reader, _ uint8) Packet { return ServerClientQuit{ClientID: r.U32()} },
	TypeServerClientError: func(r *wire.Reader, _ uint8) Packet {
		return ServerClientError{ClientID: r.U32(), Code: ErrorCode(r.U8())}
	},
	TypeServerCompanyNew:    func(r *wire.Reader, _ uint8) Packet { return ServerCompanyNew{CompanyID: r.U8()} },
	TypeServerCompanyInfo:   decodeServerCompanyInfo,
	TypeServerCompanyUpdate: decodeServerCompanyUpdate,
	TypeServerCompanyRemove: func(r *wire.Reader, _ uint8) Packet {
		return ServerCompanyRemove{CompanyID: r.U8(), Reason: RemoveReason(r.U8())}
	},
	TypeServerCompanyEconomy: decodeServerCompanyEconomy,
	TypeServerCompanyStats: func(r *wire.Reader, _ uint8) Packet {
		p := ServerCompanyStats{CompanyID: r.U8()}
		p.Vehicles = decodeTransportCounts(r)
		p.Stations = decodeTransportCounts(r)
		return p
	},
	TypeServerChat: func(r *wire.Reader, _ uint8) Packet {
		return ServerChat{
			Action:   NetworkAction(r.U8()),
			Dest:     DestType(r.U8()),
			ClientID: r.U32(),
			Message:  r.String(),
			Data:     r.U32(),
		}
	},
	TypeServerRcon: func(r *wire.Reader, _ uint8) Packet {
		return ServerRcon{Colour: TextColour(r.U16()), Result: r.String()}
	},
	TypeServerConsole: func(r *wire.Reader, _ uint8) Packet {
		return ServerConsole{Origin: r.String(), Message: r.String()}
	},
	TypeServerCmdNames: decodeServerCmdNames,
	TypeServerCmdLogging: func(r *wire.Reader, _ uint8) Packet {
		return ServerCmdLogging{
			ClientID:  r.U32(),
			CompanyID: r.U8(),
			CommandID: r.U16(),
			P1:        r.U32(),
			P2:        r.U32(),
			Tile:      r.U32(),
			Text:      r.String(),
			Frame:     r.U32(),
		}
	},
	TypeServerGamescript: func(r *wire.Reader, _ uint8) Packet { return ServerGamescript{JSON: r.String()} },
	TypeServerRconEnd:    func(r *wire.Reader, _ uint8) Packet { return ServerRconEnd{Command: r.String()} },
	TypeServerPong:       func(r *wire.Reader, _ uint8) Packet { return ServerPong{Payload: r.U32()} },
}

func decodeServerProtocol(r *wire.Reader, _ uint8) Packet {
	p := ServerProtocol{Version: r.U8()}
	for r.Err() == nil && r.Bool() {
		p.Updates = append(p.Updates, UpdateSupport{
			Update:      UpdateType(r.U16()),
			Frequencies: Frequency(r.U16()),
		})
	}
	return p
}

func decodeServerCmdNames(r *wire.Reader, _ uint8) Packet {
	var p ServerCmdNames
	for r.Err() == nil && r.Bool() {
		p.Commands = append(p.Commands, CommandName{ID: r.U16(), Name: r.String()})
	}
	return p
}

func decodeShares(r *wire.Reader, version uint8) (bool, Shares) {
	var s Shares
	if !sharesPresent(version) {
		return false, s
	}
	for i := range s {
		s[i] = r.U8()
	}
	return true, s
}

func decodeServerCompanyInfo(r *wire.Reader, version uint8) Packet {
	p := ServerCompanyInfo{
		CompanyID:        r.U8(),
		Name:             r.String(),
		Manager:          r.String(),
		Colour:           Colour(r.U8()),
		Passworded:       r.Bool(),
		Inaugurated:      r.U32(),
		AI:               r.Bool(),
		BankruptQuarters: r.U8(),
	}
	p.HasShares, p.Shares = decodeShares(r, version)
	return p
}

func decodeServerCompanyUpdate(r *wire.Reader, version uint8) Packet {
	p := ServerCompanyUpdate{
		CompanyID:        r.U8(),
		Name:             r.String(),
		Manager:          r.String(),
		Colour:           Colour(r.U8()),
		Passworded:       r.Bool(),
		BankruptQuarters: r.U8(),
	}
	p.HasShares, p.Shares = decodeShares(r, version)
	return p
}

func decodeServerCompanyEconomy(r *wire.Reader, _ uint8) Packet {
	p := ServerCompanyEconomy{
		CompanyID:      r.U8(),
		Money:          r.I64(),
		Loan:           r.I64(),
		Income:         r.I64(),
		DeliveredCargo: r.U16(),
	}
	for i := range p.History {
		p.History[i] = QuarterEconomy{
			Value:          r.I64(),
			Performance:    r.U16(),
			DeliveredCargo: r.U16(),
		}
	}
	return p
}

// Known reports whether t has a registered decoder.
func Known(t PacketType) bool {
	_, ok := registry[t]
	return ok
}
