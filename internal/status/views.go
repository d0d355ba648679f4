package status

import (
	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/gamestate"
	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/danmuck/ottdctl/internal/protocol/session"
)

type serverView struct {
	Session   string `json:"session"`
	Connected bool   `json:"connected"`
	Name      string `json:"name,omitempty"`
	Revision  string `json:"revision,omitempty"`
	Dedicated bool   `json:"dedicated"`
	Map       string `json:"map,omitempty"`
	Seed      uint32 `json:"seed,omitempty"`
	Landscape uint8  `json:"landscape"`
	StartDate string `json:"start_date,omitempty"`
	SizeX     uint16 `json:"size_x,omitempty"`
	SizeY     uint16 `json:"size_y,omitempty"`
	Date      string `json:"date,omitempty"`
	Clients   int    `json:"clients"`
	Companies int    `json:"companies"`
}

type clientView struct {
	ID        uint32 `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	Language  string `json:"language"`
	JoinDate  string `json:"join_date"`
	Company   int    `json:"company"`
	Spectator bool   `json:"spectator"`
}

type economyView struct {
	Money          int64  `json:"money"`
	Loan           int64  `json:"loan"`
	Income         int64  `json:"income"`
	DeliveredCargo uint16 `json:"delivered_cargo"`
	Value          int64  `json:"value"`
	Performance    uint16 `json:"performance"`
}

type statisticsView struct {
	Vehicles protocol.TransportCounts `json:"vehicles"`
	Stations protocol.TransportCounts `json:"stations"`
}

type companyView struct {
	// ID is one-based, as shown in game.
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	Manager    string          `json:"manager"`
	Colour     string          `json:"colour"`
	Passworded bool            `json:"passworded"`
	AI         bool            `json:"ai"`
	Clients    []uint32        `json:"clients"`
	Economy    *economyView    `json:"economy,omitempty"`
	Statistics *statisticsView `json:"statistics,omitempty"`
}

func serverViewOf(s gamestate.Snapshot, state session.State) serverView {
	v := serverView{
		Session:   state.String(),
		Connected: s.Connected,
		Clients:   len(s.Clients),
		Companies: len(s.Companies),
	}
	if s.HasDate {
		v.Date = s.Date.StorageString()
	}
	if info := s.Server; info != nil {
		v.Name = info.Name
		v.Revision = info.Revision
		v.Dedicated = info.Dedicated
		v.Map = info.Map
		v.Seed = info.Seed
		v.Landscape = info.Landscape
		v.StartDate = info.StartDate.StorageString()
		v.SizeX = info.SizeX
		v.SizeY = info.SizeY
	}
	return v
}

func clientViewsOf(clients []admin.ClientInfo) []clientView {
	out := make([]clientView, 0, len(clients))
	for _, c := range clients {
		v := clientView{
			ID:        c.ID,
			Name:      c.Name,
			Address:   c.Address,
			Language:  c.Language.Tag().String(),
			JoinDate:  c.JoinDate.StorageString(),
			Spectator: c.Spectating(),
		}
		if !c.Spectating() {
			v.Company = int(c.CompanyID) + 1
		}
		out = append(out, v)
	}
	return out
}

func companyViewsOf(s gamestate.Snapshot) []companyView {
	out := make([]companyView, 0, len(s.Companies))
	for _, company := range s.Companies {
		info := company.Info
		v := companyView{
			ID:         int(info.ID) + 1,
			Name:       info.Name,
			Manager:    info.Manager,
			Colour:     info.Colour.String(),
			Passworded: info.Passworded,
			AI:         info.AI,
			Clients:    []uint32{},
		}
		for _, c := range s.Clients {
			if c.CompanyID == info.ID {
				v.Clients = append(v.Clients, c.ID)
			}
		}
		if e := company.Economy; e != nil {
			v.Economy = &economyView{
				Money:          e.Money,
				Loan:           e.Loan,
				Income:         e.Income,
				DeliveredCargo: e.DeliveredCargo,
				Value:          e.Value(),
				Performance:    e.Performance(),
			}
		}
		if st := company.Statistics; st != nil {
			v.Statistics = &statisticsView{Vehicles: st.Vehicles, Stations: st.Stations}
		}
		out = append(out, v)
	}
	return out
}
