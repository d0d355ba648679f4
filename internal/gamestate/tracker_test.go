package gamestate

import (
	"testing"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/gamedate"
	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/danmuck/ottdctl/internal/testutil/testlog"
)

func TestTrackerClientsAndCompanies(t *testing.T) {
	testlog.Start(t)
	tr := New()
	tr.Connected(protocol.SupportedVersion)
	tr.ServerInfoReceived(admin.ServerInfo{Name: "srv", StartDate: gamedate.FromDays(712223)})

	tr.ClientInfoReceived(admin.ClientInfo{ID: 1, Name: "server", CompanyID: admin.SpectatorCompany})
	tr.ClientInfoReceived(admin.ClientInfo{ID: 5, Name: "ann", CompanyID: 0})
	tr.ClientJoined(7)
	tr.ClientUpdated(admin.ClientUpdate{ID: 7, Name: "bob", CompanyID: 0})

	in := tr.ClientsInCompany(0)
	if len(in) != 2 || in[0].ID != 5 || in[1].ID != 7 || in[1].Name != "bob" {
		t.Fatalf("clients in company 0 = %+v", in)
	}
	tr.ClientQuit(5)
	if _, ok := tr.Client(5); ok {
		t.Fatalf("client 5 still tracked after quit")
	}

	tr.CompanyInfoReceived(admin.CompanyInfo{ID: 0, Name: "Acme", Full: true, Inaugurated: 1950})
	tr.CompanyUpdated(admin.CompanyInfo{ID: 0, Name: "Acme Rail"})
	tr.CompanyEconomyReceived(admin.CompanyEconomy{ID: 0, Money: 1000})
	tr.CompanyStatisticsReceived(admin.CompanyStatistics{ID: 0, Vehicles: protocol.TransportCounts{Trains: 3}})

	c, ok := tr.Company(0)
	if !ok || c.Info.Name != "Acme Rail" || c.Info.Inaugurated != 1950 {
		t.Fatalf("company = %+v", c.Info)
	}
	if c.Economy == nil || c.Economy.Money != 1000 || c.Statistics == nil || c.Statistics.Vehicles.Trains != 3 {
		t.Fatalf("company economy/stats missing: %+v", c)
	}
	c.Economy.Money = 0
	again, _ := tr.Company(0)
	if again.Economy.Money != 1000 {
		t.Fatalf("Company returned shared economy pointer")
	}

	tr.CompanyRemoved(0, protocol.RemoveManual)
	if len(tr.Companies()) != 0 {
		t.Fatalf("company not removed")
	}
}

func TestTrackerDateAndReset(t *testing.T) {
	testlog.Start(t)
	tr := New()
	tr.ServerInfoReceived(admin.ServerInfo{StartDate: gamedate.FromDays(712223)})
	if d, ok := tr.Date(); !ok || d.String() != "01.01.1950" {
		t.Fatalf("date from welcome = %v %v", d, ok)
	}
	tr.NewDate(gamedate.FromDays(730485))
	if d, _ := tr.Date(); d.String() != "01.01.2000" {
		t.Fatalf("date = %s", d)
	}

	tr.ClientJoined(3)
	tr.CompanyCreated(1)
	tr.NewGame()
	snap := tr.Snapshot()
	if len(snap.Clients) != 0 || len(snap.Companies) != 0 || snap.HasDate {
		t.Fatalf("new game did not reset: %+v", snap)
	}
	if snap.Server == nil {
		t.Fatalf("new game dropped server info")
	}

	tr.Disconnected()
	if _, ok := tr.Server(); ok {
		t.Fatalf("server info kept after disconnect")
	}
}
