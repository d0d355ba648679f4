package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/gamestate"
	"github.com/danmuck/ottdctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticLocator answers from a fixed table.
type staticLocator map[string]Location

func (s staticLocator) Locate(_ context.Context, address string) (Location, error) {
	if loc, ok := s[address]; ok {
		return loc, nil
	}
	return Location{}, ErrLocationUnknown
}

func newGeoIPServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		addr := strings.TrimPrefix(r.URL.Path, "/json/")
		if addr != "203.0.113.7" {
			_ = json.NewEncoder(w).Encode(geoIPResponse{Status: "fail", Message: "reserved range"})
			return
		}
		assert.Contains(t, r.URL.Query().Get("fields"), "countryCode")
		_ = json.NewEncoder(w).Encode(geoIPResponse{
			Status: "success", Country: "Poland", CountryCode: "pl", City: "Gdańsk", Proxy: true,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeoIPLocate(t *testing.T) {
	testlog.Start(t)
	var hits atomic.Int32
	srv := newGeoIPServer(t, &hits)
	g := NewGeoIP(srv.URL+"/json", time.Second)

	loc, err := g.Locate(context.Background(), "203.0.113.7:51000")
	require.NoError(t, err)
	assert.Equal(t, Location{Country: "Poland", CountryCode: "PL", City: "Gdańsk", Proxy: true}, loc)
	assert.Equal(t, "from Poland, Gdańsk, proxy", loc.String())

	_, err = g.Locate(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second lookup served from cache")

	_, err = g.Locate(context.Background(), "10.0.0.1")
	assert.True(t, errors.Is(err, ErrGeoIPStatus), "err=%v", err)
	_, err = g.Locate(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrLocationUnknown)
}

func TestWelcomeMessageUsesLocation(t *testing.T) {
	testlog.Start(t)
	game := &fakeGame{}
	state := gamestate.New()
	b := New(Config{
		WelcomeMessage: "Hi ${USERNAME} from ${COUNTRY}, ${CITY}",
		CountryWelcome: map[string]string{"DE": "Hallo ${USERNAME} aus ${CITY}"},
	}, game, state, nil, nil, nil)
	b.SetLocator(staticLocator{
		"198.51.100.1": {Country: "Germany", CountryCode: "DE", City: "Berlin"},
		"198.51.100.2": {Country: "France", CountryCode: "FR", City: "Lyon"},
	})

	for _, info := range []admin.ClientInfo{
		{ID: 1, Name: "hans", Address: "198.51.100.1"},
		{ID: 2, Name: "marie", Address: "198.51.100.2"},
		{ID: 3, Name: "nobody", Address: "192.0.2.9"},
	} {
		state.ClientInfoReceived(info)
		b.ClientInfoReceived(info)
		b.ClientJoined(info.ID)
	}
	assert.Equal(t, []string{
		"Hallo hans aus Berlin",
		"Hi marie from France, Lyon",
		"Hi nobody from the Universe, the beautiful City",
	}, game.texts())

	_, ok := b.Location(1)
	require.True(t, ok)
	b.ClientQuit(1)
	_, ok = b.Location(1)
	assert.False(t, ok)
}

func TestCountryWelcomeWithoutDefault(t *testing.T) {
	testlog.Start(t)
	game := &fakeGame{}
	b := New(Config{CountryWelcome: map[string]string{"DE": "Willkommen"}}, game, nil, nil, nil, nil)
	b.SetLocator(staticLocator{"198.51.100.1": {Country: "Germany", CountryCode: "DE"}})
	b.ClientInfoReceived(admin.ClientInfo{ID: 1, Address: "198.51.100.1"})
	b.ClientJoined(1)
	b.ClientJoined(2)
	assert.Equal(t, []string{"Willkommen"}, game.texts())
}

func TestReporterAddsLocation(t *testing.T) {
	testlog.Start(t)
	n := &fakeNotifier{}
	r := NewReporter(n)
	r.SetLocator(staticLocator{"198.51.100.1": {Country: "Germany", City: "Berlin", Proxy: true}})
	r.ClientInfoReceived(admin.ClientInfo{ID: 4, Name: "bob", Address: "198.51.100.1", CompanyID: admin.SpectatorCompany})
	r.ClientInfoReceived(admin.ClientInfo{ID: 5, Name: "eve", Address: "192.0.2.9", CompanyID: admin.SpectatorCompany})

	require.Len(t, n.got, 2)
	assert.True(t, strings.HasSuffix(n.got[0].text, ", from Germany, Berlin, proxy"), n.got[0].text)
	assert.NotContains(t, n.got[1].text, "from")
}
