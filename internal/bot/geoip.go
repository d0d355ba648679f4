package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultGeoIPURL is the ip-api.com JSON endpoint.
const DefaultGeoIPURL = "http://ip-api.com/json/"

var (
	ErrLocationUnknown = errors.New("bot: location unknown")
	ErrGeoIPStatus     = errors.New("bot: geoip lookup failed")
)

// Location is where a client address appears to be.
type Location struct {
	Country     string
	CountryCode string
	City        string
	// Proxy marks a proxy, VPN or Tor exit.
	Proxy bool
}

// Locator resolves a client address.
type Locator interface {
	Locate(ctx context.Context, address string) (Location, error)
}

type geoIPResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	City        string `json:"city"`
	Proxy       bool   `json:"proxy"`
}

// GeoIP looks addresses up over HTTP and caches the answers.
type GeoIP struct {
	base string
	http *http.Client

	mu    sync.Mutex
	cache map[string]Location
	limit int
}

// NewGeoIP queries base, an ip-api.com compatible endpoint. An empty base
// uses DefaultGeoIPURL.
func NewGeoIP(base string, timeout time.Duration) *GeoIP {
	if base == "" {
		base = DefaultGeoIPURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &GeoIP{
		base:  base,
		http:  &http.Client{Timeout: timeout},
		cache: make(map[string]Location),
		limit: 1024,
	}
}

func (g *GeoIP) Locate(ctx context.Context, address string) (Location, error) {
	host := hostOnly(address)
	if host == "" {
		return Location{}, ErrLocationUnknown
	}
	g.mu.Lock()
	loc, ok := g.cache[host]
	g.mu.Unlock()
	if ok {
		return loc, nil
	}

	u := g.base + url.PathEscape(host) + "?fields=status,message,country,countryCode,city,proxy"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Location{}, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("%w: http %d", ErrGeoIPStatus, resp.StatusCode)
	}
	var out geoIPResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Location{}, err
	}
	if out.Status != "success" {
		return Location{}, fmt.Errorf("%w: %s %s", ErrGeoIPStatus, out.Status, out.Message)
	}
	loc = Location{Country: out.Country, CountryCode: strings.ToUpper(out.CountryCode), City: out.City, Proxy: out.Proxy}

	g.mu.Lock()
	if len(g.cache) >= g.limit {
		clear(g.cache)
	}
	g.cache[host] = loc
	g.mu.Unlock()
	return loc, nil
}

// hostOnly strips a port if the server reported one.
func hostOnly(address string) string {
	address = strings.TrimSpace(address)
	if host, _, err := net.SplitHostPort(address); err == nil {
		return host
	}
	return strings.Trim(address, "[]")
}

func (l Location) String() string {
	s := "from " + l.Country
	if l.City != "" {
		s += ", " + l.City
	}
	if l.Proxy {
		s += ", proxy"
	}
	return s
}
