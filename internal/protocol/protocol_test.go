package protocol

import (
	"bytes"
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/danmuck/ottdctl/internal/protocol/frame"
	"github.com/danmuck/ottdctl/internal/testutil/testlog"
)

func roundTrip(t *testing.T, p Packet, version uint8) Packet {
	t.Helper()
	buf, err := Encode(p, version)
	if err != nil {
		t.Fatalf("encode %s: %v", p.Type(), err)
	}
	f, err := frame.ReadFrame(bytes.NewReader(buf), frame.DefaultLimits())
	if err != nil {
		t.Fatalf("read frame %s: %v", p.Type(), err)
	}
	if PacketType(f.Type) != p.Type() {
		t.Fatalf("type byte=%d want %d", f.Type, p.Type())
	}
	got, rest, err := decode(PacketType(f.Type), f.Payload, version)
	if err != nil {
		t.Fatalf("decode %s: %v", p.Type(), err)
	}
	if rest != 0 {
		t.Fatalf("decode %s left %d bytes", p.Type(), rest)
	}
	return got
}

func TestRoundTripEveryPacketType(t *testing.T) {
	testlog.Start(t)
	packets := []Packet{
		Join{Password: "pw", Name: "ottdctl", Version: "1.4"},
		Quit{},
		UpdateFrequency{Update: UpdateChat, Frequency: FreqAutomatic},
		Poll{Update: UpdateClientInfo, Param: AllClients},
		Chat{Action: ActionChatClient, Dest: DestClient, DestID: 7, Text: "hi"},
		Rcon{Command: "companies"},
		Gamescript{JSON: `{"a":1}`},
		Ping{Payload: 0xdeadbeef},
		ExternalChat{Source: "slack", Colour: TextGreen | TextForced, User: "ann", Message: "hello"},
		ServerFull{},
		ServerBanned{},
		ServerError{Code: ErrCodeWrongPassword},
		ServerProtocol{Version: 3, Updates: []UpdateSupport{{Update: UpdateDate, Frequencies: FreqPoll | FreqDaily}}},
		ServerWelcome{Name: "srv", Revision: "14.1", Dedicated: true, Map: "Random", Seed: 42, Landscape: 1, StartDate: 730000, SizeX: 256, SizeY: 512},
		ServerNewGame{},
		ServerShutdown{},
		ServerDate{Date: 740000},
		ServerClientJoin{ClientID: 3},
		ServerClientInfo{ClientID: 3, Address: "10.0.0.1", Name: "ann", Language: 2, JoinDate: 730100, CompanyID: 255},
		ServerClientUpdate{ClientID: 3, Name: "anna", CompanyID: 0},
		ServerClientQuit{ClientID: 3},
		ServerClientError{ClientID: 3, Code: ErrCodeDesync},
		ServerCompanyNew{CompanyID: 1},
		ServerCompanyInfo{CompanyID: 1, Name: "Ann Transport", Manager: "Ann", Colour: ColourRed, Passworded: true, Inaugurated: 1950, AI: false, BankruptQuarters: 0},
		ServerCompanyUpdate{CompanyID: 1, Name: "Ann Transport", Manager: "Ann", Colour: ColourBlue, BankruptQuarters: 2},
		ServerCompanyRemove{CompanyID: 1, Reason: RemoveBankrupt},
		ServerCompanyEconomy{CompanyID: 1, Money: -500, Loan: 300000, Income: 12345, DeliveredCargo: 90,
			History: [2]QuarterEconomy{{Value: 1 << 40, Performance: 500, DeliveredCargo: 80}, {Value: -1, Performance: 1, DeliveredCargo: 2}}},
		ServerCompanyStats{CompanyID: 1, Vehicles: TransportCounts{Trains: 4, Buses: 2}, Stations: TransportCounts{Trains: 3, Ships: 1}},
		ServerChat{Action: ActionChat, Dest: DestBroadcast, ClientID: 4, Message: "gg", Data: 100},
		ServerRcon{Colour: TextWhite, Result: "Company 1"},
		ServerConsole{Origin: "net", Message: "client joined"},
		ServerCmdNames{Commands: []CommandName{{ID: 0, Name: "CmdBuildRailroadTrack"}, {ID: 1, Name: "CmdRemoveRailroadTrack"}}},
		ServerCmdLogging{ClientID: 2, CompanyID: 0, CommandID: 17, P1: 1, P2: 2, Tile: 4096, Text: "x", Frame: 99},
		ServerGamescript{JSON: `{"event":"goal"}`},
		ServerRconEnd{Command: "companies"},
		ServerPong{Payload: 77},
	}
	seen := make(map[PacketType]bool)
	for _, p := range packets {
		got := roundTrip(t, p, SupportedVersion)
		if !reflect.DeepEqual(got, p) {
			t.Fatalf("%s round trip mismatch\n got=%+v\nwant=%+v", p.Type(), got, p)
		}
		seen[p.Type()] = true
	}
	for typ := range registry {
		if !seen[typ] {
			t.Fatalf("packet type %s has no round-trip case", typ)
		}
	}
}

func TestRoundTripRandomValues(t *testing.T) {
	testlog.Start(t)
	rng := rand.New(rand.NewSource(1))
	randString := func(max int) string {
		n := rng.Intn(max)
		b := make([]byte, n)
		for i := range b {
			b[i] = byte('a' + rng.Intn(26))
		}
		return string(b)
	}
	for i := 0; i < 200; i++ {
		cases := []Packet{
			Chat{Action: NetworkAction(rng.Intn(12)), Dest: DestType(rng.Intn(3)), DestID: rng.Uint32(), Text: randString(ChatLength)},
			ServerClientInfo{ClientID: rng.Uint32(), Address: randString(40), Name: randString(ClientNameLength), Language: Language(rng.Intn(36)), JoinDate: rng.Uint32(), CompanyID: uint8(rng.Intn(256))},
			ServerCompanyEconomy{CompanyID: uint8(rng.Intn(15)), Money: rng.Int63() - rng.Int63(), Loan: rng.Int63(), Income: -rng.Int63(), DeliveredCargo: uint16(rng.Intn(1 << 16))},
			ServerCmdLogging{ClientID: rng.Uint32(), CompanyID: uint8(rng.Intn(256)), CommandID: uint16(rng.Intn(1 << 16)), P1: rng.Uint32(), P2: rng.Uint32(), Tile: rng.Uint32(), Text: randString(200), Frame: rng.Uint32()},
			UpdateFrequency{Update: UpdateType(rng.Intn(10)), Frequency: Frequency(rng.Intn(0x80))},
		}
		for _, p := range cases {
			got := roundTrip(t, p, SupportedVersion)
			if !reflect.DeepEqual(got, p) {
				t.Fatalf("iteration %d %s mismatch\n got=%+v\nwant=%+v", i, p.Type(), got, p)
			}
		}
	}
}

func TestJoinFrameLayout(t *testing.T) {
	testlog.Start(t)
	buf, err := Encode(Join{Password: "secret", Name: "Bot", Version: "1.0"}, SupportedVersion)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := append([]byte{0, 0, byte(TypeAdminJoin)}, []byte("secret\x00Bot\x001.0\x00")...)
	want[0] = byte(len(want))
	if !bytes.Equal(buf, want) {
		t.Fatalf("join frame\n got=% x\nwant=% x", buf, want)
	}
	if int(frame.DecodeHeader(buf)) != len(buf) {
		t.Fatalf("length prefix %d != frame size %d", frame.DecodeHeader(buf), len(buf))
	}
	payload := buf[frame.HeaderLen:]
	if n := bytes.Count(payload, []byte{0}); n != 3 {
		t.Fatalf("payload has %d terminators, want 3", n)
	}
	if payload[len(payload)-1] != 0 {
		t.Fatalf("payload must end with the version terminator")
	}
}

func TestServerProtocolPairs(t *testing.T) {
	testlog.Start(t)
	cases := map[string][]UpdateSupport{
		"zero": nil,
		"one":  {{Update: UpdateDate, Frequencies: FreqPoll}},
		"many": {
			{Update: UpdateDate, Frequencies: FreqPoll | FreqDaily | FreqWeekly},
			{Update: UpdateClientInfo, Frequencies: FreqPoll | FreqAutomatic},
			{Update: UpdateChat, Frequencies: FreqAutomatic},
			{Update: UpdateGamescript, Frequencies: FreqAutomatic},
		},
	}
	for name, updates := range cases {
		in := ServerProtocol{Version: 2, Updates: updates}
		buf, err := Encode(in, SupportedVersion)
		if err != nil {
			t.Fatalf("%s encode: %v", name, err)
		}
		// trailing garbage after the sentinel must be left unread
		payload := append(append([]byte{}, buf[frame.HeaderLen:]...), 0xAA, 0xBB)
		got, rest, err := decode(TypeServerProtocol, payload, SupportedVersion)
		if err != nil {
			t.Fatalf("%s decode: %v", name, err)
		}
		if rest != 2 {
			t.Fatalf("%s over/under read: rest=%d", name, rest)
		}
		if !reflect.DeepEqual(got, in) {
			t.Fatalf("%s mismatch got=%+v want=%+v", name, got, in)
		}
	}
}

func TestServerProtocolMissingSentinelIsMalformed(t *testing.T) {
	testlog.Start(t)
	payload := []byte{3, 1, 0, 0, 1, 0}
	_, err := Decode(TypeServerProtocol, payload, SupportedVersion)
	if !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}

func TestCompanyInfoShareBytesFollowVersion(t *testing.T) {
	testlog.Start(t)
	base := ServerCompanyInfo{CompanyID: 2, Name: "C", Manager: "M", Colour: ColourPink, Inaugurated: 1960, BankruptQuarters: 1}

	v2 := base
	v2.HasShares = true
	v2.Shares = Shares{1, 2, 3, 4}
	bufV2, err := Encode(v2, 2)
	if err != nil {
		t.Fatalf("encode v2: %v", err)
	}
	bufV3, err := Encode(base, 3)
	if err != nil {
		t.Fatalf("encode v3: %v", err)
	}
	if len(bufV2)-len(bufV3) != 4 {
		t.Fatalf("v2 frame should carry 4 extra bytes: v2=%d v3=%d", len(bufV2), len(bufV3))
	}

	payloadV2 := bufV2[frame.HeaderLen:]
	got, rest, err := decode(TypeServerCompanyInfo, payloadV2, 2)
	if err != nil || rest != 0 {
		t.Fatalf("v2 decode err=%v rest=%d", err, rest)
	}
	if !reflect.DeepEqual(got, v2) {
		t.Fatalf("v2 mismatch got=%+v", got)
	}

	// a v3 session reads the same bytes without touching the shares
	got, rest, err = decode(TypeServerCompanyInfo, payloadV2, 3)
	if err != nil {
		t.Fatalf("v3 decode: %v", err)
	}
	if rest != 4 {
		t.Fatalf("v3 decode consumed share bytes: rest=%d", rest)
	}
	if got.(ServerCompanyInfo).HasShares {
		t.Fatalf("v3 decode must not report shares")
	}

	// and a v2 session cannot parse a v3 payload
	if _, err := Decode(TypeServerCompanyInfo, bufV3[frame.HeaderLen:], 2); !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected malformed v3 payload under v2, got %v", err)
	}
}

func TestCompanyUpdateShareBytesFollowVersion(t *testing.T) {
	testlog.Start(t)
	in := ServerCompanyUpdate{CompanyID: 3, Name: "N", Manager: "M", HasShares: true, Shares: Shares{0, 0, 1, 1}}
	if got := roundTrip(t, in, 1); !reflect.DeepEqual(got, in) {
		t.Fatalf("v1 mismatch got=%+v", got)
	}
}

func TestChatTextTruncatedToCap(t *testing.T) {
	testlog.Start(t)
	long := strings.Repeat("y", 5000)
	buf, err := Encode(Chat{Action: ActionChat, Dest: DestBroadcast, Text: long}, SupportedVersion)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(buf) > int(frame.MTU) {
		t.Fatalf("frame %d exceeds MTU", len(buf))
	}
	p, err := Decode(TypeAdminChat, buf[frame.HeaderLen:], SupportedVersion)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n := len(p.(Chat).Text); n != ChatLength-1 {
		t.Fatalf("text len=%d want %d", n, ChatLength-1)
	}
	if buf[len(buf)-1] != 0 {
		t.Fatalf("text must stay terminated")
	}
}

func TestExternalChatNeverExceedsMTU(t *testing.T) {
	testlog.Start(t)
	long := strings.Repeat("é", 2000)
	buf, err := Encode(ExternalChat{Source: long, Colour: TextWhite, User: long, Message: long}, SupportedVersion)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(buf) > int(frame.MTU) {
		t.Fatalf("frame %d exceeds MTU", len(buf))
	}
	p, err := Decode(TypeAdminExternalChat, buf[frame.HeaderLen:], SupportedVersion)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ec := p.(ExternalChat)
	if len(ec.Source) > ChatLength-1 || len(ec.User) > ChatLength-1 {
		t.Fatalf("fields exceed chat cap: %d %d", len(ec.Source), len(ec.User))
	}
}

func TestDecodeUnknownAndTruncated(t *testing.T) {
	testlog.Start(t)
	if _, err := Decode(TypeInvalid, nil, SupportedVersion); !errors.Is(err, ErrUnknownPacket) {
		t.Fatalf("expected ErrUnknownPacket, got %v", err)
	}
	if _, err := Decode(TypeServerCompanyEconomy, []byte{1, 2, 3}, SupportedVersion); !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
	if _, err := Decode(TypeServerWelcome, []byte("name-without-terminator"), SupportedVersion); !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}

func TestFrequencyString(t *testing.T) {
	testlog.Start(t)
	if s := (FreqPoll | FreqAutomatic).String(); s != "poll|automatic" {
		t.Fatalf("got %q", s)
	}
	f, err := ParseFrequency("monthly")
	if err != nil || f != FreqMonthly {
		t.Fatalf("parse monthly=%v err=%v", f, err)
	}
	if _, err := ParseFrequency("hourly"); err == nil {
		t.Fatalf("expected error for unknown frequency")
	}
}

func TestLanguageTags(t *testing.T) {
	testlog.Start(t)
	if Language(2).String() != "de" {
		t.Fatalf("german=%q", Language(2).String())
	}
	if LanguageAny.String() != "any" || Language(200).String() != "any" {
		t.Fatalf("any/unknown should print any")
	}
}
