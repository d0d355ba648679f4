package admin

import (
	"testing"

	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/danmuck/ottdctl/internal/testutil/testlog"
)

func TestPacketNameLabelsFrames(t *testing.T) {
	testlog.Start(t)
	buf, err := protocol.Encode(protocol.Ping{Payload: 9}, protocol.SupportedVersion)
	if err != nil {
		t.Fatalf("encode ping: %v", err)
	}
	if got, want := packetName(buf), (protocol.Ping{}).Type().String(); got != want {
		t.Fatalf("packetName = %q, want %q", got, want)
	}
	for _, short := range [][]byte{nil, {3}, {3, 0}} {
		if got := packetName(short); got != protocol.TypeInvalid.String() {
			t.Fatalf("packetName(%v) = %q", short, got)
		}
	}
}
