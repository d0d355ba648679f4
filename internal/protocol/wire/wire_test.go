package wire

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/ottdctl/internal/testutil/testlog"
)

func TestWriterLittleEndianLayout(t *testing.T) {
	testlog.Start(t)
	w := NewWriter(32)
	w.U8(0x01)
	w.U16(0x0203)
	w.U32(0x04050607)
	w.I64(-2)
	w.Bool(true)
	w.String("ab", 0)
	want := []byte{
		0x01,
		0x03, 0x02,
		0x07, 0x06, 0x05, 0x04,
		0xfe, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0x01,
		'a', 'b', 0x00,
	}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("layout mismatch\n got=% x\nwant=% x", w.Bytes(), want)
	}
}

func TestReaderRoundTrip(t *testing.T) {
	testlog.Start(t)
	w := NewWriter(32)
	w.U8(9)
	w.U16(65535)
	w.U32(1 << 31)
	w.I64(-1234567890123)
	w.Bool(false)
	w.String("héllo", 0)

	r := NewReader(w.Bytes())
	if v := r.U8(); v != 9 {
		t.Fatalf("u8=%d", v)
	}
	if v := r.U16(); v != 65535 {
		t.Fatalf("u16=%d", v)
	}
	if v := r.U32(); v != 1<<31 {
		t.Fatalf("u32=%d", v)
	}
	if v := r.I64(); v != -1234567890123 {
		t.Fatalf("i64=%d", v)
	}
	if r.Bool() {
		t.Fatalf("bool should be false")
	}
	if s := r.String(); s != "héllo" {
		t.Fatalf("string=%q", s)
	}
	if r.Err() != nil || r.Remaining() != 0 {
		t.Fatalf("err=%v remaining=%d", r.Err(), r.Remaining())
	}
}

func TestReaderNonzeroBoolIsTrue(t *testing.T) {
	testlog.Start(t)
	r := NewReader([]byte{0x7f})
	if !r.Bool() {
		t.Fatalf("nonzero byte must decode as true")
	}
}

func TestReaderShortInputIsSticky(t *testing.T) {
	testlog.Start(t)
	r := NewReader([]byte{0x01, 0x02, 0x03})
	_ = r.U32()
	if !errors.Is(r.Err(), ErrShortValue) {
		t.Fatalf("expected short value, got %v", r.Err())
	}
	if v := r.U8(); v != 0 {
		t.Fatalf("reads after failure must be zero, got %d", v)
	}
}

func TestReaderMissingTerminator(t *testing.T) {
	testlog.Start(t)
	r := NewReader([]byte("abc"))
	_ = r.String()
	if !errors.Is(r.Err(), ErrMissingTerminator) {
		t.Fatalf("expected missing terminator, got %v", r.Err())
	}
}

func TestStringTruncationReservesTerminator(t *testing.T) {
	testlog.Start(t)
	w := NewWriter(0)
	w.String(strings.Repeat("x", 40), 33)
	if w.Len() != 33 {
		t.Fatalf("len=%d want 33", w.Len())
	}
	if w.Bytes()[32] != 0 {
		t.Fatalf("last byte must be terminator")
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	testlog.Start(t)
	// "é" is two bytes; cutting at 2 would split it.
	if got := Truncate("aé", 2); got != "a" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("a\x00b", 10); got != "a" {
		t.Fatalf("embedded nul: got %q", got)
	}
}
