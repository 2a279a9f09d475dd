package stt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// serverFrame собирает кадр так, как его шлёт сервер (тип 690).
func serverFrame(payload string) []byte {
	f := make([]byte, len(payload)+13)
	binary.LittleEndian.PutUint32(f[0:], uint32(len(payload)+9))
	binary.LittleEndian.PutUint32(f[4:], uint32(len(payload)+9))
	binary.LittleEndian.PutUint16(f[8:], ServerMessageType)
	copy(f[12:], payload)
	return f
}

func TestEncodeLogin(t *testing.T) {
	payload := "type@=loginreq/roomid@=610588/"
	f := Encode(payload)
	if len(f) != len(payload)+13 {
		t.Fatalf("len = %d, want %d", len(f), len(payload)+13)
	}
	h, err := ParseHeader(f)
	if err != nil {
		t.Fatal(err)
	}
	if h.Length != uint32(len(payload)+9) || h.Length2 != h.Length {
		t.Fatalf("lengths = %d/%d, want %d", h.Length, h.Length2, len(payload)+9)
	}
	if h.Type != 689 || h.Reserved != 0 {
		t.Fatalf("type=%d reserved=%d", h.Type, h.Reserved)
	}
	if got := string(f[12 : len(f)-1]); got != payload {
		t.Fatalf("payload = %q", got)
	}
	if f[len(f)-1] != 0 {
		t.Fatal("missing terminator")
	}
}

func TestEncodeLoginScenario(t *testing.T) {
	const payload = "type@=loginreq/roomid@=610588/"
	f := Fields{{"type", "loginreq"}, {"roomid", "610588"}}.Encode()
	if len(payload) != 30 {
		t.Fatalf("payload len = %d", len(payload))
	}
	if len(f) != len(payload)+13 {
		t.Fatalf("len = %d, want %d", len(f), len(payload)+13)
	}
	if l := binary.LittleEndian.Uint32(f[0:]); l != uint32(len(payload)+9) {
		t.Fatalf("length1 = %d, want %d", l, len(payload)+9)
	}
	if l := binary.LittleEndian.Uint32(f[4:]); l != 39 {
		t.Fatalf("length2 = %d, want 39", l)
	}
	if got := string(f[HeaderLen : len(f)-1]); got != payload {
		t.Fatalf("payload = %q", got)
	}
}

func TestEncodeLengthInvariant(t *testing.T) {
	for _, p := range []string{"", "a", "type@=keeplive/tick@=1/", "ник@=Вася/", "弹幕@=你好/"} {
		f := Encode(p)
		h, err := ParseHeader(f)
		if err != nil {
			t.Fatal(err)
		}
		if h.PayloadLen() != len(p) {
			t.Errorf("%q: payload len %d, want %d", p, h.PayloadLen(), len(p))
		}
		if h.FrameLen() != len(f) || len(f) != len(p)+13 {
			t.Errorf("%q: frame len %d/%d, want %d", p, h.FrameLen(), len(f), len(p)+13)
		}
	}
}

func TestDecodeChat(t *testing.T) {
	f := serverFrame("type@=chatmsg/nn@=Alice/level@=3/txt@=hi@Athere/")
	msg, err := Decode(f, len(f))
	if err != nil {
		t.Fatal(err)
	}
	want := Message{"type": "chatmsg", "nn": "Alice", "level": "3", "txt": "hi@there"}
	if len(msg) != len(want) {
		t.Fatalf("got %v", msg)
	}
	for k, v := range want {
		if msg[k] != v {
			t.Errorf("%s = %q, want %q", k, msg[k], v)
		}
	}
}

func TestDecodeTooShort(t *testing.T) {
	buf := bytes.Repeat([]byte{'x'}, 64)
	for n := 0; n <= 19; n++ {
		msg, err := Decode(buf, n)
		if msg != nil {
			t.Fatalf("n=%d: got message %v", n, msg)
		}
		if !errors.Is(err, ErrFrameTooShort) {
			t.Fatalf("n=%d: err = %v", n, err)
		}
		if !Recoverable(err) {
			t.Fatalf("n=%d: too short must be recoverable", n)
		}
	}
}

func TestDecodeUsesLengthNotBuffer(t *testing.T) {
	// приёмный буфер больше кадра, хвост забит мусором
	f := serverFrame("type@=keeplive/tick@=7/")
	buf := make([]byte, 256)
	copy(buf, f)
	for i := len(f); i < len(buf); i++ {
		buf[i] = '@'
	}
	msg, err := Decode(buf, len(f))
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type() != "keeplive" || msg["tick"] != "7" {
		t.Fatalf("got %v", msg)
	}
}

func TestDecodeTruncated(t *testing.T) {
	f := serverFrame("type@=keeplive/tick@=7/")
	_, err := Decode(f, len(f)+5)
	if !errors.Is(err, ErrFrameTruncated) {
		t.Fatalf("err = %v", err)
	}
}

func TestDecodeMalformedEscape(t *testing.T) {
	f := serverFrame("type@=chatmsg/txt@=abc@")
	msg, err := Decode(f, len(f))
	if msg != nil {
		t.Fatalf("got %v", msg)
	}
	var pe *ProtocolError
	if !errors.As(err, &pe) || pe.Kind != MalformedEscape {
		t.Fatalf("err = %v", err)
	}
}

func TestFrameReader(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(serverFrame("type@=loginres/userid@=0/"))
	stream.Write(serverFrame("type@=chatmsg/nn@=Bob/level@=12/txt@=yo/"))

	// читаем по одному байту, чтобы проверить склейку
	fr := NewFrameReader(&oneByteReader{r: &stream})
	var types []string
	for {
		raw, err := fr.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		msg, err := Decode(raw, len(raw))
		if err != nil {
			t.Fatal(err)
		}
		types = append(types, msg.Type())
	}
	if len(types) != 2 || types[0] != "loginres" || types[1] != "chatmsg" {
		t.Fatalf("types = %v", types)
	}
}

func TestFrameReaderBadLength(t *testing.T) {
	for _, n := range []uint32{0, 8, MaxFrameLength + 1} {
		var hdr [4]byte
		binary.LittleEndian.PutUint32(hdr[:], n)
		_, err := NewFrameReader(bytes.NewReader(hdr[:])).ReadFrame()
		if !errors.Is(err, ErrFrameLength) {
			t.Fatalf("n=%d: err = %v", n, err)
		}
		if Recoverable(err) {
			t.Fatalf("n=%d: bad length must not be recoverable", n)
		}
	}
}

type oneByteReader struct{ r io.Reader }

func (o *oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}
