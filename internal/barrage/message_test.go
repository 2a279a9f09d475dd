package barrage

import (
	"testing"

	"github.com/EgorLis/dybarrage/internal/stt"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		in   stt.Message
		want string
	}{
		{stt.Message{"type": "loginres", "userid": "1"}, TypeLoginRes},
		{stt.Message{"type": "qausrespond"}, TypeJoinAck},
		{stt.Message{"type": "chatmsg"}, TypeChat},
		{stt.Message{"type": "keeplive"}, TypeKeepalive},
		{stt.Message{"type": "error", "code": "51"}, TypeError},
		{stt.Message{"type": "dgb"}, "dgb"},
		{stt.Message{}, ""},
	}
	for _, tt := range tests {
		if got := Classify(tt.in).MessageType(); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClassifyFields(t *testing.T) {
	login, ok := Classify(stt.Message{
		"type": "loginres", "userid": "7", "sessionid": "s", "username": "u", "nickname": "n",
	}).(LoginResult)
	if !ok || login.UserID != "7" || login.SessionID != "s" || login.Username != "u" || login.Nickname != "n" {
		t.Fatalf("login = %+v", login)
	}

	// отсутствующие поля — пустые строки, не паника
	chat, ok := Classify(stt.Message{"type": "chatmsg", "nn": "Alice"}).(ChatMessage)
	if !ok || chat.Nickname != "Alice" || chat.Level != "" || chat.Text != "" {
		t.Fatalf("chat = %+v", chat)
	}

	u, ok := Classify(stt.Message{"type": "uenter"}).(Unknown)
	if !ok || u.Type != "uenter" || u.Raw["type"] != "uenter" {
		t.Fatalf("unknown = %+v", u)
	}
}

func TestStateString(t *testing.T) {
	for _, s := range States() {
		if s.String() == "" {
			t.Fatalf("empty name for %d", s)
		}
	}
	if got := State(42).String(); got != "state(42)" {
		t.Fatalf("got %q", got)
	}
	if Streaming.String() != "streaming" {
		t.Fatalf("got %q", Streaming.String())
	}
}
