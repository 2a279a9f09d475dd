package barrage

import (
	"fmt"
	"time"

	"github.com/EgorLis/dybarrage/internal/stt"
)

// Типы сообщений, которые клиент понимает.
const (
	TypeLoginReq  = "loginreq"
	TypeLoginRes  = "loginres"
	TypeJoinGroup = "joingroup"
	TypeJoinAck   = "qausrespond"
	TypeChat      = "chatmsg"
	TypeKeepalive = "keeplive"
	TypeError     = "error"
)

// Inbound — разобранное входящее сообщение, приведённое к одному из
// известных вариантов. Неизвестные типы приходят как Unknown.
type Inbound interface {
	MessageType() string
}

type LoginResult struct {
	UserID    string
	SessionID string
	Username  string
	Nickname  string
	Raw       stt.Message
}

type JoinAck struct {
	Raw stt.Message
}

// ChatMessage — одна строка чата.
type ChatMessage struct {
	Room       string
	UserID     string
	Nickname   string
	Level      string
	Text       string
	ReceivedAt time.Time
	Raw        stt.Message
}

type KeepaliveAck struct {
	Tick string
	Raw  stt.Message
}

// ServerError — сервер прислал type@=error. Реализует error.
type ServerError struct {
	Code string
	Raw  stt.Message
}

func (e ServerError) Error() string {
	return fmt.Sprintf("barrage: server error code=%s", e.Code)
}

type Unknown struct {
	Type string
	Raw  stt.Message
}

func (LoginResult) MessageType() string  { return TypeLoginRes }
func (JoinAck) MessageType() string      { return TypeJoinAck }
func (ChatMessage) MessageType() string  { return TypeChat }
func (KeepaliveAck) MessageType() string { return TypeKeepalive }
func (ServerError) MessageType() string  { return TypeError }
func (u Unknown) MessageType() string    { return u.Type }

// Classify проецирует словарь на известный вариант. Отсутствующие поля
// остаются пустыми строками, никакой валидации сверх этого.
func Classify(m stt.Message) Inbound {
	switch t := m.Type(); t {
	case TypeLoginRes:
		return LoginResult{
			UserID:    m["userid"],
			SessionID: m["sessionid"],
			Username:  m["username"],
			Nickname:  m["nickname"],
			Raw:       m,
		}
	case TypeJoinAck:
		return JoinAck{Raw: m}
	case TypeChat:
		return ChatMessage{
			Room:     m["rid"],
			UserID:   m["uid"],
			Nickname: m["nn"],
			Level:    m["level"],
			Text:     m["txt"],
			Raw:      m,
		}
	case TypeKeepalive:
		return KeepaliveAck{Tick: m["tick"], Raw: m}
	case TypeError:
		return ServerError{Code: m["code"], Raw: m}
	default:
		return Unknown{Type: t, Raw: m}
	}
}
