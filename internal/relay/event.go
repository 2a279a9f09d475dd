package relay

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/EgorLis/dybarrage/internal/barrage"
)

// Event — строка чата в том виде, в каком её получают подписчики.
//
// В бинарном формате это protobuf-сообщение:
//
//	message Event {
//	  string room        = 1;
//	  string nickname    = 2;
//	  string level       = 3;
//	  string text        = 4;
//	  string uid         = 5;
//	  int64  received_at = 6; // unix ms
//	}
type Event struct {
	Room       string    `json:"room"`
	Nickname   string    `json:"nn"`
	Level      string    `json:"level"`
	Text       string    `json:"txt"`
	UserID     string    `json:"uid,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

const (
	fieldRoom       protowire.Number = 1
	fieldNickname   protowire.Number = 2
	fieldLevel      protowire.Number = 3
	fieldText       protowire.Number = 4
	fieldUserID     protowire.Number = 5
	fieldReceivedAt protowire.Number = 6
)

// FromChat строит событие; room подставляется, если сервер не прислал rid.
func FromChat(m barrage.ChatMessage, room string) Event {
	if m.Room != "" {
		room = m.Room
	}
	return Event{
		Room:       room,
		Nickname:   m.Nickname,
		Level:      m.Level,
		Text:       m.Text,
		UserID:     m.UserID,
		ReceivedAt: m.ReceivedAt,
	}
}

func (e Event) MarshalProto() []byte {
	var b []byte
	b = appendString(b, fieldRoom, e.Room)
	b = appendString(b, fieldNickname, e.Nickname)
	b = appendString(b, fieldLevel, e.Level)
	b = appendString(b, fieldText, e.Text)
	b = appendString(b, fieldUserID, e.UserID)
	if !e.ReceivedAt.IsZero() {
		b = protowire.AppendTag(b, fieldReceivedAt, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.ReceivedAt.UnixMilli()))
	}
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// UnmarshalProto разбирает бинарное событие; неизвестные поля пропускаются.
func UnmarshalProto(b []byte) (Event, error) {
	var e Event
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Event{}, fmt.Errorf("relay: event tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType && num >= fieldRoom && num <= fieldUserID:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return Event{}, fmt.Errorf("relay: event field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldRoom:
				e.Room = v
			case fieldNickname:
				e.Nickname = v
			case fieldLevel:
				e.Level = v
			case fieldText:
				e.Text = v
			case fieldUserID:
				e.UserID = v
			}

		case typ == protowire.VarintType && num == fieldReceivedAt:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Event{}, fmt.Errorf("relay: event field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			e.ReceivedAt = time.UnixMilli(int64(v))

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Event{}, fmt.Errorf("relay: event field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return e, nil
}
