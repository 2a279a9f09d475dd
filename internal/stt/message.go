package stt

import "strings"

// Message — разобранное сообщение: ключ -> значение, уже без экранирования.
type Message map[string]string

func (m Message) Type() string { return m["type"] }

// Sub разбирает значение ключа как вложенный STT-текст
// (списки у Douyu приходят именно так: "a@A=1@Sb@A=2@S").
func (m Message) Sub(key string) (Message, error) {
	v, ok := m[key]
	if !ok || v == "" {
		return Message{}, nil
	}
	return Parse(v)
}

// Parse разбирает текст вида key@=value/key@=value/.
//
//	'/'   — конец пары, пара сохраняется (повтор ключа перезаписывает,
//	        пустая пара "//" даёт "" -> "")
//	"@A"  — литерал '@'
//	"@S"  — литерал '/'
//	"@="  — всё набранное до сих пор становится ключом
//	"@x"  — неизвестный escape: вся пара отбрасывается
//
// Одиночный '@' в самом конце — *ProtocolError MalformedEscape.
// Отсутствующий финальный '/' подразумевается.
func Parse(s string) (Message, error) {
	msg := make(Message)
	var (
		key  string
		val  strings.Builder
		skip bool
	)
	flush := func() {
		if !skip {
			msg[key] = val.String()
		}
		key, skip = "", false
		val.Reset()
	}

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '/':
			flush()
		case '@':
			i++
			if i >= len(s) {
				return nil, &ProtocolError{Kind: MalformedEscape, Pos: i - 1}
			}
			switch s[i] {
			case 'A':
				val.WriteByte('@')
			case 'S':
				val.WriteByte('/')
			case '=':
				key = val.String()
				val.Reset()
			default:
				skip = true
			}
		default:
			val.WriteByte(c)
		}
	}
	if s != "" && !strings.HasSuffix(s, "/") {
		flush()
	}
	return msg, nil
}
