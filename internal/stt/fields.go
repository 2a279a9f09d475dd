package stt

import "strings"

var escaper = strings.NewReplacer("@", "@A", "/", "@S")

// Escape экранирует '@' и '/' для записи в значение.
func Escape(s string) string { return escaper.Replace(s) }

type Field struct {
	Key   string
	Value string
}

// Fields — упорядоченный набор пар для исходящего сообщения.
type Fields []Field

// String собирает текст "k@=v/k@=v/" с экранированными ключами и значениями.
func (f Fields) String() string {
	var b strings.Builder
	for _, kv := range f {
		b.WriteString(Escape(kv.Key))
		b.WriteString("@=")
		b.WriteString(Escape(kv.Value))
		b.WriteByte('/')
	}
	return b.String()
}

// Encode — то же самое, сразу упакованное в кадр.
func (f Fields) Encode() []byte { return Encode(f.String()) }
