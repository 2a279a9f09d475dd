package stt

import (
	"errors"
	"fmt"
)

// Kind — класс ошибки протокола.
type Kind int

const (
	// FrameTooShort — кадр короче минимально полезного (<= 19 байт).
	FrameTooShort Kind = iota + 1
	// FrameTruncated — заявленная длина больше, чем реально лежит в буфере.
	FrameTruncated
	// FrameLength — поле длины в заголовке вне допустимого диапазона.
	// После такой ошибки граница кадров в потоке потеряна.
	FrameLength
	// MalformedEscape — строка закончилась сразу после '@'.
	MalformedEscape
)

func (k Kind) String() string {
	switch k {
	case FrameTooShort:
		return "frame too short"
	case FrameTruncated:
		return "frame truncated"
	case FrameLength:
		return "bad frame length"
	case MalformedEscape:
		return "malformed escape"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ProtocolError описывает битый кадр. Для FrameTooShort, FrameTruncated и
// MalformedEscape кадр просто отбрасывается, соединение живёт дальше.
type ProtocolError struct {
	Kind Kind
	// Pos — смещение (в байтах кадра или в символах текста), где нашли проблему.
	Pos int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("stt: %s at %d", e.Kind, e.Pos)
}

// Is сравнивает только Kind, так что errors.Is(err, stt.ErrFrameTooShort)
// работает для любой позиции.
func (e *ProtocolError) Is(target error) bool {
	var t *ProtocolError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrFrameTooShort   = &ProtocolError{Kind: FrameTooShort}
	ErrFrameTruncated  = &ProtocolError{Kind: FrameTruncated}
	ErrFrameLength     = &ProtocolError{Kind: FrameLength}
	ErrMalformedEscape = &ProtocolError{Kind: MalformedEscape}
)

// Recoverable — true, если после ошибки можно читать следующий кадр.
func Recoverable(err error) bool {
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Kind != FrameLength
}
