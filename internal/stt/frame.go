package stt

import (
	"encoding/binary"
	"io"
	"strings"
)

// Раскладка кадра (все числа little-endian):
//
//	[0:4]   длина = len(payload)+9
//	[4:8]   та же длина ещё раз
//	[8:10]  тип сообщения (689 клиент->сервер, 690 сервер->клиент)
//	[10:12] 0, 0
//	[12:]   payload (UTF-8)
//	[last]  0x00
const (
	HeaderLen = 12

	// ClientMessageType — тип, которым клиент помечает свои кадры.
	ClientMessageType uint16 = 689
	// ServerMessageType — так помечает кадры сервер; при приёме не проверяем.
	ServerMessageType uint16 = 690

	// MaxFrameLength ограничивает поле длины при чтении из потока.
	MaxFrameLength = 1 << 20

	lengthBias   = 9
	frameExtra   = HeaderLen + 1
	minFrameSize = 19 // 12 байт заголовка + \0 + хотя бы "type@="
)

// Encode упаковывает текст в кадр. Длина результата всегда len(payload)+13.
func Encode(payload string) []byte {
	frame := make([]byte, len(payload)+frameExtra)
	n := uint32(len(payload) + lengthBias)
	binary.LittleEndian.PutUint32(frame[0:4], n)
	binary.LittleEndian.PutUint32(frame[4:8], n)
	binary.LittleEndian.PutUint16(frame[8:10], ClientMessageType)
	// [10:12] уже нули
	copy(frame[HeaderLen:], payload)
	// последний байт уже 0
	return frame
}

// Decode разбирает первые n байт buf как один кадр.
//
// Слишком короткий кадр (n <= 19) и n больше размера буфера дают nil и
// *ProtocolError; вызывающий просто выкидывает такой кадр. Пустой текст даёт
// nil, nil.
func Decode(buf []byte, n int) (Message, error) {
	if n <= minFrameSize {
		return nil, &ProtocolError{Kind: FrameTooShort, Pos: n}
	}
	if n > len(buf) {
		return nil, &ProtocolError{Kind: FrameTruncated, Pos: len(buf)}
	}
	text := strings.ToValidUTF8(string(buf[HeaderLen:n-1]), "�")
	if text == "" {
		return nil, nil
	}
	return Parse(text)
}

type Header struct {
	Length   uint32
	Length2  uint32
	Type     uint16
	Reserved uint16
}

func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, &ProtocolError{Kind: FrameTruncated, Pos: len(b)}
	}
	return Header{
		Length:   binary.LittleEndian.Uint32(b[0:4]),
		Length2:  binary.LittleEndian.Uint32(b[4:8]),
		Type:     binary.LittleEndian.Uint16(b[8:10]),
		Reserved: binary.LittleEndian.Uint16(b[10:12]),
	}, nil
}

// PayloadLen — длина текста без заголовка и терминатора.
func (h Header) PayloadLen() int { return int(h.Length) - lengthBias }

// FrameLen — полный размер кадра на проводе.
func (h Header) FrameLen() int { return h.PayloadLen() + frameExtra }

// FrameReader режет поток на кадры по первому полю длины.
type FrameReader struct {
	r   io.Reader
	hdr [4]byte
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// ReadFrame возвращает ровно один кадр целиком, включая заголовок.
// Ошибка FrameLength фатальна для потока: дальше границы кадров не найти.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.hdr[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(fr.hdr[:])
	if n < lengthBias || n > MaxFrameLength {
		return nil, &ProtocolError{Kind: FrameLength, Pos: 0}
	}
	frame := make([]byte, 4+int(n))
	copy(frame, fr.hdr[:])
	if _, err := io.ReadFull(fr.r, frame[4:]); err != nil {
		return nil, err
	}
	return frame, nil
}
