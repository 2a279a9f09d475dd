// Package stt реализует кадры и текстовую сериализацию протокола
// openbarrage (Douyu).
//
// Кадр: два одинаковых поля длины, тип 689, два нулевых байта, UTF-8 текст и
// завершающий 0x00. Текст внутри кадра — пары "key@=value/", где '@' и '/'
// в значениях экранируются как "@A" и "@S".
//
// Пример:
//
//	frame := stt.Fields{{"type", "loginreq"}, {"roomid", "610588"}}.Encode()
//	// len(frame) == 44
//
//	fr := stt.NewFrameReader(conn)
//	raw, err := fr.ReadFrame()
//	if err != nil { ... }
//	msg, err := stt.Decode(raw, len(raw))
//	if err != nil && stt.Recoverable(err) {
//	    // кадр выкинуть, читать дальше
//	}
package stt
