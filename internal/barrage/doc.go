// Package barrage реализует TCP-клиент чата (барража) Douyu openbarrage.
//
// Клиент подключается к openbarrage.douyutv.com:8601 (или другому адресу),
// логинится в комнату (loginreq), после loginres входит в группу
// (joingroup, по умолчанию gid=-9999 — "массовый" барраж), после
// qausrespond переходит в Streaming и раздаёт chatmsg через OnChat.
//
// Состояния:
//
//	Disconnected -> Connecting -> LoggingIn -> JoiningGroup -> Streaming
//	любое -> Closed (Stop, отмена ctx, обрыв чтения)
//
// Гарантии:
//   - ровно одно чтение в полёте: кадр читается, разбирается и
//     обрабатывается до чтения следующего;
//   - запись сериализована: все кадры идут через одну горутину-писателя
//     с очередью и write-deadline;
//   - keepalive каждые 40 секунд, запускается один раз на сессию и
//     останавливается вместе с соединением;
//   - битые кадры (слишком короткие, с оборванным escape) выбрасываются,
//     соединение живёт дальше. Наружу возвращаются только ошибки connect.
//
// Переподключения нет: после Closed создайте новый Client.
//
// Пример:
//
//	c := barrage.New("610588")
//	c.OnChat = func(m barrage.ChatMessage) {
//	    fmt.Printf("%s(%s) : %s\n", m.Nickname, m.Level, m.Text)
//	}
//	if err := c.Start(ctx); err != nil { log.Fatal(err) }
//	defer c.Stop()
package barrage
