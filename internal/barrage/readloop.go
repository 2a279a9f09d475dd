package barrage

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/EgorLis/dybarrage/internal/stt"
)

// readLoop — единственный приёмник сокета. Следующий кадр читается только
// после того, как предыдущий полностью разобран и обработан, поэтому
// сообщения обрабатываются строго по порядку и без наложений.
func (c *Client) readLoop(conn net.Conn) {
	defer c.wg.Done()

	fr := stt.NewFrameReader(conn)
	for {
		raw, err := fr.ReadFrame()
		if err != nil {
			if c.State() == Closed {
				return
			}
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			err = fmt.Errorf("barrage: receive: %w", err)
			c.log.Warn("receive failed", "err", err)
			if c.OnError != nil {
				c.OnError(err)
			}
			c.shutdown(err)
			return
		}

		msg, err := stt.Decode(raw, len(raw))
		if err != nil {
			// битый кадр просто выкидываем
			var pe *stt.ProtocolError
			reason := "decode"
			if errors.As(err, &pe) {
				reason = pe.Kind.String()
			}
			c.obs.FrameDropped(reason)
			c.log.Debug("frame dropped", "err", err, "bytes", len(raw))
			continue
		}
		if msg == nil {
			continue
		}
		c.obs.FrameReceived(msg.Type())
		c.handle(msg)
	}
}

// handle — переходы состояний и раздача сообщений.
func (c *Client) handle(msg stt.Message) {
	if c.OnMessage != nil {
		c.OnMessage(msg)
	}

	switch m := Classify(msg).(type) {
	case LoginResult:
		if !c.transition(LoggingIn, JoiningGroup) {
			c.log.Debug("unexpected loginres", "state", c.State().String())
			return
		}
		c.log.Info("login complete", "userid", m.UserID, "nickname", m.Nickname)
		if err := c.send(TypeJoinGroup, c.joinGroupPayload()); err != nil {
			c.log.Warn("join group send failed", "err", err)
		}
		if c.OnLogin != nil {
			c.OnLogin(m)
		}

	case JoinAck:
		if !c.transition(JoiningGroup, Streaming) {
			return
		}
		c.log.Info("group joined", "gid", c.group)
		if c.OnJoin != nil {
			c.OnJoin()
		}

	case ChatMessage:
		// чат может прийти и до qausrespond — сервер уже раздаёт группу
		if st := c.State(); st != JoiningGroup && st != Streaming {
			return
		}
		m.ReceivedAt = c.now()
		if c.OnChat != nil {
			c.OnChat(m)
		}

	case KeepaliveAck:
		c.log.Debug("keepalive ack", "tick", m.Tick)

	case ServerError:
		c.log.Warn("server error", "code", m.Code)
		if c.OnError != nil {
			c.OnError(m)
		}

	case Unknown:
		// неизвестные типы игнорируем
	}
}
