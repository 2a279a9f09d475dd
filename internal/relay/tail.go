package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// Tail подключается к ретранслятору и вызывает fn на каждое событие, пока
// не отменят ctx или сервер не закроет соединение. Формат определяется по
// типу кадра: бинарный — protobuf, текстовый — JSON.
func Tail(ctx context.Context, url string, fn func(Event)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("relay: dial %s: %w", url, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil ||
				websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("relay: read: %w", err)
		}

		var e Event
		switch typ {
		case websocket.BinaryMessage:
			e, err = UnmarshalProto(data)
		case websocket.TextMessage:
			err = json.Unmarshal(data, &e)
		default:
			continue
		}
		if err != nil {
			return err
		}
		fn(e)
	}
}
