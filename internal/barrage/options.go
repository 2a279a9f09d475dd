package barrage

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultHost  = "openbarrage.douyutv.com"
	DefaultPort  = 8601
	DefaultGroup = -9999 // группа "массовых" сообщений

	defaultWriteTimeout = 5 * time.Second
)

// Option настраивает Client.
type Option func(*Client)

// WithAddress задаёт сервер; пустой host или port <= 0 оставляют значение по умолчанию.
func WithAddress(host string, port int) Option {
	return func(c *Client) {
		if host != "" {
			c.host = host
		}
		if port > 0 {
			c.port = port
		}
	}
}

func WithGroup(gid int) Option {
	return func(c *Client) { c.group = gid }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.obs = o
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithKeepalive меняет период и источник tick (нужно тестам).
func WithKeepalive(interval time.Duration, tick TickSource) Option {
	return func(c *Client) {
		c.keepaliveInterval = interval
		c.tick = tick
	}
}

// WithHandshakeTimeout ограничивает время от connect до входа в группу.
// 0 — ждать бесконечно.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) { c.handshakeTimeout = d }
}

func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) { c.writeTimeout = d }
}
