package barrage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/EgorLis/dybarrage/internal/stt"
)

const tracerName = "github.com/EgorLis/dybarrage/internal/barrage"

var (
	ErrAlreadyStarted   = errors.New("barrage: already started")
	ErrClosed           = errors.New("barrage: connection closed")
	ErrNotConnected     = errors.New("barrage: not connected")
	ErrHandshakeTimeout = errors.New("barrage: handshake timeout")
)

// Client — сессия одной комнаты: логин, вход в группу, приём чата и
// keepalive. Одноразовый: после Stop (или обрыва) нужен новый Client.
type Client struct {
	room  string
	host  string
	port  int
	group int

	dialTimeout       time.Duration
	writeTimeout      time.Duration
	handshakeTimeout  time.Duration
	keepaliveInterval time.Duration
	tick              TickSource

	log       *slog.Logger
	obs       Observer
	tracer    trace.Tracer
	keepalive *Keepalive
	now       func() time.Time

	mu    sync.Mutex
	state State
	conn  net.Conn
	out   sender
	span  trace.Span
	err   error
	done  chan struct{}
	wg    sync.WaitGroup

	// События (по аналогии с EventEmitter). Вызываются из горутины чтения,
	// поэтому Stop из них звать нельзя — будет дедлок на ожидании.
	OnConnecting   func()
	OnConnected    func()
	OnLogin        func(LoginResult)
	OnJoin         func()
	OnChat         func(ChatMessage)
	OnMessage      func(stt.Message)
	OnError        func(error)
	OnDisconnected func()
}

func New(room string, opts ...Option) *Client {
	c := &Client{
		room:         room,
		host:         DefaultHost,
		port:         DefaultPort,
		group:        DefaultGroup,
		writeTimeout: defaultWriteTimeout,
		log:          slog.Default(),
		obs:          nopObserver{},
		tracer:       otel.Tracer(tracerName),
		now:          time.Now,
		done:         make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("room", room)
	c.keepalive = NewKeepalive(c.keepaliveInterval, c.tick, c.log)
	return c
}

func (c *Client) Room() string      { return c.room }
func (c *Client) Group() int        { return c.group }
func (c *Client) Addr() string      { return net.JoinHostPort(c.host, strconv.Itoa(c.port)) }
func (c *Client) IsConnected() bool { return c.connected() }

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done закрывается, когда сессия перешла в Closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err — причина закрытия: nil до Closed и после обычного Stop.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Start подключается к серверу, отправляет логин, запускает чтение и
// keepalive. Ошибки резолва и connect возвращаются сразу, без повторов.
// Отмена ctx после успешного Start закрывает сессию.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.setStateLocked(Connecting)
	c.mu.Unlock()

	if c.OnConnecting != nil {
		c.OnConnecting()
	}

	attrs := trace.WithAttributes(
		attribute.String("barrage.room", c.room),
		attribute.String("net.peer.name", c.host),
		attribute.Int("net.peer.port", c.port),
	)
	dialCtx, dialSpan := c.tracer.Start(ctx, "barrage.dial", attrs)
	conn, err := c.dial(dialCtx)
	if err != nil {
		dialSpan.RecordError(err)
		dialSpan.SetStatus(codes.Error, err.Error())
		dialSpan.End()
		err = fmt.Errorf("barrage: connect %s: %w", c.Addr(), err)
		c.shutdown(err)
		return err
	}
	dialSpan.End()

	_, span := c.tracer.Start(ctx, "barrage.session", attrs)
	out := newFrameWriter(conn, c.writeTimeout, c.onWriteError)

	c.mu.Lock()
	if c.state != Connecting {
		// Stop пришёл, пока шёл connect
		c.mu.Unlock()
		_ = conn.Close()
		span.End()
		return ErrClosed
	}
	c.conn, c.out, c.span = conn, out, span
	c.setStateLocked(LoggingIn)
	// Add под c.mu: Stop доходит до wg.Wait только после shutdown
	c.wg.Add(2)
	if c.handshakeTimeout > 0 {
		c.wg.Add(1)
	}
	c.keepalive.Start(c)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		out.run()
	}()
	go c.readLoop(conn)
	if c.handshakeTimeout > 0 {
		go c.watchHandshake(c.handshakeTimeout)
	}

	c.log.Info("connected", "addr", conn.RemoteAddr().String())
	if c.OnConnected != nil {
		c.OnConnected()
	}

	if err := c.send(TypeLoginReq, c.loginPayload()); err != nil {
		c.shutdown(err)
		return err
	}

	// закрыть по отмене контекста
	go func() {
		select {
		case <-ctx.Done():
			c.shutdown(ctx.Err())
		case <-c.done:
		}
	}()
	return nil
}

// Stop закрывает сокет и ждёт, пока остановятся чтение, запись и keepalive.
// Повторный вызов безопасен.
func (c *Client) Stop() {
	c.shutdown(nil)
	c.wg.Wait()
	c.keepalive.Wait()
}

// shutdown переводит сессию в Closed. Возвращает false, если уже закрыта.
func (c *Client) shutdown(cause error) bool {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return false
	}
	prev := c.state
	c.err = cause
	c.setStateLocked(Closed)
	conn, out, span := c.conn, c.out, c.span
	c.mu.Unlock()

	close(c.done)
	if out != nil {
		out.Close()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if span != nil {
		if cause != nil && !errors.Is(cause, context.Canceled) {
			span.RecordError(cause)
			span.SetStatus(codes.Error, cause.Error())
		}
		span.End()
	}

	if prev != Disconnected {
		c.log.Info("disconnected", "from", prev.String())
		if c.OnDisconnected != nil {
			c.OnDisconnected()
		}
	}
	return true
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{
		Timeout:   c.dialTimeout,
		KeepAlive: dialerKeepAlive,
		Control:   controlSocket,
	}
	return d.DialContext(ctx, "tcp", c.Addr())
}

// setStateLocked меняет состояние; c.mu должен быть захвачен.
func (c *Client) setStateLocked(to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.obs.StateChanged(from, to)
	if c.span != nil {
		c.span.AddEvent("state", trace.WithAttributes(attribute.String("barrage.state", to.String())))
	}
}

// transition — compare-and-set состояния.
func (c *Client) transition(from, to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != from {
		return false
	}
	c.setStateLocked(to)
	return true
}

func (c *Client) send(kind, payload string) error {
	c.mu.Lock()
	out := c.out
	c.mu.Unlock()
	if out == nil {
		return ErrNotConnected
	}
	if err := out.Send(stt.Encode(payload)); err != nil {
		return err
	}
	c.obs.FrameSent(kind)
	c.log.Debug("frame queued", "kind", kind, "payload", payload)
	return nil
}

func (c *Client) closed() <-chan struct{} { return c.done }

func (c *Client) connected() bool { return c.State().open() }

func (c *Client) onWriteError(err error) {
	if c.State() == Closed {
		return
	}
	c.log.Warn("write failed", "err", err)
	c.obs.FrameDropped("write_error")
}

func (c *Client) loginPayload() string {
	return stt.Fields{
		{Key: "type", Value: TypeLoginReq},
		{Key: "roomid", Value: c.room},
	}.String()
}

func (c *Client) joinGroupPayload() string {
	return stt.Fields{
		{Key: "type", Value: TypeJoinGroup},
		{Key: "rid", Value: c.room},
		{Key: "gid", Value: strconv.Itoa(c.group)},
	}.String()
}

func (c *Client) watchHandshake(d time.Duration) {
	defer c.wg.Done()
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.done:
		return
	case <-t.C:
	}
	st := c.State()
	if st == Streaming || st == Closed {
		return
	}
	err := fmt.Errorf("%w: %s in state %s", ErrHandshakeTimeout, d, st)
	c.log.Warn("handshake timeout", "state", st.String(), "after", d)
	if c.OnError != nil {
		c.OnError(err)
	}
	c.shutdown(err)
}
