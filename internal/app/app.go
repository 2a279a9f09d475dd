package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EgorLis/dybarrage/internal/barrage"
	"github.com/EgorLis/dybarrage/internal/metrics"
	"github.com/EgorLis/dybarrage/internal/relay"
)

const shutdownTimeout = 3 * time.Second

// App — клиент одной комнаты вместе с консолью и ретранслятором.
type App struct {
	cfg Config
	log *slog.Logger

	client  *barrage.Client
	metrics *metrics.Collector
	hub     *relay.Hub

	outMu sync.Mutex
	out   io.Writer

	srv *http.Server
	ln  net.Listener

	chats   atomic.Int64
	started time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// New собирает приложение. Конфиг должен быть уже проверен Validate.
func New(cfg Config, log *slog.Logger, out io.Writer, opts ...barrage.Option) *App {
	if log == nil {
		log = slog.Default()
	}
	if out == nil {
		out = io.Discard
	}
	a := &App{
		cfg:     cfg,
		log:     log,
		out:     out,
		metrics: metrics.New(),
	}
	a.hub = relay.NewHub(log, a.metrics.Subscribers)

	copts := append(cfg.ClientOptions(),
		barrage.WithLogger(log),
		barrage.WithObserver(a.metrics),
	)
	a.client = barrage.New(cfg.Room, append(copts, opts...)...)
	a.setHandlers()
	return a
}

func (a *App) setHandlers() {
	c := a.client

	c.OnConnecting = func() { a.log.Info("connecting", "addr", c.Addr()) }
	c.OnConnected = func() { a.log.Info("connected", "addr", c.Addr()) }

	c.OnLogin = func(r barrage.LoginResult) {
		a.log.Info("logged in", "userid", r.UserID, "username", r.Username)
	}
	c.OnJoin = func() { a.log.Info("joined group", "gid", c.Group()) }

	c.OnChat = func(m barrage.ChatMessage) {
		a.chats.Add(1)
		a.metrics.ChatMessage()
		if !a.cfg.Quiet {
			a.println(fmt.Sprintf("%s(%s) : %s", m.Nickname, m.Level, m.Text))
		}
		a.hub.Broadcast(relay.FromChat(m, a.cfg.Room))
	}

	c.OnError = func(err error) { a.log.Warn("barrage error", "err", err) }
	c.OnDisconnected = func() { a.log.Info("disconnected") }
}

func (a *App) println(s string) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	_, _ = fmt.Fprintln(a.out, s)
}

// Start поднимает ретранслятор (если задан Listen) и подключается к комнате.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopCh != nil {
		return errors.New("app: already started")
	}

	if a.cfg.Listen != "" {
		ln, err := net.Listen("tcp", a.cfg.Listen)
		if err != nil {
			return fmt.Errorf("app: listen %s: %w", a.cfg.Listen, err)
		}
		a.ln = ln
		a.srv = &http.Server{
			Handler:           relay.NewRouter(a.hub, a.metrics.Registry(), a.Health),
			ReadHeaderTimeout: 5 * time.Second,
		}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.log.Info("relay listening", "addr", ln.Addr().String())
			if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("relay server", "err", err)
			}
		}()
	}

	if err := a.client.Start(ctx); err != nil {
		a.closeRelay()
		a.wg.Wait()
		return err
	}
	a.started = time.Now()
	a.stopCh = make(chan struct{})

	// сторож для остановки
	stopCh := a.stopCh
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-stopCh
		a.client.Stop()
		a.closeRelay()
	}()
	return nil
}

func (a *App) closeRelay() {
	a.hub.Close()
	if a.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.srv.Shutdown(ctx); err != nil {
		a.log.Warn("relay shutdown", "err", err)
	}
}

func (a *App) Stop() {
	a.mu.Lock()
	ch := a.stopCh
	a.stopCh = nil
	a.mu.Unlock()

	if ch != nil {
		close(ch)
		a.wg.Wait()
	}
}

// Done закрывается вместе с сессией: по Stop или по обрыву соединения.
func (a *App) Done() <-chan struct{} { return a.client.Done() }

// RelayAddr — фактический адрес ретранслятора или "" если он не поднят.
func (a *App) RelayAddr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ln == nil {
		return ""
	}
	return a.ln.Addr().String()
}

func (a *App) Client() *barrage.Client     { return a.client }
func (a *App) Metrics() *metrics.Collector { return a.metrics }
func (a *App) Chats() int64                { return a.chats.Load() }

func (a *App) Health() relay.Health {
	st := a.client.State()
	return relay.Health{
		Room:        a.cfg.Room,
		State:       st.String(),
		Subscribers: a.hub.Len(),
		Healthy:     a.client.IsConnected(),
	}
}

func (a *App) Status() string {
	var up time.Duration
	a.mu.Lock()
	if !a.started.IsZero() {
		up = time.Since(a.started).Truncate(time.Second)
	}
	a.mu.Unlock()
	return fmt.Sprintf("room %s gid %d @ %s: %s, chats %d, subscribers %d, uptime %s",
		a.cfg.Room, a.client.Group(), a.client.Addr(), a.client.State(),
		a.chats.Load(), a.hub.Len(), up)
}
