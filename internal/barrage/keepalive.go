package barrage

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/EgorLis/dybarrage/internal/stt"
)

// KeepaliveInterval — период сердцебиения, которого ждёт сервер.
const KeepaliveInterval = 40 * time.Second

// TickSource выдаёт значение tick для очередного keepalive (>= 0, 31 бит).
type TickSource func() int32

// RandomTick — источник по умолчанию.
func RandomTick() int32 {
	return rand.Int32N(math.MaxInt32)
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// keepaliveConn — то, что планировщику нужно от соединения.
type keepaliveConn interface {
	send(kind, payload string) error
	closed() <-chan struct{}
	connected() bool
}

// Keepalive раз в Interval шлёт "type@=keeplive/tick@=N/". Запускается
// не больше одного раза; задача завершается сама, когда соединение закрыто.
// Ошибки отправки глотаются: реальную проблему покажет чтение.
type Keepalive struct {
	interval  time.Duration
	tick      TickSource
	newTicker func(time.Duration) ticker
	log       *slog.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

func NewKeepalive(interval time.Duration, tick TickSource, log *slog.Logger) *Keepalive {
	if interval <= 0 {
		interval = KeepaliveInterval
	}
	if tick == nil {
		tick = RandomTick
	}
	if log == nil {
		log = slog.Default()
	}
	return &Keepalive{
		interval:  interval,
		tick:      tick,
		newTicker: newTimeTicker,
		log:       log,
	}
}

// Start запускает периодическую задачу. Повторный вызов ничего не делает и
// возвращает false.
func (k *Keepalive) Start(conn keepaliveConn) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.running {
		return false
	}
	k.running = true

	t := k.newTicker(k.interval)
	k.wg.Add(1)
	go k.run(conn, t)
	return true
}

// Wait ждёт завершения задачи (после закрытия соединения).
func (k *Keepalive) Wait() { k.wg.Wait() }

func (k *Keepalive) payload() string {
	return stt.Fields{
		{Key: "type", Value: TypeKeepalive},
		{Key: "tick", Value: strconv.FormatInt(int64(k.tick()), 10)},
	}.String()
}

func (k *Keepalive) run(conn keepaliveConn, t ticker) {
	defer k.wg.Done()
	defer t.Stop()
	for {
		select {
		case <-conn.closed():
			return
		case <-t.C():
			if !conn.connected() {
				return
			}
			if err := conn.send(TypeKeepalive, k.payload()); err != nil {
				k.log.Debug("keepalive send failed", "err", err)
			}
		}
	}
}
