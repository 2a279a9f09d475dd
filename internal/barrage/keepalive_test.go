package barrage

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/EgorLis/dybarrage/internal/stt"
)

// fakeClock раздаёт тики вручную: Advance(81s) при периоде 40s даст два тика.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Duration
	tickers []*fakeTicker
}

type fakeTicker struct {
	d       time.Duration
	next    time.Duration
	c       chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               { t.once.Do(func() { close(t.stopped) }) }

func (fc *fakeClock) newTicker(d time.Duration) ticker {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	t := &fakeTicker{d: d, next: fc.now + d, c: make(chan time.Time), stopped: make(chan struct{})}
	fc.tickers = append(fc.tickers, t)
	return t
}

func (fc *fakeClock) Advance(d time.Duration) {
	fc.mu.Lock()
	target := fc.now + d
	tickers := append([]*fakeTicker(nil), fc.tickers...)
	fc.now = target
	fc.mu.Unlock()

	for _, t := range tickers {
		for t.next <= target {
			select {
			case t.c <- time.Time{}:
			case <-t.stopped:
				return
			}
			t.next += t.d
		}
	}
}

func (fc *fakeClock) count() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.tickers)
}

type fakeConn struct {
	mu      sync.Mutex
	sent    []string
	kinds   []string
	err     error
	open    bool
	done    chan struct{}
	closeMu sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{open: true, done: make(chan struct{})}
}

func (f *fakeConn) send(kind, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
	f.sent = append(f.sent, payload)
	return f.err
}

func (f *fakeConn) closed() <-chan struct{} { return f.done }

func (f *fakeConn) connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeConn) close() {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
	f.closeMu.Do(func() { close(f.done) })
}

func (f *fakeConn) payloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// waitSent ждёт n отправок: тик уже принят, но send мог ещё не случиться.
func (f *fakeConn) waitSent(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(f.payloads()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d sends, have %d", n, len(f.payloads()))
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestKeepalive(tick TickSource) (*Keepalive, *fakeClock) {
	fc := &fakeClock{}
	k := NewKeepalive(KeepaliveInterval, tick, discardLogger())
	k.newTicker = fc.newTicker
	return k, fc
}

func TestKeepaliveTwoTicksIn81Seconds(t *testing.T) {
	k, fc := newTestKeepalive(func() int32 { return 7 })
	conn := newFakeConn()

	if !k.Start(conn) {
		t.Fatal("first Start must start the task")
	}
	fc.Advance(81 * time.Second)
	conn.waitSent(t, 2)
	conn.close()
	k.Wait()

	got := conn.payloads()
	if len(got) != 2 {
		t.Fatalf("sent %d keepalives, want 2: %v", len(got), got)
	}
	for _, p := range got {
		if p != "type@=keeplive/tick@=7/" {
			t.Fatalf("payload = %q", p)
		}
	}
	if conn.kinds[0] != TypeKeepalive {
		t.Fatalf("kind = %q", conn.kinds[0])
	}
}

func TestKeepaliveStartIsIdempotent(t *testing.T) {
	k, fc := newTestKeepalive(func() int32 { return 1 })
	conn := newFakeConn()

	if !k.Start(conn) {
		t.Fatal("first Start returned false")
	}
	if k.Start(conn) {
		t.Fatal("second Start returned true")
	}
	if n := fc.count(); n != 1 {
		t.Fatalf("%d tickers created, want 1", n)
	}

	fc.Advance(40 * time.Second)
	conn.waitSent(t, 1)
	conn.close()
	k.Wait()
	if n := len(conn.payloads()); n != 1 {
		t.Fatalf("sent %d keepalives, want 1", n)
	}
}

func TestKeepaliveStopsOnClosedConnection(t *testing.T) {
	k, fc := newTestKeepalive(nil)
	conn := newFakeConn()
	k.Start(conn)

	// соединение закрылось, но done ещё не сработал: тик должен это увидеть
	conn.mu.Lock()
	conn.open = false
	conn.mu.Unlock()
	fc.Advance(40 * time.Second)
	k.Wait()

	if n := len(conn.payloads()); n != 0 {
		t.Fatalf("sent %d keepalives on closed connection", n)
	}
}

func TestKeepaliveSwallowsSendErrors(t *testing.T) {
	k, fc := newTestKeepalive(func() int32 { return 3 })
	conn := newFakeConn()
	conn.err = errors.New("broken pipe")
	k.Start(conn)

	fc.Advance(120 * time.Second)
	conn.waitSent(t, 3)
	conn.close()
	k.Wait()

	if n := len(conn.payloads()); n != 3 {
		t.Fatalf("attempted %d sends, want 3", n)
	}
}

func TestKeepalivePayloadParses(t *testing.T) {
	k, _ := newTestKeepalive(func() int32 { return 2147483646 })
	msg, err := stt.Parse(k.payload())
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type() != TypeKeepalive || msg["tick"] != "2147483646" {
		t.Fatalf("msg = %v", msg)
	}
}

func TestRandomTickRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		if v := RandomTick(); v < 0 {
			t.Fatalf("tick %d is negative", v)
		}
	}
	p := NewKeepalive(0, nil, nil).payload()
	if !strings.HasPrefix(p, "type@=keeplive/tick@=") {
		t.Fatalf("payload = %q", p)
	}
}
