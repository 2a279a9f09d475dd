package barrage

import (
	"io"
	"sync"
	"time"

	"github.com/eapache/queue"
)

// sender — единственный путь записи в сокет.
type sender interface {
	Send(frame []byte) error
	Close()
}

type deadliner interface {
	SetWriteDeadline(t time.Time) error
}

// frameWriter сериализует запись: логин/вход в группу и keepalive кладут
// кадры в очередь, пишет только горутина run.
type frameWriter struct {
	w       io.Writer
	timeout time.Duration
	onErr   func(error)

	mu     sync.Mutex
	q      *queue.Queue
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newFrameWriter(w io.Writer, timeout time.Duration, onErr func(error)) *frameWriter {
	return &frameWriter{
		w:       w,
		timeout: timeout,
		onErr:   onErr,
		q:       queue.New(),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Send ставит кадр в очередь и не ждёт записи.
func (fw *frameWriter) Send(frame []byte) error {
	fw.mu.Lock()
	if fw.closed {
		fw.mu.Unlock()
		return ErrClosed
	}
	fw.q.Add(frame)
	fw.mu.Unlock()

	select {
	case fw.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close останавливает run; недописанные кадры выбрасываются.
func (fw *frameWriter) Close() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.closed {
		return
	}
	fw.closed = true
	close(fw.done)
}

// Pending — сколько кадров ждёт записи.
func (fw *frameWriter) Pending() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.q.Length()
}

func (fw *frameWriter) next() ([]byte, bool) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.closed || fw.q.Length() == 0 {
		return nil, false
	}
	return fw.q.Remove().([]byte), true
}

func (fw *frameWriter) run() {
	for {
		select {
		case <-fw.done:
			return
		case <-fw.wake:
		}
		for {
			frame, ok := fw.next()
			if !ok {
				break
			}
			if d, ok := fw.w.(deadliner); ok && fw.timeout > 0 {
				_ = d.SetWriteDeadline(time.Now().Add(fw.timeout))
			}
			if _, err := fw.w.Write(frame); err != nil {
				fw.Close()
				if fw.onErr != nil {
					fw.onErr(err)
				}
				return
			}
		}
	}
}
