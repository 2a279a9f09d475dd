package barrage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/EgorLis/dybarrage/internal/stt"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func TestFrameWriterConcurrentSends(t *testing.T) {
	var out syncBuffer
	fw := newFrameWriter(&out, 0, nil)
	done := make(chan struct{})
	go func() {
		fw.run()
		close(done)
	}()

	const producers, perProducer = 8, 50
	var wg sync.WaitGroup
	total := 0
	for p := 0; p < producers; p++ {
		for i := 0; i < perProducer; i++ {
			total += len(fmt.Sprintf("type@=keeplive/tick@=%d-%d/", p, i)) + 13
		}
	}
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := fw.Send(stt.Encode(fmt.Sprintf("type@=keeplive/tick@=%d-%d/", p, i))); err != nil {
					t.Error(err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for out.Len() < total {
		if time.Now().After(deadline) {
			t.Fatalf("wrote %d of %d bytes", out.Len(), total)
		}
		time.Sleep(time.Millisecond)
	}
	fw.Close()
	<-done

	// все кадры должны читаться целыми, без перемешивания
	fr := stt.NewFrameReader(bytes.NewReader(out.Bytes()))
	next := make(map[int]int)
	for n := 0; n < producers*perProducer; n++ {
		raw, err := fr.ReadFrame()
		if err != nil {
			t.Fatal(err)
		}
		msg, err := stt.Decode(raw, len(raw))
		if err != nil {
			t.Fatal(err)
		}
		var p, i int
		if _, err := fmt.Sscanf(msg["tick"], "%d-%d", &p, &i); err != nil {
			t.Fatal(err)
		}
		// порядок одного производителя сохраняется
		if i != next[p] {
			t.Fatalf("producer %d: got frame %d, want %d", p, i, next[p])
		}
		next[p]++
	}
	if _, err := fr.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Fatalf("trailing data: %v", err)
	}
}

func TestFrameWriterClosed(t *testing.T) {
	fw := newFrameWriter(io.Discard, 0, nil)
	fw.Close()
	fw.Close()
	if err := fw.Send([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v", err)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("boom") }

func TestFrameWriterWriteError(t *testing.T) {
	errs := make(chan error, 1)
	fw := newFrameWriter(failWriter{}, 0, func(err error) { errs <- err })
	done := make(chan struct{})
	go func() {
		fw.run()
		close(done)
	}()

	if err := fw.Send(stt.Encode("type@=keeplive/tick@=1/")); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errs:
		if err.Error() != "boom" {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("write error not reported")
	}
	<-done
	if err := fw.Send([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after write error: %v", err)
	}
	if n := fw.Pending(); n != 0 {
		t.Fatalf("pending = %d", n)
	}
}
