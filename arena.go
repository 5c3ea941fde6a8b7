package feedgen

import (
	"fmt"
	"io"
)

// maxGrowth caps how much the arena grows at once. Below the cap the arena
// doubles.
const maxGrowth = 8 * 1024 * 1024

// arena is the append-only byte buffer holding a feed. It can be truncated
// back to an earlier size but never shrinks its allocation.
type arena struct {
	buf []byte
}

func newArena(capacity int) *arena {
	if capacity < 0 {
		capacity = 0
	}
	return &arena{buf: make([]byte, 0, capacity)}
}

func (a *arena) Len() int { return len(a.buf) }

func (a *arena) Bytes() []byte { return a.buf }

// grow ensures room for at least n more bytes.
func (a *arena) grow(n int) {
	for cap(a.buf)-len(a.buf) < n {
		incr := cap(a.buf)
		if incr > maxGrowth {
			incr = maxGrowth
		}
		if incr < 4096 {
			incr = 4096
		}
		nb := make([]byte, len(a.buf), cap(a.buf)+incr)
		copy(nb, a.buf)
		a.buf = nb
	}
}

func (a *arena) Write(p []byte) (int, error) {
	a.grow(len(p))
	a.buf = append(a.buf, p...)
	return len(p), nil
}

func (a *arena) WriteString(s string) (int, error) {
	a.grow(len(s))
	a.buf = append(a.buf, s...)
	return len(s), nil
}

// truncate discards everything past size. Growing via truncate is a
// programming error.
func (a *arena) truncate(size int) {
	if size < 0 || size > len(a.buf) {
		panic(fmt.Sprintf("arena truncate to %d outside [0, %d]", size, len(a.buf)))
	}
	a.buf = a.buf[:size]
}

// ReadFrom reads r to EOF directly into the spare capacity of the arena.
func (a *arena) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	for {
		if len(a.buf) == cap(a.buf) {
			a.grow(1)
		}
		n, err := r.Read(a.buf[len(a.buf):cap(a.buf)])
		a.buf = a.buf[:len(a.buf)+n]
		total += int64(n)
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
