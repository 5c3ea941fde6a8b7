package mock

import (
	"sync"

	"github.com/pilosa/feedgen"
)

// MemSink collects the bytes of every feed sent to it.
type MemSink struct {
	mu    sync.Mutex
	Feeds [][]byte
	IDs   []string
	Err   error
}

// Send records the feed's bytes, or returns Err if it is set.
func (m *MemSink) Send(f *feedgen.Feed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	data, err := f.Bytes()
	if err != nil {
		return err
	}
	m.Feeds = append(m.Feeds, append([]byte(nil), data...))
	m.IDs = append(m.IDs, f.ID())
	return nil
}
