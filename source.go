package feedgen

import (
	"io"
	"sync"
)

// Source is the interface for getting raw documents one at a time. Record
// returns io.EOF when the source is exhausted. Implementations of Source
// should be thread safe.
type Source interface {
	Record() (interface{}, error)
}

// NamedReadCloser is an io.ReadCloser with a name, usually a file name or an
// object key.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
}

// RawSource is an interface for getting streams of document data, such as
// the files in a directory or the objects in a bucket. NextReader returns
// io.EOF when there are no more streams.
type RawSource interface {
	NextReader() (NamedReadCloser, error)
}

// PeekingSource wraps a Source and lets the next record be inspected without
// consuming it.
type PeekingSource struct {
	mu     sync.Mutex
	src    Source
	peeked bool
	rec    interface{}
	err    error
}

// NewPeekingSource wraps src.
func NewPeekingSource(src Source) *PeekingSource {
	return &PeekingSource{src: src}
}

// Peek returns what the next call to Record will return.
func (p *PeekingSource) Peek() (interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.peeked {
		p.rec, p.err = p.src.Record()
		p.peeked = true
	}
	return p.rec, p.err
}

// Record implements Source.
func (p *PeekingSource) Record() (interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peeked {
		p.peeked = false
		rec, err := p.rec, p.err
		p.rec, p.err = nil, nil
		return rec, err
	}
	return p.src.Record()
}

// SliceSource is a Source over an in-memory list of records.
type SliceSource struct {
	mu    sync.Mutex
	items []interface{}
}

// NewSliceSource returns a Source which yields items in order and then
// io.EOF.
func NewSliceSource(items ...interface{}) *SliceSource {
	return &SliceSource{items: items}
}

// Record implements Source.
func (s *SliceSource) Record() (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return nil, io.EOF
	}
	r := s.items[0]
	s.items = s.items[1:]
	return r, nil
}
