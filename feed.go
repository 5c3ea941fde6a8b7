package feedgen

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrClosed is returned when a record is added to a closed Feed.
	ErrClosed = errors.New("feed is closed")
	// ErrNotClosed is returned when the bytes of an open Feed are requested.
	ErrNotClosed = errors.New("feed is not closed")
	// ErrUnsupportedEncoding fails a single document whose content encoding
	// the appliance does not accept. The Feed is not affected.
	ErrUnsupportedEncoding = errors.New("unsupported content encoding")
)

// SizeLimits bound the size of a feed and of the content of its documents.
type SizeLimits struct {
	MaxFeedSize     int
	MaxDocumentSize int64
}

// DefaultSizeLimits are used when a Feed is opened without OptFeedSizeLimits.
var DefaultSizeLimits = SizeLimits{
	MaxFeedSize:     10 * 1024 * 1024,
	MaxDocumentSize: 30 * 1024 * 1024,
}

// Fullness holds the tuning constants of the IsFull heuristic.
type Fullness struct {
	// Min is the number of average sized records below which the feed is
	// full.
	Min int
	// Max is the number of average sized records above which the feed is
	// not full.
	Max int
	// ReservePercent applies between Min and Max: the feed is full when
	// less than this share of the limit remains.
	ReservePercent int
}

// DefaultFullness is the heuristic used unless OptFeedFullness is given.
var DefaultFullness = Fullness{Min: 3, Max: 10, ReservePercent: 10}

// Full decides fullness for a feed with the given byte limit, bytes left and
// average record size.
func (f Fullness) Full(limit, bytesLeft, avg int) bool {
	if bytesLeft < f.Min*avg {
		return true
	} else if bytesLeft > f.Max*avg {
		return false
	}
	return bytesLeft < limit*f.ReservePercent/100
}

// Feed is one transmittable unit of the feed protocol. All methods are safe
// for concurrent use; record appends are serialized.
type Feed struct {
	mu sync.Mutex

	id         string
	dataSource string
	kind       FeedKind

	limits    SizeLimits
	fullness  Fullness
	conn      Connection
	encodings encodingSet
	encoding  ContentEncoding
	inherited bool

	urls      URLConstructor
	filter    Filter
	skip      NameSet
	ids       IDGenerator
	feedLog   io.Writer
	wrapLines bool
	log       Logger

	buf       *arena
	prefixLen int
	records   int
	closed    bool
}

// FeedOption is a functional option for Open.
type FeedOption func(f *Feed)

// OptFeedSizeLimits sets the feed and per-document size limits.
func OptFeedSizeLimits(l SizeLimits) FeedOption {
	return func(f *Feed) {
		f.limits = l
	}
}

// OptFeedFullness replaces the fullness heuristic's constants.
func OptFeedFullness(full Fullness) FeedOption {
	return func(f *Feed) {
		f.fullness = full
	}
}

// OptFeedConnection sets the capabilities of the receiving appliance.
func OptFeedConnection(c Connection) FeedOption {
	return func(f *Feed) {
		f.conn = c
	}
}

// OptFeedURLs overrides the URL constructor. By default ConnectorURLs is
// used with the feed's data source and kind.
func OptFeedURLs(u URLConstructor) FeedOption {
	return func(f *Feed) {
		f.urls = u
	}
}

// OptFeedFilter sets a filter applied to every document before it is
// encoded, after the appliance specific ACL transform.
func OptFeedFilter(filter Filter) FeedOption {
	return func(f *Feed) {
		f.filter = filter
	}
}

// OptFeedSkipSet replaces the set of properties never sent as metadata.
func OptFeedSkipSet(s NameSet) FeedOption {
	return func(f *Feed) {
		f.skip = s
	}
}

// OptFeedIDGenerator sets the source of the feed's unique id.
func OptFeedIDGenerator(g IDGenerator) FeedOption {
	return func(f *Feed) {
		f.ids = g
	}
}

// OptFeedLog mirrors the markup of every record, minus content, to w.
func OptFeedLog(w io.Writer) FeedOption {
	return func(f *Feed) {
		f.feedLog = w
	}
}

// OptFeedWrapLines wraps base64 content at 76 columns, which keeps teed feed
// files readable.
func OptFeedWrapLines(wrap bool) FeedOption {
	return func(f *Feed) {
		f.wrapLines = wrap
	}
}

// OptFeedLogger sets the logger.
func OptFeedLogger(l Logger) FeedOption {
	return func(f *Feed) {
		f.log = l
	}
}

// Open creates a Feed and writes the protocol prefix for it.
func Open(dataSource string, kind FeedKind, opts ...FeedOption) (*Feed, error) {
	f := &Feed{
		dataSource: dataSource,
		kind:       kind,
		limits:     DefaultSizeLimits,
		fullness:   DefaultFullness,
		conn:       DefaultConnection,
		skip:       DefaultSkipSet,
		ids:        UUIDGenerator{},
		log:        NopLogger{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.limits.MaxFeedSize <= 0 {
		return nil, errors.Errorf("invalid max feed size %d", f.limits.MaxFeedSize)
	}
	if f.urls == nil {
		f.urls = ConnectorURLs{DataSource: dataSource, Kind: kind}
	}
	f.id = f.ids.UniqueID()
	f.inherited = f.conn.SupportsInheritedACLs()
	supported := f.conn.ContentEncodings()
	f.encodings = parseEncodings(supported)
	f.encoding = NegotiateEncoding(supported)
	f.filter = Chain(ACLTransform(f.conn), f.filter)

	f.buf = newArena(f.limits.MaxFeedSize)
	f.buf.WriteString(feedPrefix(dataSource, kind))
	f.prefixLen = f.buf.Len()
	return f, nil
}

// ID returns the unique id of the feed.
func (f *Feed) ID() string { return f.id }

// DataSource returns the data source of every record in the feed.
func (f *Feed) DataSource() string { return f.dataSource }

// Kind returns the feed kind.
func (f *Feed) Kind() FeedKind { return f.kind }

// Encoding returns the negotiated default content encoding.
func (f *Feed) Encoding() ContentEncoding { return f.encoding }

// RecordCount returns the number of records in the feed. A document may
// produce more than one record.
func (f *Feed) RecordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records
}

// Size returns the number of bytes written so far.
func (f *Feed) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf.Len()
}

// IsFull reports whether the feed should be closed and sent rather than
// take more records. It never refuses records itself.
func (f *Feed) IsFull() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	size := f.buf.Len()
	bytesLeft := f.limits.MaxFeedSize - size
	if f.records == 0 {
		return bytesLeft <= 0
	}
	return f.fullness.Full(f.limits.MaxFeedSize, bytesLeft, size/f.records)
}

// AddRecord encodes doc and appends its record(s) to the feed. If encoding
// fails the feed is rolled back to where it was before the call.
func (f *Feed) AddRecord(doc Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// The stream is owned by doc and closed whether or not it is written.
	content, err := contentStream(doc)
	if err != nil {
		return errors.Wrap(err, "getting content")
	}
	defer f.closeContent(content)
	if f.closed {
		return ErrClosed
	}
	filtered := f.filter(doc)
	if content, err = contentStream(filtered); err != nil {
		return errors.Wrap(err, "getting filtered content")
	}

	mark, records := f.buf.Len(), f.records
	var feedLog xmlBuilder
	err = f.wrapRecord(filtered, content, &feedLog)
	if err != nil {
		f.buf.truncate(mark)
		f.records = records
		return err
	}
	if f.feedLog != nil {
		if _, err := io.WriteString(f.feedLog, feedLog.String()); err != nil {
			f.log.Printf("writing feed log for feed %s: %v", f.id, err)
		}
	}
	return nil
}

// Truncate discards everything written past size. It panics if the feed is
// closed, or if size is smaller than the protocol prefix or larger than the
// current size.
func (f *Feed) Truncate(size int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		panic(fmt.Sprintf("truncate of closed feed %s", f.id))
	}
	if size < f.prefixLen {
		panic(fmt.Sprintf("truncate of feed %s to %d cuts into its %d byte prefix", f.id, size, f.prefixLen))
	}
	f.buf.truncate(size)
}

// Close writes the protocol suffix. Closing more than once does nothing.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.buf.WriteString(feedSuffix())
	}
	return nil
}

// Closed reports whether Close has been called.
func (f *Feed) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Bytes returns the complete feed. The slice must not be modified.
func (f *Feed) Bytes() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		return nil, ErrNotClosed
	}
	return f.buf.Bytes(), nil
}

// WriteTo writes the complete feed to w.
func (f *Feed) WriteTo(w io.Writer) (int64, error) {
	data, err := f.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), errors.Wrap(err, "writing feed")
}
