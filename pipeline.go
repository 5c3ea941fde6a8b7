package feedgen

// Parser is the interface for turning raw records from a Source into
// Documents. Implementations of Parser should be thread safe.
type Parser interface {
	Parse(data interface{}) (Document, error)
}

// ParserFunc can be wrapped around a function to make it implement the
// Parser interface. Similar to http.HandlerFunc.
type ParserFunc func(data interface{}) (Document, error)

// Parse implements Parser for ParserFunc.
func (p ParserFunc) Parse(data interface{}) (Document, error) {
	return p(data)
}

// Sink is the interface for delivering closed feeds, to an appliance or to
// an archive. Send is only called with closed feeds.
type Sink interface {
	Send(f *Feed) error
}

// SinkFunc can be wrapped around a function to make it implement the Sink
// interface.
type SinkFunc func(f *Feed) error

// Send implements Sink for SinkFunc.
func (s SinkFunc) Send(f *Feed) error {
	return s(f)
}

// FeedInfo describes a sent feed.
type FeedInfo struct {
	ID         string
	DataSource string
	Kind       FeedKind
	Records    int
	Size       int
}

// Info returns a FeedInfo describing f.
func (f *Feed) Info() FeedInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FeedInfo{
		ID:         f.id,
		DataSource: f.dataSource,
		Kind:       f.kind,
		Records:    f.records,
		Size:       f.buf.Len(),
	}
}

// FeedLogStore keeps the feed log of sent feeds.
type FeedLogStore interface {
	PutFeedLog(info FeedInfo, log []byte) error
}

// Journal remembers which feed last carried each document.
type Journal interface {
	Record(docIDs []string, feedID string) error
}
