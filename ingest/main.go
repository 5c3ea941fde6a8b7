// Package ingest holds the configuration shared by every feedgen command and
// runs a Pusher from it.
package ingest

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pilosa/feedgen"
	"github.com/pilosa/feedgen/boltdb"
	"github.com/pilosa/feedgen/geohash"
	"github.com/pilosa/feedgen/leveldb"
	"github.com/pilosa/feedgen/termstat"
	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Main holds all config for building and sending feeds.
type Main struct {
	DataSource       string   `help:"Data source name of every record sent."`
	FeedType         string   `help:"Kind of feed to send: content, contenturl or metadataurl."`
	FeedIDPrefix     string   `help:"If set, feeds get sequential ids with this prefix instead of UUIDs."`
	MaxFeedSize      string   `help:"Feeds are sent once they come close to this size, e.g. 10MB."`
	MaxDocumentSize  string   `help:"Content larger than this is replaced by alternate content."`
	ContentEncodings []string `help:"Content encodings the appliance accepts, e.g. base64binary,base64compressed."`
	InheritedACLs    bool     `help:"The appliance supports inherited and deny ACLs."`
	ContentURLPrefix string   `help:"URL prefix the appliance uses to fetch content of contenturl feeds."`
	WrapLines        bool     `help:"Wrap base64 content at 76 columns."`
	DocIDField       string   `help:"Record field copied into google:docid when a record has none."`
	DeleteProperties []string `help:"Properties removed from every document before it is sent."`
	Concurrency      int      `help:"Number of goroutines parsing and encoding documents."`
	FeedLogDB        string   `help:"Bolt database file to keep feed logs in. Empty disables feed logs."`
	JournalDir       string   `help:"LevelDB directory in which to record the last feed of each document. Empty disables it."`
	GeohashLat       string   `help:"Property holding latitude. Set with geohash-lon to add a geohash property."`
	GeohashLon       string   `help:"Property holding longitude."`
	GeohashField     string   `help:"Property to store the geohash in."`
	GeohashPrecision uint     `help:"Number of geohash characters."`
	LogPath          string   `help:"Log file to write to. Empty means stderr."`
	Verbose          bool     `help:"Enable verbose logging, tracing every property written."`
	TermStats        bool     `help:"Print counters to stderr while running."`

	NewSource func() (feedgen.Source, error) `flag:"-"`
	NewSink   func() (feedgen.Sink, error)   `flag:"-"`
	Parser    feedgen.Parser                 `flag:"-"`
	Stats     feedgen.Statter                `flag:"-"`

	kind     feedgen.FeedKind
	limits   feedgen.SizeLimits
	feedLogs *boltdb.FeedLogs
	journal  *leveldb.Journal
	closers  []io.Closer

	log logger.Logger
}

// Log returns the logger set up by Run.
func (m *Main) Log() logger.Logger { return m.log }

// NewMain gets a Main with the default configuration.
func NewMain() *Main {
	return &Main{
		DataSource:       "feedgen",
		FeedType:         "content",
		MaxFeedSize:      "10MB",
		MaxDocumentSize:  "30MB",
		ContentEncodings: []string{"base64binary", "base64compressed"},
		DocIDField:       "id",
		Concurrency:      1,
		GeohashField:     "geohash",
		GeohashPrecision: 6,
	}
}

// Run sets everything up and pushes documents until the source is
// exhausted. An interrupt closes the source so that the last feed is still
// sent.
func (m *Main) Run() (err error) {
	defer func() {
		if cerr := m.teardown(); err == nil {
			err = cerr
		}
	}()
	err = m.setup()
	if err != nil {
		return errors.Wrap(err, "setting up")
	}

	src, err := m.NewSource()
	if err != nil {
		return errors.Wrap(err, "getting source")
	}
	sink, err := m.NewSink()
	if err != nil {
		return errors.Wrap(err, "getting sink")
	}
	p := m.NewPusher(src, sink)

	eg := errgroup.Group{}
	done := make(chan struct{})
	eg.Go(func() error {
		defer close(done)
		return errors.Wrap(p.Run(), "running pusher")
	})
	if c, ok := src.(io.Closer); ok {
		eg.Go(func() error {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)
			select {
			case <-sig:
				m.log.Printf("interrupted, sending last feed")
				return errors.Wrap(c.Close(), "closing source")
			case <-done:
				return nil
			}
		})
	}
	return eg.Wait()
}

// NewPusher builds a Pusher from the configuration. It must be called after
// setup.
func (m *Main) NewPusher(src feedgen.Source, sink feedgen.Sink) *feedgen.Pusher {
	p := feedgen.NewPusher(src, m.parser(), sink, m.DataSource, m.kind)
	p.ParseConcurrency = m.Concurrency
	p.FeedOptions = m.feedOptions()
	p.Filter = m.filter()
	p.Log = m.log
	p.Stats = m.Stats
	if m.feedLogs != nil {
		p.FeedLogs = m.feedLogs
	}
	if m.journal != nil {
		p.Journal = m.journal
	}
	return p
}

func (m *Main) validate() error {
	if m.DataSource == "" {
		return errors.New("a data source name is required")
	}
	if m.NewSource == nil {
		return errors.New("no source configured")
	}
	if m.NewSink == nil {
		return errors.New("no sink configured")
	}
	if m.Concurrency < 1 {
		return errors.Errorf("concurrency must be at least 1, got %d", m.Concurrency)
	}
	if (m.GeohashLat == "") != (m.GeohashLon == "") {
		return errors.New("geohash-lat and geohash-lon must be set together")
	}
	return nil
}

func (m *Main) setup() (err error) {
	if err := m.validate(); err != nil {
		return errors.Wrap(err, "validating configuration")
	}

	// setup logging
	logOut := io.Writer(os.Stderr)
	if m.LogPath != "" {
		f, err := os.OpenFile(m.LogPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return errors.Wrap(err, "opening log file")
		}
		m.closers = append(m.closers, f)
		logOut = f
	}
	if m.Verbose {
		m.log = logger.NewVerboseLogger(logOut)
	} else {
		m.log = logger.NewStandardLogger(logOut)
	}

	if m.Stats == nil {
		if m.TermStats {
			ts := termstat.NewCollector(os.Stderr)
			m.closers = append(m.closers, ts)
			m.Stats = ts
		} else {
			m.Stats = feedgen.NopStatter{}
		}
	}

	m.kind, err = feedgen.ParseFeedKind(m.FeedType)
	if err != nil {
		return err
	}
	m.limits = feedgen.DefaultSizeLimits
	if m.MaxFeedSize != "" {
		size, err := feedgen.ParseBytes(m.MaxFeedSize)
		if err != nil {
			return errors.Wrap(err, "parsing max feed size")
		}
		m.limits.MaxFeedSize = int(size)
	}
	if m.MaxDocumentSize != "" {
		size, err := feedgen.ParseBytes(m.MaxDocumentSize)
		if err != nil {
			return errors.Wrap(err, "parsing max document size")
		}
		m.limits.MaxDocumentSize = int64(size)
	}

	if m.FeedLogDB != "" {
		m.feedLogs, err = boltdb.NewFeedLogs(m.FeedLogDB)
		if err != nil {
			return errors.Wrap(err, "opening feed log db")
		}
		m.closers = append(m.closers, m.feedLogs)
	}
	if m.JournalDir != "" {
		m.journal, err = leveldb.NewJournal(m.JournalDir)
		if err != nil {
			return errors.Wrap(err, "opening journal")
		}
		m.closers = append(m.closers, m.journal)
	}
	return nil
}

func (m *Main) teardown() error {
	var first error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	m.closers = nil
	return errors.Wrap(first, "tearing down")
}

func (m *Main) parser() feedgen.Parser {
	if m.Parser != nil {
		return m.Parser
	}
	parser := feedgen.NewDefaultGenericParser()
	parser.DocIDField = m.DocIDField
	return parser
}

func (m *Main) feedOptions() []feedgen.FeedOption {
	opts := []feedgen.FeedOption{
		feedgen.OptFeedSizeLimits(m.limits),
		feedgen.OptFeedConnection(feedgen.StaticConnection{
			Encodings:     m.ContentEncodings,
			InheritedACLs: m.InheritedACLs,
		}),
		feedgen.OptFeedURLs(feedgen.ConnectorURLs{
			DataSource:       m.DataSource,
			Kind:             m.kind,
			ContentURLPrefix: m.ContentURLPrefix,
		}),
		feedgen.OptFeedWrapLines(m.WrapLines),
		feedgen.OptFeedLogger(m.log),
	}
	if m.FeedIDPrefix != "" {
		opts = append(opts, feedgen.OptFeedIDGenerator(feedgen.NewNexter(feedgen.NexterPrefix(m.FeedIDPrefix))))
	}
	return opts
}

func (m *Main) filter() feedgen.Filter {
	var filters []feedgen.Filter
	if len(m.DeleteProperties) > 0 {
		filters = append(filters, feedgen.DeleteProperties(m.DeleteProperties...))
	}
	if m.GeohashLat != "" {
		gt := &geohash.Transformer{
			Precision:  m.GeohashPrecision,
			LatProp:    m.GeohashLat,
			LonProp:    m.GeohashLon,
			ResultProp: m.GeohashField,
			Log:        m.log,
		}
		filters = append(filters, gt.Filter())
	}
	if len(filters) == 0 {
		return nil
	}
	return feedgen.Chain(filters...)
}
