package feedgen

import (
	"bytes"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Pusher reads documents from a Source, encodes them into feeds and hands
// every feed that fills up to a Sink.
type Pusher struct {
	ParseConcurrency int

	DataSource  string
	Kind        FeedKind
	FeedOptions []FeedOption
	Filter      Filter

	Stats    Statter
	Log      Logger
	Journal  Journal
	FeedLogs FeedLogStore

	src    Source
	parser Parser
	sink   Sink

	mu      sync.Mutex
	cur     *pendingFeed
	sendErr error
}

// pendingFeed is the feed being filled along with what is needed once it
// has been sent.
type pendingFeed struct {
	feed   *Feed
	log    *bytes.Buffer
	docIDs []string
}

// NewPusher gets a Pusher with a single parse goroutine, no filter, and no
// stats or logging.
func NewPusher(source Source, parser Parser, sink Sink, dataSource string, kind FeedKind) *Pusher {
	return &Pusher{
		ParseConcurrency: 1,
		DataSource:       dataSource,
		Kind:             kind,
		Stats:            NopStatter{},
		Log:              NopLogger{},
		src:              source,
		parser:           parser,
		sink:             sink,
	}
}

// Run consumes the source until it returns an error (io.EOF being the
// normal case), then sends the last feed if it has any records. Documents
// which fail to parse or encode are logged, counted and skipped. Run
// returns the first error returned by the Sink, Journal or FeedLogStore.
func (p *Pusher) Run() error {
	pwg := sync.WaitGroup{}
	for i := 0; i < p.ParseConcurrency; i++ {
		pwg.Add(1)
		go func() {
			defer pwg.Done()
			var err error
			for {
				var rec interface{}
				rec, err = p.src.Record()
				if err != nil {
					break
				}
				p.push(rec)
			}
			if err != io.EOF && err != nil {
				p.Log.Printf("error in push run loop: %v", err)
			}
		}()
	}
	pwg.Wait()

	p.mu.Lock()
	last := p.cur
	p.cur = nil
	p.mu.Unlock()
	if last != nil && last.feed.RecordCount() > 0 {
		p.send(last)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sendErr
}

func (p *Pusher) push(rec interface{}) {
	doc, err := p.parser.Parse(rec)
	if err != nil {
		p.Log.Printf("couldn't parse record %v, err: %v", rec, err)
		p.Stats.Count(StatFailed, 1, 1)
		return
	}
	if p.Filter != nil {
		doc = p.Filter(doc)
	}
	docID, err := DocID(doc)
	if err != nil {
		p.Log.Printf("couldn't get docid, err: %v", err)
		p.Stats.Count(StatFailed, 1, 1)
		return
	}

	p.mu.Lock()
	if p.cur == nil {
		if p.cur, err = p.open(); err != nil {
			p.mu.Unlock()
			p.Log.Printf("couldn't open feed: %v", err)
			p.Stats.Count(StatFailed, 1, 1)
			return
		}
	}
	cur := p.cur
	err = cur.feed.AddRecord(doc)
	if err == nil {
		cur.docIDs = append(cur.docIDs, docID)
	}
	var full *pendingFeed
	if cur.feed.IsFull() {
		full, p.cur = cur, nil
	}
	p.mu.Unlock()

	if err != nil {
		p.Log.Printf("couldn't add document '%s': %v", docID, err)
		p.Stats.Count(StatFailed, 1, 1)
	} else {
		p.Stats.Count(StatRecords, 1, 1)
	}
	if full != nil {
		p.send(full)
	}
}

func (p *Pusher) open() (*pendingFeed, error) {
	pf := &pendingFeed{}
	opts := append([]FeedOption{}, p.FeedOptions...)
	if p.FeedLogs != nil {
		pf.log = &bytes.Buffer{}
		opts = append(opts, OptFeedLog(pf.log))
	}
	f, err := Open(p.DataSource, p.Kind, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "opening feed")
	}
	pf.feed = f
	return pf, nil
}

// send closes the feed and delivers it, then records the feed log and
// journal entries for it.
func (p *Pusher) send(pf *pendingFeed) {
	f := pf.feed
	if err := f.Close(); err != nil {
		p.fail(errors.Wrapf(err, "closing feed %s", f.ID()))
		return
	}
	info := f.Info()
	if err := p.sink.Send(f); err != nil {
		p.fail(errors.Wrapf(err, "sending feed %s", f.ID()))
		return
	}
	p.Stats.Count(StatSent, 1, 1)
	p.Stats.Count(StatBytes, int64(info.Size), 1)
	p.Log.Debugf("sent feed %s: %d records, %s", info.ID, info.Records, Bytes(info.Size))

	if p.FeedLogs != nil && pf.log != nil {
		if err := p.FeedLogs.PutFeedLog(info, pf.log.Bytes()); err != nil {
			p.fail(errors.Wrapf(err, "storing feed log for %s", info.ID))
		}
	}
	if p.Journal != nil {
		if err := p.Journal.Record(pf.docIDs, info.ID); err != nil {
			p.fail(errors.Wrapf(err, "journaling feed %s", info.ID))
		}
	}
}

func (p *Pusher) fail(err error) {
	p.Log.Printf("%v", err)
	p.Stats.Count("feed.send_failed", 1, 1)
	p.mu.Lock()
	if p.sendErr == nil {
		p.sendErr = err
	}
	p.mu.Unlock()
}
