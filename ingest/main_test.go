package ingest_test

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pilosa/feedgen"
	"github.com/pilosa/feedgen/boltdb"
	"github.com/pilosa/feedgen/ingest"
	"github.com/pilosa/feedgen/leveldb"
	"github.com/pilosa/feedgen/mock"
	"github.com/pilosa/feedgen/test"
)

func newTestMain(t *testing.T, sink feedgen.Sink, records ...interface{}) *ingest.Main {
	t.Helper()
	dir, err := ioutil.TempDir("", "ingest")
	if err != nil {
		t.Fatalf("getting temp dir: %v", err)
	}
	m := ingest.NewMain()
	m.DataSource = "things"
	m.FeedIDPrefix = "feed-"
	m.LogPath = filepath.Join(dir, "log")
	m.Verbose = true
	m.NewSource = func() (feedgen.Source, error) {
		return feedgen.NewSliceSource(records...), nil
	}
	m.NewSink = func() (feedgen.Sink, error) {
		return sink, nil
	}
	return m
}

func TestMainRun(t *testing.T) {
	sink := &mock.MemSink{}
	m := newTestMain(t, sink,
		map[string]interface{}{"id": "a", "title": "Aalborg", "lat": 57.64911, "lon": 10.40744, "secret": "s"},
		map[string]interface{}{"id": "b", "title": "Nowhere", "secret": "s"},
	)
	dir := filepath.Dir(m.LogPath)
	m.FeedLogDB = filepath.Join(dir, "feedlogs.db")
	m.JournalDir = filepath.Join(dir, "journal")
	m.DeleteProperties = []string{"secret"}
	m.GeohashLat = "lat"
	m.GeohashLon = "lon"
	m.Concurrency = 2

	test.ErrNil(t, m.Run(), "Run")

	if len(sink.Feeds) != 1 {
		t.Fatalf("expected one feed, got %d", len(sink.Feeds))
	}
	test.MustBe(t, []string{"feed-0"}, sink.IDs)
	feed := string(sink.Feeds[0])
	test.MustContain(t, feed,
		"<datasource>things</datasource>",
		"<feedtype>incremental</feedtype>",
		`url="googleconnector://things.localhost/doc?docid=a"`,
		`url="googleconnector://things.localhost/doc?docid=b"`,
		`<meta name="geohash" content="u4pruy"/>`,
		`<meta name="title" content="Aalborg"/>`,
	)
	test.MustNotContain(t, feed, "secret")
	test.MustBe(t, 1, strings.Count(feed, `name="geohash"`))

	fl, err := boltdb.NewFeedLogs(m.FeedLogDB)
	test.ErrNil(t, err, "opening feed logs")
	defer fl.Close()
	info, log, ok, err := fl.FeedLog("feed-0")
	test.ErrNil(t, err, "FeedLog")
	test.MustBe(t, true, ok)
	test.MustBe(t, 2, info.Records)
	test.MustBe(t, len(feed), info.Size)
	test.MustContain(t, string(log), `docid=a"`, `docid=b"`)

	j, err := leveldb.NewJournal(m.JournalDir)
	test.ErrNil(t, err, "opening journal")
	defer j.Close()
	for _, id := range []string{"a", "b"} {
		feedID, ok, err := j.Lookup(id)
		test.ErrNil(t, err, "Lookup "+id)
		test.MustBe(t, true, ok)
		test.MustBe(t, "feed-0", feedID)
	}
}

func TestMainRotatesFeeds(t *testing.T) {
	sink := &mock.MemSink{}
	records := make([]interface{}, 40)
	for i := range records {
		records[i] = map[string]interface{}{"id": string(rune('a' + i%26)), "body": strings.Repeat("x", 200)}
	}
	m := newTestMain(t, sink, records...)
	m.FeedType = "metadataurl"
	m.MaxFeedSize = "2K"
	m.DocIDField = ""
	m.Parser = feedgen.ParserFunc(func(data interface{}) (feedgen.Document, error) {
		rec := data.(map[string]interface{})
		id := rec["id"].(string)
		return feedgen.MapDocument{
			feedgen.PropDocID:     feedgen.Values{feedgen.S(id)},
			feedgen.PropSearchURL: feedgen.Values{feedgen.S("http://example.com/" + id)},
			"body":                feedgen.Values{feedgen.S(rec["body"].(string))},
		}, nil
	})

	test.ErrNil(t, m.Run(), "Run")
	if len(sink.Feeds) < 2 {
		t.Fatalf("expected feeds to rotate, got %d", len(sink.Feeds))
	}
	total := 0
	for i, f := range sink.Feeds {
		s := string(f)
		test.MustContain(t, s, "<feedtype>metadata-and-url</feedtype>", "</gsafeed>\n")
		total += strings.Count(s, "<record ")
		test.MustBe(t, fmt.Sprintf("feed-%d", i), sink.IDs[i])
	}
	test.MustBe(t, 40, total)
}

func TestMainInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		mod  func(m *ingest.Main)
	}{
		{name: "no data source", mod: func(m *ingest.Main) { m.DataSource = "" }},
		{name: "no source", mod: func(m *ingest.Main) { m.NewSource = nil }},
		{name: "no sink", mod: func(m *ingest.Main) { m.NewSink = nil }},
		{name: "bad kind", mod: func(m *ingest.Main) { m.FeedType = "sideways" }},
		{name: "bad size", mod: func(m *ingest.Main) { m.MaxFeedSize = "big" }},
		{name: "bad document size", mod: func(m *ingest.Main) { m.MaxDocumentSize = "10X" }},
		{name: "zero concurrency", mod: func(m *ingest.Main) { m.Concurrency = 0 }},
		{name: "lat without lon", mod: func(m *ingest.Main) { m.GeohashLat = "lat" }},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			sink := &mock.MemSink{}
			m := newTestMain(t, sink)
			tst.mod(m)
			if err := m.Run(); err == nil {
				t.Fatal("expected error")
			}
			test.MustBe(t, 0, len(sink.Feeds))
		})
	}
}
