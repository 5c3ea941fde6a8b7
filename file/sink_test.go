package file

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pilosa/feedgen"
	"github.com/pilosa/feedgen/test"
)

func TestSink(t *testing.T) {
	d := mustTempDir(t, "testsink")
	defer os.RemoveAll(d)
	out := filepath.Join(d, "out")

	sink, err := NewSink(out)
	test.ErrNil(t, err, "NewSink")

	f, err := feedgen.Open("ds", feedgen.KindContent, feedgen.OptFeedIDGenerator(feedgen.NewNexter()))
	test.ErrNil(t, err, "Open")
	err = f.AddRecord(feedgen.MapDocument{
		feedgen.PropDocID:   feedgen.Values{feedgen.S("doc1")},
		feedgen.PropContent: feedgen.Values{feedgen.S("hello")},
	})
	test.ErrNil(t, err, "AddRecord")

	if err := sink.Send(f); err == nil {
		t.Fatal("expected error sending an open feed")
	}
	test.ErrNil(t, f.Close(), "Close")
	test.ErrNil(t, sink.Send(f), "Send")

	infos, err := ioutil.ReadDir(out)
	test.ErrNil(t, err, "ReadDir")
	if len(infos) != 1 {
		t.Fatalf("expected only the feed file in %s, got %d files", out, len(infos))
	}
	test.MustBe(t, "ds-0.xml", infos[0].Name())
	test.MustBe(t, "ds-0.xml", FileName(f))

	data, err := ioutil.ReadFile(filepath.Join(out, "ds-0.xml"))
	test.ErrNil(t, err, "ReadFile")
	want, err := f.Bytes()
	test.ErrNil(t, err, "Bytes")
	test.MustBe(t, string(want), string(data))
}
