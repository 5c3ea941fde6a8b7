package csv

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pilosa/feedgen/test"
)

func TestCSVMain(t *testing.T) {
	d, err := ioutil.TempDir("", "testcsvmain")
	test.ErrNil(t, err, "TempDir")
	defer os.RemoveAll(d)
	in := filepath.Join(d, "docs.csv")
	err = ioutil.WriteFile(in, []byte(`id,title,google:mimetype,google:content
a1,First,text/plain,hello
,Second,text/plain,world
`), 0600)
	test.ErrNil(t, err, "WriteFile")

	m := NewMain()
	m.Files = []string{in}
	m.OutDir = filepath.Join(d, "feeds")
	m.DataSource = "sheet"
	m.FeedIDPrefix = "c"
	m.LogPath = filepath.Join(d, "log")
	test.ErrNil(t, m.Run(), "Run")

	feed, err := ioutil.ReadFile(filepath.Join(m.OutDir, "sheet-c0.xml"))
	test.ErrNil(t, err, "reading feed")
	s := string(feed)
	test.MustContain(t, s,
		"googleconnector://sheet.localhost/doc?docid=a1",
		"docs.csv%3Arow3",
		`<meta name="title" content="Second"/>`,
		`mimetype="text/plain"`,
	)
	test.MustBe(t, 2, strings.Count(s, "<record "))
}

func TestCSVMainNoFiles(t *testing.T) {
	m := NewMain()
	d, err := ioutil.TempDir("", "testcsvmain")
	test.ErrNil(t, err, "TempDir")
	defer os.RemoveAll(d)
	m.OutDir = filepath.Join(d, "feeds")
	m.LogPath = filepath.Join(d, "log")
	err = m.Run()
	if err == nil {
		t.Fatal("expected error with no files")
	}
	test.MustContain(t, err.Error(), "no csv files given")
}
