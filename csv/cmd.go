package csv

import (
	"github.com/pilosa/feedgen"
	"github.com/pilosa/feedgen/file"
	"github.com/pilosa/feedgen/ingest"
	"github.com/pkg/errors"
)

// Main contains the configuration for sending documents read from CSV files.
type Main struct {
	ingest.Main  `flag:"!embed"`
	Files        []string `help:"CSV files or http(s) URLs to read. The first line of each is the header."`
	DocIDAt      string   `help:"Set this key on each record which lacks it to the file name + row number."`
	MaxRetries   int      `help:"Number of times to try reading each file."`
	FetchWorkers int      `help:"Number of files read simultaneously."`
	OutDir       string   `help:"Directory to write feed files to."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	m := &Main{
		Main:         *ingest.NewMain(),
		DocIDAt:      "id",
		MaxRetries:   3,
		FetchWorkers: 1,
		OutDir:       "feeds",
	}
	m.NewSource = func() (feedgen.Source, error) {
		if len(m.Files) == 0 {
			return nil, errors.New("no csv files given")
		}
		return NewSource(
			WithURLs(m.Files),
			WithDocIDAt(m.DocIDAt),
			WithMaxRetries(m.MaxRetries),
			WithConcurrency(m.FetchWorkers),
			WithLogger(m.Log()),
		), nil
	}
	m.NewSink = func() (feedgen.Sink, error) {
		return file.NewSink(m.OutDir)
	}
	return m
}
