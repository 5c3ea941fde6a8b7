package file

import (
	"github.com/pilosa/feedgen"
	"github.com/pilosa/feedgen/ingest"
)

// Main contains the configuration for sending documents read from files.
type Main struct {
	ingest.Main `flag:"!embed"`
	Path        string `help:"File or directory path to read JSON or .avro documents from."`
	DocIDAt     string `help:"Set this key on each record which lacks it to a unique filename + record number."`
	OutDir      string `help:"Directory to write feed files to."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	m := &Main{
		Main:    *ingest.NewMain(),
		DocIDAt: "id",
		OutDir:  "feeds",
	}
	m.NewSource = func() (feedgen.Source, error) {
		opts := []SrcOption{OptSrcPath(m.Path)}
		if m.DocIDAt != "" {
			opts = append(opts, OptSrcDocIDAt(m.DocIDAt))
		}
		return NewSource(opts...)
	}
	m.NewSink = func() (feedgen.Sink, error) {
		return NewSink(m.OutDir)
	}
	return m
}
