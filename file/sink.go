package file

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pilosa/feedgen"
	"github.com/pkg/errors"
)

// Sink is a feedgen.Sink which writes each feed to its own file in a
// directory. A feed file only appears once it is complete.
type Sink struct {
	dir string
}

// NewSink gets a Sink writing into dir, which is created if needed.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "making directory %s", dir)
	}
	return &Sink{dir: dir}, nil
}

// FileName returns the name of the file a feed is written to.
func FileName(f *feedgen.Feed) string {
	return f.DataSource() + "-" + f.ID() + ".xml"
}

// Send implements feedgen.Sink.
func (s *Sink) Send(f *feedgen.Feed) error {
	tmp, err := ioutil.TempFile(s.dir, ".feed")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	_, err = f.WriteTo(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "writing %s", tmp.Name())
	}
	name := filepath.Join(s.dir, FileName(f))
	if err := os.Rename(tmp.Name(), name); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "renaming to %s", name)
	}
	return nil
}
