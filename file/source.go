package file

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/linkedin/goavro"
	"github.com/pilosa/feedgen"
	"github.com/pilosa/feedgen/json"
	"github.com/pkg/errors"
)

// Source is a feedgen.Source which reads documents from files on disk. Files
// ending in .avro are read as Avro object container files, everything else
// as line separated json objects.
type Source struct {
	rawSource *RawSource
	records   chan record
	docIDAt   string
}

// SrcOption is a functional option for the file Source.
type SrcOption func(s *Source) error

// OptSrcDocIDAt tells the source to set key on each record which has no
// value for it to <filename>#<record number>.
func OptSrcDocIDAt(key string) SrcOption {
	return func(s *Source) error {
		s.docIDAt = key
		return nil
	}
}

// OptSrcPath sets the path name for the file or directory to use for source
// data.
func OptSrcPath(pathname string) SrcOption {
	return func(s *Source) (err error) {
		s.rawSource, err = NewRawSource(pathname)
		if err != nil {
			return errors.Wrap(err, "getting raw source")
		}
		return nil
	}
}

// recordReader yields the records of one file.
type recordReader interface {
	Record() (interface{}, error)
}

type ocfRecords struct {
	ocf *goavro.OCFReader
}

func (o ocfRecords) Record() (interface{}, error) {
	if !o.ocf.Scan() {
		if err := o.ocf.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return o.ocf.Read()
}

func newRecordReader(r feedgen.NamedReadCloser) (recordReader, error) {
	if strings.HasSuffix(r.Name(), ".avro") {
		ocf, err := goavro.NewOCFReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "reading avro container header")
		}
		return ocfRecords{ocf: ocf}, nil
	}
	return json.NewSource(r), nil
}

func (s *Source) run() {
	defer close(s.records)
	reader, err := s.rawSource.NextReader()
	for ; err == nil; reader, err = s.rawSource.NextReader() {
		if !s.readAll(reader) {
			return
		}
	}
	if err != io.EOF {
		s.records <- record{err: errors.Wrap(err, "getting next reader")}
	}
}

// readAll sends every record of reader and closes it. It returns false if
// the file could not be read to the end.
func (s *Source) readAll(reader feedgen.NamedReadCloser) bool {
	defer reader.Close()
	src, err := newRecordReader(reader)
	if err != nil {
		s.records <- record{err: errors.Wrapf(err, "opening %s", reader.Name())}
		return false
	}
	for i := 0; ; i++ {
		data, err := src.Record()
		if err == io.EOF {
			return true
		} else if err != nil {
			s.records <- record{err: errors.Wrapf(err, "decoding %s", reader.Name())}
			return false
		}
		if m, ok := data.(map[string]interface{}); ok && s.docIDAt != "" {
			if _, ok := m[s.docIDAt]; !ok {
				m[s.docIDAt] = fmt.Sprintf("%s#%d", reader.Name(), i)
			}
		}
		s.records <- record{data: data}
	}
}

// NewSource gets a new file source which will read documents from a file or
// all files in a directory.
func NewSource(opts ...SrcOption) (*Source, error) {
	s := &Source{
		records: make(chan record, 100),
	}
	for _, opt := range opts {
		err := opt(s)
		if err != nil {
			return nil, err
		}
	}
	if s.rawSource == nil {
		return nil, errors.New("no path given for file source")
	}
	go s.run()
	return s, nil
}

// Record implements feedgen.Source returning a map[string]interface{} for
// each object in the source files.
func (s *Source) Record() (interface{}, error) {
	rec, ok := <-s.records
	if !ok {
		return nil, io.EOF
	}
	return rec.data, rec.err
}

type record struct {
	data interface{}
	err  error
}

// RawSource is a feedgen.RawSource over a file or the files in a directory.
type RawSource struct {
	files   []string
	fileIdx *uint64
}

// NewRawSource lists pathname, which may be a file or a directory. Hidden
// files and subdirectories are skipped.
func NewRawSource(pathname string) (*RawSource, error) {
	fileIdx := uint64(0)
	s := &RawSource{
		fileIdx: &fileIdx,
	}
	info, err := os.Stat(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "statting path")
	}
	if info.IsDir() {
		infos, err := ioutil.ReadDir(pathname)
		if err != nil {
			return nil, errors.Wrap(err, "reading directory")
		}
		s.files = make([]string, 0, len(infos))
		for _, info = range infos {
			if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
				continue
			}
			s.files = append(s.files, path.Join(pathname, info.Name()))
		}
	} else {
		s.files = []string{pathname}
	}
	return s, nil
}

type namedFile struct {
	*os.File
}

func (m *namedFile) Name() string {
	return filepath.Base(m.File.Name())
}

// NextReader implements feedgen.RawSource.
func (s *RawSource) NextReader() (feedgen.NamedReadCloser, error) {
	idx := atomic.AddUint64(s.fileIdx, 1) - 1
	if int(idx) >= len(s.files) {
		return nil, io.EOF
	}

	file, err := os.Open(s.files[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", s.files[idx])
	}

	return &namedFile{file}, nil
}
