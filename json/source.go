package json

import (
	"encoding/json"
	"io"

	"github.com/pilosa/feedgen"
	"github.com/pkg/errors"
)

// Source is a feedgen.Source for reading json documents.
type Source struct {
	dec *json.Decoder
}

// NewSource gets a new json source which will decode from the given reader.
// Numbers are decoded as json.Number so that integers and floating point
// values stay distinguishable.
func NewSource(r io.Reader) *Source {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Source{
		dec: dec,
	}
}

// Record implements feedgen.Source. It returns the next json object that can
// be decoded from the reader. It is guaranteed to return a
// map[string]interface{} if there is no error.
func (s *Source) Record() (rec interface{}, err error) {
	var res map[string]interface{}
	err = s.dec.Decode(&res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type rawSourceSource struct {
	rs feedgen.RawSource

	s      *Source
	reader feedgen.NamedReadCloser
}

// NewSourceFromRawSource gets a Source which decodes json documents from
// each stream of rs in turn.
func NewSourceFromRawSource(rs feedgen.RawSource) feedgen.Source {
	return &rawSourceSource{rs: rs}
}

func (r *rawSourceSource) Record() (rec interface{}, err error) {
	if r.s == nil {
		reader, err := r.rs.NextReader()
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "getting next reader")
		} else if err == io.EOF {
			return nil, err
		}
		r.reader = reader
		r.s = NewSource(reader)
	}
	rec, err = r.s.Record()
	if err == io.EOF {
		if cerr := r.reader.Close(); cerr != nil {
			return nil, errors.Wrapf(cerr, "closing %s", r.reader.Name())
		}
		r.s = nil
		return r.Record()
	} else if err != nil {
		return rec, errors.Wrapf(err, "decoding %s", r.reader.Name())
	}
	return rec, err
}
