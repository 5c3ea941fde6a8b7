package geohash

import (
	"strconv"

	"github.com/mmcloughlin/geohash"
	"github.com/pilosa/feedgen"
	"github.com/pkg/errors"
)

// Transformer adds a geohash metadata property to documents which carry a
// latitude and a longitude.
type Transformer struct {
	Precision  uint
	LatProp    string
	LonProp    string
	ResultProp string
	Log        feedgen.Logger
}

// Hash returns the geohash of doc's coordinates. ok is false if doc does not
// have both coordinates.
func (t *Transformer) Hash(doc feedgen.Document) (hash string, ok bool, err error) {
	latitude, ok, err := coordinate(doc, t.LatProp)
	if err != nil || !ok {
		return "", false, errors.Wrap(err, "getting latitude")
	}
	longitude, ok, err := coordinate(doc, t.LonProp)
	if err != nil || !ok {
		return "", false, errors.Wrap(err, "getting longitude")
	}
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return "", false, errors.Errorf("coordinates out of range: %v, %v", latitude, longitude)
	}
	return geohash.EncodeWithPrecision(latitude, longitude, t.Precision), true, nil
}

// Filter returns a feedgen.Filter which sets ResultProp to the geohash of
// each document's coordinates. Documents without usable coordinates pass
// through unchanged.
func (t *Transformer) Filter() feedgen.Filter {
	return func(doc feedgen.Document) feedgen.Document {
		hash, ok, err := t.Hash(doc)
		if err != nil {
			if t.Log != nil {
				t.Log.Printf("not adding geohash: %v", err)
			}
			return doc
		}
		if !ok {
			return doc
		}
		return feedgen.AddValues(t.ResultProp, feedgen.S(hash))(doc)
	}
}

func coordinate(doc feedgen.Document, name string) (float64, bool, error) {
	prop, err := doc.FindProperty(name)
	if err != nil || prop == nil {
		return 0, false, err
	}
	v, err := prop.NextValue()
	if err != nil {
		return 0, false, nil
	}
	switch c := v.(type) {
	case feedgen.D:
		return float64(c), true, nil
	case feedgen.L:
		return float64(c), true, nil
	}
	f, err := strconv.ParseFloat(v.String(), 64)
	if err != nil {
		return 0, false, errors.Wrapf(err, "parsing %s", name)
	}
	return f, true, nil
}
