package feedgen

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Document is the read-only view of a unit being published. The core never
// mutates a Document; filters wrap it in derived views instead.
type Document interface {
	// PropertyNames returns the names of all properties in no particular
	// order.
	PropertyNames() ([]string, error)
	// FindProperty returns the named property, or nil if the document does
	// not have it. Every call starts a fresh pass over the values.
	FindProperty(name string) (Property, error)
}

// Property is a forward-only iterator over the values of one property.
type Property interface {
	// NextValue returns io.EOF once the values are exhausted.
	NextValue() (Value, error)
}

// Value is implemented by every value type a Property may yield.
type Value interface {
	// String returns the value as it should appear in feed XML. Values with
	// no textual form (binary) return "".
	String() string
	isValue()
}

// S is a string value.
type S string

// L is an integer value.
type L int64

// D is a floating point value.
type D float64

// B is a boolean value.
type B bool

// Calendar is a date/time value.
type Calendar time.Time

// Binary is a stream value, typically document content. If R is also an
// io.Closer it is closed once the content has been written.
type Binary struct {
	R io.Reader
}

func (s S) String() string { return string(s) }
func (l L) String() string { return strconv.FormatInt(int64(l), 10) }
func (d D) String() string { return strconv.FormatFloat(float64(d), 'g', -1, 64) }
func (b B) String() string { return strconv.FormatBool(bool(b)) }

// String renders the calendar as ISO 8601 in UTC with millisecond precision.
func (c Calendar) String() string {
	return time.Time(c).UTC().Format(iso8601Millis)
}

func (b Binary) String() string { return "" }

func (s S) isValue()        {}
func (l L) isValue()        {}
func (d D) isValue()        {}
func (b B) isValue()        {}
func (c Calendar) isValue() {}
func (b Binary) isValue()   {}

const iso8601Millis = "2006-01-02T15:04:05.000Z"

// Values is an ordered list of values which can be iterated once per call to
// Iter.
type Values []Value

// Iter returns a fresh Property over the values.
func (vs Values) Iter() Property {
	return &valuesProperty{vals: vs}
}

type valuesProperty struct {
	vals Values
	pos  int
}

func (p *valuesProperty) NextValue() (Value, error) {
	if p.pos >= len(p.vals) {
		return nil, io.EOF
	}
	v := p.vals[p.pos]
	p.pos++
	return v, nil
}

// MapDocument is an in-memory Document.
type MapDocument map[string]Values

// PropertyNames implements Document.
func (m MapDocument) PropertyNames() ([]string, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names, nil
}

// FindProperty implements Document.
func (m MapDocument) FindProperty(name string) (Property, error) {
	vals, ok := m[name]
	if !ok {
		return nil, nil
	}
	return vals.Iter(), nil
}

// firstValue returns the first value of the named property, or nil if the
// property is absent or has no values.
func firstValue(doc Document, name string) (Value, error) {
	prop, err := doc.FindProperty(name)
	if err != nil {
		return nil, errors.Wrapf(err, "finding %s", name)
	}
	if prop == nil {
		return nil, nil
	}
	v, err := prop.NextValue()
	if err == io.EOF {
		return nil, nil
	}
	return v, errors.Wrapf(err, "reading %s", name)
}

// OptionalString returns the string form of the first value of the named
// property and whether a non-nil value was found.
func OptionalString(doc Document, name string) (string, bool, error) {
	v, err := firstValue(doc, name)
	if err != nil || v == nil {
		return "", false, err
	}
	return v.String(), true, nil
}

// DocID returns the document's google:docid, or "" if it has none.
func DocID(doc Document) (string, error) {
	id, _, err := OptionalString(doc, PropDocID)
	return id, err
}

// ParseBool interprets the loose boolean spellings connectors use.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "y", "yes", "ok", "1":
		return true, nil
	case "f", "false", "n", "no", "0":
		return false, nil
	}
	return false, errors.Errorf("malformed boolean '%s'", s)
}

// optionalBool returns def when the property is absent, and an error (along
// with def) when its value cannot be read as a boolean.
func optionalBool(doc Document, name string, def bool) (bool, error) {
	v, err := firstValue(doc, name)
	if err != nil || v == nil {
		return def, err
	}
	if b, ok := v.(B); ok {
		return bool(b), nil
	}
	b, err := ParseBool(v.String())
	if err != nil {
		return def, errors.Wrapf(err, "property %s", name)
	}
	return b, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseCalendar parses the date formats accepted for calendar properties
// carried as strings.
func ParseCalendar(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("malformed date '%s'", s)
}

// optionalCalendar returns a nil time when the property is absent.
func optionalCalendar(doc Document, name string) (*time.Time, error) {
	v, err := firstValue(doc, name)
	if err != nil || v == nil {
		return nil, err
	}
	if c, ok := v.(Calendar); ok {
		t := time.Time(c)
		return &t, nil
	}
	t, err := ParseCalendar(v.String())
	if err != nil {
		return nil, errors.Wrapf(err, "property %s", name)
	}
	return &t, nil
}

// sortedNames returns the document's property names in lexicographic order.
func sortedNames(doc Document) ([]string, error) {
	names, err := doc.PropertyNames()
	if err != nil {
		return nil, errors.Wrap(err, "getting property names")
	}
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)
	return sorted, nil
}
