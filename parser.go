package feedgen

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// GenericParser turns maps and structs into MapDocuments. It handles the
// output of encoding/json as well as decoded avro records.
//
// Nested objects are flattened into properties named by joining the keys
// with Separator, except for typed values: objects with an "@type" key
// holding one of calendar, principal, binary, long, double, bool or string.
// Single key objects keyed by an avro primitive type name are treated as
// avro union values and unwrapped.
type GenericParser struct {
	// DocIDField, if set, names a property whose value becomes the
	// document's google:docid when it has none.
	DocIDField string
	// Separator joins the keys of nested objects. Defaults to ".".
	Separator string
	// IncludeUnexportedFields is ignored by encoding/json, but not here.
	IncludeUnexportedFields bool
}

// NewDefaultGenericParser returns a GenericParser which flattens nested
// objects with ".".
func NewDefaultGenericParser() *GenericParser {
	return &GenericParser{Separator: "."}
}

// Parse of the GenericParser tries to parse any map or struct into a
// MapDocument.
func (m *GenericParser) Parse(data interface{}) (Document, error) {
	val := reflect.ValueOf(data)
	// dereference pointers, and get concrete values from interfaces
	val = deref(val)
	doc := MapDocument{}
	var err error
	// Map and Struct are the only valid Kinds at the top level.
	switch val.Kind() {
	case reflect.Map:
		err = m.parseMap(doc, "", val)
	case reflect.Struct:
		err = m.parseStruct(doc, "", val)
	default:
		err = errors.Errorf("unsupported kind, '%v' in GenericParser: %v", val.Kind(), data)
	}
	if err != nil {
		return nil, err
	}
	if _, ok := doc[PropDocID]; !ok && m.DocIDField != "" {
		if vals, ok := doc[m.DocIDField]; ok && len(vals) > 0 {
			doc[PropDocID] = Values{S(vals[0].String())}
		}
	}
	return doc, nil
}

func deref(val reflect.Value) reflect.Value {
	knd := val.Kind()
	i := 0
	for knd == reflect.Ptr || knd == reflect.Interface {
		val = val.Elem()
		knd = val.Kind()
		i++
		if i > 100 {
			panic(fmt.Sprintf("deref loop with: %#v", val.Interface()))
		}
	}
	return val
}

func (m *GenericParser) join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	sep := m.Separator
	if sep == "" {
		sep = "."
	}
	return prefix + sep + key
}

func (m *GenericParser) parseMap(doc MapDocument, prefix string, val reflect.Value) error {
	for _, kval := range val.MapKeys() {
		key, err := getProperty(kval)
		if err != nil {
			return errors.Wrapf(err, "getting property from '%v'", kval)
		}
		if err := m.parseValue(doc, m.join(prefix, key), val.MapIndex(kval)); err != nil {
			return errors.Wrapf(err, "parsing value at '%v'", key)
		}
	}
	return nil
}

func (m *GenericParser) parseStruct(doc MapDocument, prefix string, val reflect.Value) error {
	for i := 0; i < val.NumField(); i++ {
		field := val.Type().Field(i)
		if field.PkgPath != "" && !m.IncludeUnexportedFields {
			continue // this field is unexported, so we ignore it.
		}
		name := field.Name
		if tag := field.Tag.Get("feed"); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		if err := m.parseValue(doc, m.join(prefix, name), val.Field(i)); err != nil {
			return errors.Wrapf(err, "parsing field '%v'", field.Name)
		}
	}
	return nil
}

var (
	valueType    = reflect.TypeOf((*Value)(nil)).Elem()
	timeType     = reflect.TypeOf(time.Time{})
	numberType   = reflect.TypeOf(json.Number(""))
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

// parseValue appends the value(s) held by val to the named property.
func (m *GenericParser) parseValue(doc MapDocument, name string, val reflect.Value) error {
	if val.IsValid() && val.Kind() == reflect.Interface {
		val = val.Elem()
	}
	if !val.IsValid() {
		return nil
	}
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		if !val.Type().Implements(valueType) {
			val = deref(val)
		}
	}
	if val.Type().Implements(valueType) {
		doc[name] = append(doc[name], val.Interface().(Value))
		return nil
	}
	switch val.Type() {
	case timeType:
		doc[name] = append(doc[name], Calendar(val.Interface().(time.Time)))
		return nil
	case numberType:
		return m.parseNumber(doc, name, val.Interface().(json.Number))
	}

	switch val.Kind() {
	case reflect.Bool:
		doc[name] = append(doc[name], B(val.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		doc[name] = append(doc[name], L(val.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		doc[name] = append(doc[name], L(int64(val.Uint())))
	case reflect.Float32, reflect.Float64:
		doc[name] = append(doc[name], D(val.Float()))
	case reflect.String:
		doc[name] = append(doc[name], S(val.String()))
	case reflect.Array, reflect.Slice:
		return m.parseContainer(doc, name, val)
	case reflect.Map:
		if v, ok, err := m.typedValue(val); err != nil {
			return err
		} else if ok {
			if v != nil {
				doc[name] = append(doc[name], v)
			}
			return nil
		}
		if inner, ok := unwrapUnion(val); ok {
			return m.parseValue(doc, name, inner)
		}
		return m.parseMap(doc, name, val)
	case reflect.Struct:
		return m.parseStruct(doc, name, val)
	default:
		return errors.Errorf("unsupported kind: %v", val.Kind())
	}
	return nil
}

func (m *GenericParser) parseNumber(doc MapDocument, name string, n json.Number) error {
	if i, err := n.Int64(); err == nil {
		doc[name] = append(doc[name], L(i))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return errors.Wrapf(err, "parsing number '%s'", n)
	}
	doc[name] = append(doc[name], D(f))
	return nil
}

// parseContainer parses arrays and slices. Byte slices are binary content,
// everything else is a multi-valued property.
func (m *GenericParser) parseContainer(doc MapDocument, name string, val reflect.Value) error {
	if dtype := val.Type(); dtype.Elem().Kind() == reflect.Uint8 {
		ret := make([]byte, val.Len())
		reflect.Copy(reflect.ValueOf(ret), val)
		doc[name] = append(doc[name], Binary{R: bytes.NewReader(ret)})
		return nil
	}
	for i := 0; i < val.Len(); i++ {
		if err := m.parseValue(doc, name, val.Index(i)); err != nil {
			return errors.Wrapf(err, "parsing value %d", i)
		}
	}
	return nil
}

// avroUnionTypes are the type names used as keys when avro union values are
// decoded to native Go values.
var avroUnionTypes = NewNameSet("null", "boolean", "int", "long", "float", "double", "bytes", "string")

func unwrapUnion(val reflect.Value) (reflect.Value, bool) {
	if val.Len() != 1 || val.Type().Key().Kind() != reflect.String {
		return reflect.Value{}, false
	}
	key := val.MapKeys()[0]
	if !avroUnionTypes.Contains(key.String()) {
		return reflect.Value{}, false
	}
	return val.MapIndex(key), true
}

// typedValue decodes {"@type": ..., "@value": ...} objects. ok is false if
// val is not a typed value.
func (m *GenericParser) typedValue(val reflect.Value) (v Value, ok bool, err error) {
	if val.Type().Key().Kind() != reflect.String {
		return nil, false, nil
	}
	fields := make(map[string]interface{}, val.Len())
	for _, k := range val.MapKeys() {
		fields[k.String()] = val.MapIndex(k).Interface()
	}
	typ, isTyped := fields["@type"].(string)
	if !isTyped {
		return nil, false, nil
	}
	raw := fields["@value"]
	str := func() string {
		if raw == nil {
			return ""
		}
		return fmt.Sprintf("%v", raw)
	}
	switch strings.ToLower(typ) {
	case "calendar", "date":
		t, err := ParseCalendar(str())
		if err != nil {
			return nil, true, err
		}
		return Calendar(t), true, nil
	case "principal":
		p := Principal{}
		p.Name, _ = fields["name"].(string)
		if p.Name == "" {
			p.Name = str()
		}
		p.Namespace, _ = fields["namespace"].(string)
		if pt, _ := fields["principal-type"].(string); strings.EqualFold(pt, PrincipalUnqualified.String()) {
			p.Type = PrincipalUnqualified
		}
		cs, _ := fields["case-sensitivity-type"].(string)
		p.CaseSensitivity = ParseCaseSensitivity(cs)
		return p, true, nil
	case "binary":
		data, err := base64.StdEncoding.DecodeString(str())
		if err != nil {
			return nil, true, errors.Wrap(err, "decoding binary value")
		}
		return Binary{R: bytes.NewReader(data)}, true, nil
	case "long":
		n := json.Number(str())
		i, err := n.Int64()
		if err != nil {
			return nil, true, errors.Wrap(err, "parsing long value")
		}
		return L(i), true, nil
	case "double":
		n := json.Number(str())
		f, err := n.Float64()
		if err != nil {
			return nil, true, errors.Wrap(err, "parsing double value")
		}
		return D(f), true, nil
	case "bool", "boolean":
		if b, ok := raw.(bool); ok {
			return B(b), true, nil
		}
		b, err := ParseBool(str())
		if err != nil {
			return nil, true, err
		}
		return B(b), true, nil
	case "string":
		if raw == nil {
			return nil, true, nil
		}
		return S(str()), true, nil
	}
	return nil, true, errors.Errorf("unknown value type '%s'", typ)
}

// getProperty turns anything that can be a map key into a string.
func getProperty(mapKey reflect.Value) (string, error) {
	if mapKey.Type().Implements(stringerType) {
		return mapKey.Interface().(fmt.Stringer).String(), nil
	}
	mapKey = deref(mapKey)
	switch mapKey.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Float32, reflect.Float64, reflect.String:
		return fmt.Sprintf("%v", mapKey), nil
	default:
		return "", errors.Errorf("unexpected kind: %v mapKey: %v", mapKey.Kind(), mapKey)
	}
}
