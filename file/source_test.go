package file

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/linkedin/goavro"
	"github.com/pilosa/feedgen"
	"github.com/pilosa/feedgen/test"
)

func mustTempDir(t *testing.T, prefix string) string {
	t.Helper()
	d, err := ioutil.TempDir("", prefix)
	if err != nil {
		t.Fatal("getting temp dir")
	}
	return d
}

func mustFile(t *testing.T, dir, pattern, contents string) (name string) {
	t.Helper()
	f, err := ioutil.TempFile(dir, pattern)
	if err != nil {
		t.Fatalf("getting temp file: %v", err)
	}
	defer f.Close()

	_, err = io.WriteString(f, contents)
	if err != nil {
		t.Fatalf("writing contents: %v", err)
	}

	return f.Name()
}

func TestRawSource(t *testing.T) {
	d := mustTempDir(t, "testrawsource")
	defer os.RemoveAll(d)

	names := make([]string, 0, 2)
	names = append(names, filepath.Base(mustFile(t, d, "", `blah blah blah`)))
	names = append(names, filepath.Base(mustFile(t, d, "", `hahahahahahahaha`)))
	mustFile(t, d, ".hidden", "skipped")
	if err := os.Mkdir(filepath.Join(d, "sub"), 0700); err != nil {
		t.Fatalf("making subdirectory: %v", err)
	}

	rs, err := NewRawSource(d)
	if err != nil {
		t.Fatalf("getting raw source: %v", err)
	}

	gotNames := make([]string, 0, 2)
	var reader feedgen.NamedReadCloser
	for reader, err = rs.NextReader(); err == nil; reader, err = rs.NextReader() {
		gotNames = append(gotNames, reader.Name())
		if _, err := ioutil.ReadAll(reader); err != nil {
			t.Fatalf("reading file: %v", err)
		}
		reader.Close()
	}
	sort.Strings(names)
	sort.Strings(gotNames)
	if !reflect.DeepEqual(gotNames, names) {
		t.Fatalf("different file names: %v", gotNames)
	}
	if err != io.EOF {
		t.Fatalf("unexpected NextReader error: %v", err)
	}
}

func TestNewRawSourceMissing(t *testing.T) {
	if _, err := NewRawSource("/nonexistent/feedgen/path"); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestSource(t *testing.T) {
	d := mustTempDir(t, "testsource")
	defer os.RemoveAll(d)

	first := filepath.Base(mustFile(t, d, "", `
{"hey": 44}
{"hey": 39, "id": "mine"}
`))
	mustFile(t, d, "", `
{"hey": 81}
{"hey": 22}
`)

	s, err := NewSource(OptSrcDocIDAt("id"), OptSrcPath(d))
	if err != nil {
		t.Fatalf("getting source: %v", err)
	}

	vals := make(map[string]string)
	var rec interface{}
	for rec, err = s.Record(); err == nil; rec, err = s.Record() {
		recm, ok := rec.(map[string]interface{})
		if !ok {
			t.Fatalf("expected map[string]interface{} but got %T", rec)
		}
		v, ok := recm["hey"].(json.Number)
		if !ok {
			t.Fatalf("expected json.Number for 'hey' in %v", recm)
		}
		vals[v.String()] = recm["id"].(string)
	}
	if err != io.EOF {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals) != 4 {
		t.Fatalf("wrong num of vals: %v", vals)
	}
	test.MustBe(t, first+"#0", vals["44"])
	test.MustBe(t, "mine", vals["39"])
}

func TestSourceBadJSON(t *testing.T) {
	d := mustTempDir(t, "testsourcebad")
	defer os.RemoveAll(d)
	mustFile(t, d, "", `{"hey": 44} {"hey": `)

	s, err := NewSource(OptSrcPath(d))
	test.ErrNil(t, err, "NewSource")
	_, err = s.Record()
	test.ErrNil(t, err, "first record")
	if _, err = s.Record(); err == nil || err == io.EOF {
		t.Fatalf("expected decoding error, got %v", err)
	}
	if _, err = s.Record(); err != io.EOF {
		t.Fatalf("expected EOF after error, got %v", err)
	}
}

func TestSourceNoPath(t *testing.T) {
	if _, err := NewSource(); err == nil {
		t.Fatal("expected error without a path")
	}
}

const docSchema = `{
  "type": "record",
  "name": "doc",
  "fields": [
    {"name": "id", "type": "string"},
    {"name": "title", "type": ["null", "string"]},
    {"name": "size", "type": "long"}
  ]
}`

func TestSourceAvro(t *testing.T) {
	d := mustTempDir(t, "testsourceavro")
	defer os.RemoveAll(d)

	buf := &bytes.Buffer{}
	w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: buf, Schema: docSchema})
	test.ErrNil(t, err, "NewOCFWriter")
	err = w.Append([]interface{}{
		map[string]interface{}{"id": "a", "title": goavro.Union("string", "first"), "size": int64(1)},
		map[string]interface{}{"id": "b", "title": nil, "size": int64(2)},
	})
	test.ErrNil(t, err, "Append")
	err = ioutil.WriteFile(filepath.Join(d, "docs.avro"), buf.Bytes(), 0600)
	test.ErrNil(t, err, "writing avro file")

	s, err := NewSource(OptSrcPath(d))
	test.ErrNil(t, err, "NewSource")
	parser := feedgen.NewDefaultGenericParser()
	parser.DocIDField = "id"

	var ids, titles []string
	for {
		rec, err := s.Record()
		if err == io.EOF {
			break
		}
		test.ErrNil(t, err, "Record")
		doc, err := parser.Parse(rec)
		test.ErrNil(t, err, "Parse")
		id, err := feedgen.DocID(doc)
		test.ErrNil(t, err, "DocID")
		ids = append(ids, id)
		title, _, err := feedgen.OptionalString(doc, "title")
		test.ErrNil(t, err, "title")
		titles = append(titles, title)
	}
	test.MustBe(t, []string{"a", "b"}, ids)
	test.MustBe(t, []string{"first", ""}, titles)
}
