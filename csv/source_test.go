package csv_test

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/pilosa/feedgen"
	"github.com/pilosa/feedgen/csv"
	"github.com/pilosa/feedgen/test"
	"github.com/pkg/errors"
)

func MustGetTempFile(t *testing.T, content string) *os.File {
	f, err := ioutil.TempFile("", "")
	if err != nil {
		t.Fatalf("getting temp file: %v", err)
	}
	n, err := f.WriteString(content)
	if err != nil || n != len(content) {
		t.Fatalf("writing temp file: %v, n: %v", err, n)
	}
	return f
}

func readAll(t *testing.T, src feedgen.Source) (recs []map[string]string, errs []error) {
	t.Helper()
	for {
		rec, err := src.Record()
		if err == io.EOF {
			return recs, errs
		} else if err != nil {
			errs = append(errs, err)
			continue
		}
		recs = append(recs, rec.(map[string]string))
	}
}

func TestCSVSource(t *testing.T) {
	f := MustGetTempFile(t, `blah,bleh,blue
1,asdf,3

2,"qw,er",4
`)
	defer os.Remove(f.Name())
	src := csv.NewSource(csv.WithURLs([]string{f.Name()}), csv.WithDocIDAt("id"))
	recs, errs := readAll(t, src)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	test.MustBe(t, []map[string]string{
		{"blah": "1", "bleh": "asdf", "blue": "3", "id": f.Name() + ":row2"},
		{"blah": "2", "bleh": "qw,er", "blue": "4", "id": f.Name() + ":row3"},
	}, recs)
}

func TestCSVSourceErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		recs    int
		err     string
	}{
		{name: "duplicate header", content: "a,b,a\n1,2,3\n", err: "appeared at both"},
		{name: "empty header", content: "a,,c\n1,2,3\n", err: "empty string"},
		{name: "short row", content: "a,b,c\n1,2\n4,5,6\n", recs: 1, err: "len mismatch"},
		{name: "bare quote", content: "a,b\n1,2\"3\n4,5\n", recs: 1, err: "parsing line"},
		{name: "extra fields", content: "a,b\n1,2,3\n", recs: 1},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			f := MustGetTempFile(t, tst.content)
			defer os.Remove(f.Name())
			recs, errs := readAll(t, csv.NewSource(csv.WithURLs([]string{f.Name()})))
			test.MustBe(t, tst.recs, len(recs), "records")
			if tst.err == "" {
				test.MustBe(t, 0, len(errs), "errors")
				return
			}
			if len(errs) != 1 {
				t.Fatalf("expected one error, got %v", errs)
			}
			test.MustContain(t, errs[0].Error(), tst.err)
		})
	}
}

// flakyOpener fails reading after limit bytes the first fails times it is
// opened.
type flakyOpener struct {
	content string
	limit   int
	fails   int
	opens   int
}

func (f *flakyOpener) String() string { return "flaky" }

func (f *flakyOpener) Open() (io.ReadCloser, error) {
	f.opens++
	if f.opens > f.fails {
		return ioutil.NopCloser(strings.NewReader(f.content)), nil
	}
	return ioutil.NopCloser(io.MultiReader(
		strings.NewReader(f.content[:f.limit]),
		errReader{},
	)), nil
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestCSVSourceRetry(t *testing.T) {
	op := &flakyOpener{content: "id,v\na,1\nb,2\nc,3\n", limit: 14, fails: 1}
	recs, errs := readAll(t, csv.NewSource(csv.WithOpenStringers([]csv.OpenStringer{op})))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	test.MustBe(t, 2, op.opens, "opens")
	var ids []string
	for _, r := range recs {
		ids = append(ids, r["id"])
	}
	test.MustBe(t, []string{"a", "b", "c"}, ids)

	op = &flakyOpener{content: "id,v\na,1\n", limit: 3, fails: 5}
	_, errs = readAll(t, csv.NewSource(csv.WithOpenStringers([]csv.OpenStringer{op}), csv.WithMaxRetries(2)))
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	test.MustContain(t, errs[0].Error(), "tried 2 times", "connection reset")
}

func TestCSVSourceHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs.csv" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "id,title\nx,hello\n")
	}))
	defer ts.Close()

	recs, errs := readAll(t, csv.NewSource(
		csv.WithURLs([]string{ts.URL + "/docs.csv", ts.URL + "/missing.csv"}),
		csv.WithMaxRetries(1),
	))
	test.MustBe(t, []map[string]string{{"id": "x", "title": "hello"}}, recs)
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	test.MustContain(t, errs[0].Error(), "404")
}
