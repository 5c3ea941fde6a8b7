package s3

import (
	"bytes"
	"io"
	"io/ioutil"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pilosa/feedgen"
	"github.com/pilosa/feedgen/test"
	"github.com/pkg/errors"
)

// fakeS3 serves objects from memory. ListObjects returns at most page keys
// per call so that pagination is exercised.
type fakeS3 struct {
	s3iface.S3API

	mu      sync.Mutex
	page    int
	objects map[string][]byte
	meta    map[string]map[string]*string
	lists   int
}

func newFakeS3(page int, objects map[string]string) *fakeS3 {
	f := &fakeS3{page: page, objects: make(map[string][]byte), meta: make(map[string]map[string]*string)}
	for k, v := range objects {
		f.objects[k] = []byte(v)
	}
	return f
}

func (f *fakeS3) keys(prefix, marker string) []string {
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) && k > marker {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeS3) ListObjects(in *s3.ListObjectsInput) (*s3.ListObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	keys := f.keys(aws.StringValue(in.Prefix), aws.StringValue(in.Marker))
	truncated := len(keys) > f.page
	if truncated {
		keys = keys[:f.page]
	}
	out := &s3.ListObjectsOutput{IsTruncated: aws.Bool(truncated)}
	for _, k := range keys {
		out.Contents = append(out.Contents, &s3.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) GetObject(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, errors.Errorf("no such key %s", aws.StringValue(in.Key))
	}
	return &s3.GetObjectOutput{Body: ioutil.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	data, err := ioutil.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.StringValue(in.Key)] = data
	f.meta[aws.StringValue(in.Key)] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func TestRawSourcePaginates(t *testing.T) {
	client := newFakeS3(2, map[string]string{
		"docs/a": "A", "docs/b": "B", "docs/c": "C", "docs/d": "D", "docs/e": "E", "other/f": "F",
	})
	rs, err := NewRawSource(client, "bucket", "docs/")
	test.ErrNil(t, err, "NewRawSource")
	test.MustBe(t, 3, client.lists, "list calls")

	var names, bodies []string
	for {
		r, err := rs.NextReader()
		if err == io.EOF {
			break
		}
		test.ErrNil(t, err, "NextReader")
		data, err := ioutil.ReadAll(r)
		test.ErrNil(t, err, "reading object")
		test.ErrNil(t, r.Close(), "closing object")
		names = append(names, r.Name())
		bodies = append(bodies, string(data))
	}
	test.MustBe(t, []string{"docs/a", "docs/b", "docs/c", "docs/d", "docs/e"}, names)
	test.MustBe(t, []string{"A", "B", "C", "D", "E"}, bodies)
}

func TestSource(t *testing.T) {
	client := newFakeS3(1, map[string]string{
		"one.json": `{"id": "first", "widget": {"window": "w"}}
{"title": "no id"}`,
		"two.json": `{"id": "third"}`,
	})
	src, err := NewSource(OptSrcBucket("pdk-test-bucket"), OptSrcClient(client), OptSrcDocIDAt("id"))
	test.ErrNil(t, err, "NewSource")

	var recs []map[string]interface{}
	for rec, err := src.Record(); err != io.EOF; rec, err = src.Record() {
		test.ErrNil(t, err, "Record")
		recs = append(recs, rec.(map[string]interface{}))
	}
	if len(recs) != 3 {
		t.Fatalf("wrong number of records: %#v", recs)
	}
	widg := recs[0]["widget"].(map[string]interface{})
	if _, ok := widg["window"]; !ok {
		t.Fatalf("unexpected value does not have widget.window: %#v", recs[0])
	}
	tests := []struct {
		idx  int
		want string
	}{
		{0, "first"},
		{1, "pdk-test-bucket.one.json#1"},
		{2, "third"},
	}
	for _, tst := range tests {
		test.MustBe(t, tst.want, recs[tst.idx]["id"])
	}
}

func TestSourceBadJSON(t *testing.T) {
	client := newFakeS3(10, map[string]string{"bad.json": `{"id": `})
	src, err := NewSource(OptSrcBucket("b"), OptSrcClient(client))
	test.ErrNil(t, err, "NewSource")
	_, err = src.Record()
	if err == nil || err == io.EOF {
		t.Fatalf("expected decode error, got %v", err)
	}
	test.MustContain(t, err.Error(), "bad.json")
}

func TestSink(t *testing.T) {
	client := newFakeS3(10, nil)
	sink := NewSink(client, "archive", "feeds")

	f, err := feedgen.Open("ds", feedgen.KindContent, feedgen.OptFeedIDGenerator(feedgen.NewNexter()))
	test.ErrNil(t, err, "Open")
	err = f.AddRecord(feedgen.MapDocument{
		feedgen.PropDocID:   feedgen.Values{feedgen.S("doc1")},
		feedgen.PropContent: feedgen.Values{feedgen.S("hello")},
	})
	test.ErrNil(t, err, "AddRecord")
	if err := sink.Send(f); err == nil {
		t.Fatal("expected error sending an open feed")
	}
	test.ErrNil(t, f.Close(), "Close")
	test.ErrNil(t, sink.Send(f), "Send")

	test.MustBe(t, "feeds/ds/0.xml", sink.Key(f))
	want, err := f.Bytes()
	test.ErrNil(t, err, "Bytes")
	test.MustBe(t, string(want), string(client.objects["feeds/ds/0.xml"]))
	test.MustBe(t, "1", aws.StringValue(client.meta["feeds/ds/0.xml"]["Records"]))
	test.MustBe(t, "incremental", aws.StringValue(client.meta["feeds/ds/0.xml"]["Feedtype"]))
}
