// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package kafka

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/elodina/go-avro"
	"github.com/linkedin/goavro"
	"github.com/pilosa/feedgen"
	"github.com/pilosa/feedgen/test"
	"github.com/pkg/errors"
)

func TestConfluentSource(t *testing.T) {
	regURL := StartFakeRegistry(t)
	source := NewConfluentSource()
	source.RegistryURL = regURL
	data := GetAvroEncodedValue(t)
	val := append([]byte{0, 0, 0, 0, 1}, data...)

	parsedRec, err := source.decodeAvroValueWithSchemaRegistry(val)
	if err != nil {
		t.Fatal(err)
	}

	if parsedRec["mysubthing"].(map[string]interface{})["subdub"] != 3.14 {
		t.Fatalf("parsed and original are different")
	}

	doc, err := feedgen.NewDefaultGenericParser().Parse(parsedRec)
	test.ErrNil(t, err, "Parse")
	sub, _, err := feedgen.OptionalString(doc, "mysubthing.substring")
	test.ErrNil(t, err, "mysubthing.substring")
	test.MustBe(t, "blahsub", sub)
}

func TestConfluentSourceErrors(t *testing.T) {
	regURL := StartFakeRegistry(t)
	source := NewConfluentSource()
	source.RegistryURL = regURL
	data := GetAvroEncodedValue(t)

	tests := []struct {
		name string
		val  []byte
	}{
		{name: "short", val: []byte{0, 0, 0}},
		{name: "magic", val: append([]byte{1, 0, 0, 0, 1}, data...)},
		{name: "unknown schema", val: append([]byte{0, 0, 0, 0, 9}, data...)},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			if _, err := source.decodeAvroValueWithSchemaRegistry(tst.val); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

var value = map[string]interface{}{
	"thing_string": "blah",
	"thing_int":    34,
	"mysubthing": map[string]interface{}{
		"com.pilosa.thing.SubThing": map[string]interface{}{
			"substring": map[string]interface{}{"string": "blahsub"},
			"subdub":    map[string]interface{}{"double": 3.14},
		},
	},
}

func GetAvroEncodedValue(t *testing.T) []byte {
	codec, err := goavro.NewCodec(schema1)
	if err != nil {
		t.Fatal(err)
	}

	data, err := codec.BinaryFromNative([]byte{}, value)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestElodinaDecode(t *testing.T) {
	data := GetAvroEncodedValue(t)

	schema, err := avro.ParseSchema(schema1)
	if err != nil {
		t.Fatal(err)
	}

	gomap, err := avroDecode(schema, data)
	if err != nil {
		t.Fatal(err)
	}
	if gomap["thing_int"].(int32) != 34 {
		t.Fatalf("unexpected decoded map: %v", gomap)
	}
}

func TestMessageParser(t *testing.T) {
	ts := time.Date(2018, 12, 1, 10, 0, 0, 0, time.UTC)
	msg := &sarama.ConsumerMessage{
		Key:       []byte("doc-1"),
		Value:     []byte("hello"),
		Timestamp: ts,
		Headers:   []*sarama.RecordHeader{{Key: []byte("title"), Value: []byte("Hi")}},
	}
	doc, err := MessageParser{MimeType: "text/plain"}.Parse(msg)
	test.ErrNil(t, err, "Parse")
	id, err := feedgen.DocID(doc)
	test.ErrNil(t, err, "DocID")
	test.MustBe(t, "doc-1", id)
	title, _, err := feedgen.OptionalString(doc, "title")
	test.ErrNil(t, err, "title")
	test.MustBe(t, "Hi", title)

	f, err := feedgen.Open("kafka", feedgen.KindContent)
	test.ErrNil(t, err, "Open")
	test.ErrNil(t, f.AddRecord(doc), "AddRecord")
	test.ErrNil(t, f.Close(), "Close")
	data, err := f.Bytes()
	test.ErrNil(t, err, "Bytes")
	test.MustContain(t, string(data),
		`mimetype="text/plain"`,
		`last-modified="Sat, 01 Dec 2018 10:00:00 GMT"`,
		`<meta name="title" content="Hi"/>`,
		"aGVsbG8=",
	)

	if _, err := (MessageParser{}).Parse(&sarama.ConsumerMessage{Value: []byte("x")}); err == nil {
		t.Fatal("expected error for message without key")
	}
	if _, err := (MessageParser{}).Parse("not a message"); err == nil {
		t.Fatal("expected error for wrong record type")
	}
}

func TestGeneratorJSON(t *testing.T) {
	gen := NewGenerator(7, nil, 0)
	for i := 0; i < 3; i++ {
		msg, err := gen.Message("docs")
		test.ErrNil(t, err, "Message")
		key, err := msg.Key.Encode()
		test.ErrNil(t, err, "encoding key")
		test.MustBe(t, fmt.Sprintf("doc-%d", i), string(key))
		val, err := msg.Value.Encode()
		test.ErrNil(t, err, "encoding value")
		doc := make(map[string]interface{})
		test.ErrNil(t, json.Unmarshal(val, &doc), "unmarshaling")
		test.MustBe(t, string(key), doc["id"])
	}
}

func TestGeneratorAvro(t *testing.T) {
	regURL := StartFakeRegistry(t)
	id, err := RegisterSchema(regURL, "docs")
	test.ErrNil(t, err, "RegisterSchema")
	test.MustBe(t, int32(2), id)

	codec, err := NewDocCodec()
	test.ErrNil(t, err, "NewDocCodec")
	gen := NewGenerator(7, codec, id)
	source := NewConfluentSource()
	source.RegistryURL = regURL
	parser := feedgen.NewDefaultGenericParser()
	parser.DocIDField = "id"
	for i := 0; i < 5; i++ {
		msg, err := gen.Message("docs")
		test.ErrNil(t, err, "Message")
		val, err := msg.Value.Encode()
		test.ErrNil(t, err, "encoding value")
		rec, err := source.decodeAvroValueWithSchemaRegistry(val)
		test.ErrNil(t, err, "decoding")
		doc, err := parser.Parse(rec)
		test.ErrNil(t, err, "Parse")
		docID, err := feedgen.DocID(doc)
		test.ErrNil(t, err, "DocID")
		test.MustBe(t, fmt.Sprintf("doc-%d", i), docID)
		p, err := doc.FindProperty("aclusers")
		test.ErrNil(t, err, "aclusers")
		if _, err := p.NextValue(); err == io.EOF {
			t.Fatalf("no acl users in %v", rec)
		}
	}
}

func StartFakeRegistry(t *testing.T) string {
	server := &http.Server{Addr: ":0", Handler: http.HandlerFunc(RegistryHandler)}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		t.Fatalf("starting fake registry listener: %v", err)
	}
	go func() {
		log.Printf("fake registry test server failed: %v", server.Serve(ln))
	}()
	return ln.Addr().String()
}

var schema1 string = `{
    "fields": [
        {
            "name": "thing_string",
            "type": "string"
        },
        {
            "name": "thing_int",
            "type": "int"
        },
        {
            "name": "mysubthing",
            "type": [
                "null",
                {
                    "fields": [
                       {
                            "name": "substring",
                            "type": [
                                "null",
                                "string"
                            ]
                        },
                        {
                            "name": "subdub",
                            "type": [
                                "null",
                                "double"
                            ]
                        }
                    ],
                    "name": "SubThing",
                    "type": "record"
                }
            ]
        }
    ],
    "name": "Thing",
    "namespace": "com.pilosa.thing",
    "type": "record"
}`

func RegistryHandler(w http.ResponseWriter, r *http.Request) {
	enc := json.NewEncoder(w)
	if r.Method == http.MethodPost {
		var subject string
		if _, err := fmt.Sscanf(r.URL.Path, "/subjects/%s", &subject); err != nil {
			http.Error(w, errors.Wrap(err, "extracting subject from path").Error(), http.StatusBadRequest)
			return
		}
		if err := enc.Encode(map[string]int{"id": 2}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	var id int32
	_, err := fmt.Sscanf(r.URL.Path, "/schemas/ids/%d", &id)
	if err != nil {
		http.Error(w, errors.Wrap(err, "extracting id from path").Error(), http.StatusBadRequest)
		return
	}
	switch id {
	case 1:
		err = enc.Encode(Schema{Schema: schema1, ID: 1})
	case 2:
		err = enc.Encode(Schema{Schema: docSchema, ID: 2})
	default:
		http.Error(w, fmt.Sprintf("unknown id: %d", id), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
