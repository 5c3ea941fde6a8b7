package kafka

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math/rand"
	"net/http"
	"time"

	"github.com/Shopify/sarama"
	"github.com/linkedin/goavro"
	"github.com/pilosa/feedgen"
	"github.com/pkg/errors"
)

// docSchema is the avro schema of generated documents.
const docSchema = `{
  "type": "record",
  "name": "Document",
  "namespace": "com.pilosa.feedgen",
  "fields": [
    {"name": "id", "type": "string"},
    {"name": "title", "type": "string"},
    {"name": "body", "type": "string"},
    {"name": "aclusers", "type": {"type": "array", "items": "string"}},
    {"name": "lat", "type": ["null", "double"]},
    {"name": "lon", "type": ["null", "double"]}
  ]
}`

var words = []string{"feed", "record", "metadata", "content", "principal", "group", "crawl", "index", "search", "appliance"}

// GenMain produces generated documents to a kafka topic, as JSON or as
// avro framed for the Confluent schema registry.
type GenMain struct {
	Hosts       []string      `help:"Comma separated list of Kafka hosts and ports."`
	Topic       string        `help:"Kafka topic to produce to."`
	RegistryURL string        `help:"Schema registry host:port. Empty produces JSON instead of Avro."`
	Rate        time.Duration `help:"Time to wait between messages."`
	Count       int           `help:"Number of messages to produce. 0 means no limit."`
	Seed        int64         `help:"Random seed."`

	Log feedgen.Logger `flag:"-"`
}

// NewGenMain gets a GenMain with default values.
func NewGenMain() *GenMain {
	return &GenMain{
		Hosts: []string{"localhost:9092"},
		Topic: "test",
		Rate:  time.Second,
		Count: 100,
		Seed:  1,
		Log:   feedgen.NopLogger{},
	}
}

// Generator builds documents and their kafka messages.
type Generator struct {
	rng      *rand.Rand
	codec    *goavro.Codec
	schemaID int32
	n        int
}

// NewGenerator gets a Generator. If codec is nil messages are JSON,
// otherwise avro with the registry framing for schemaID.
func NewGenerator(seed int64, codec *goavro.Codec, schemaID int32) *Generator {
	return &Generator{
		rng:      rand.New(rand.NewSource(seed)),
		codec:    codec,
		schemaID: schemaID,
	}
}

// NewDocCodec parses the schema of generated documents.
func NewDocCodec() (*goavro.Codec, error) {
	return goavro.NewCodec(docSchema)
}

func (g *Generator) text(n int) string {
	buf := &bytes.Buffer{}
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(words[g.rng.Intn(len(words))])
	}
	return buf.String()
}

// Doc returns the next generated document in its native form.
func (g *Generator) Doc() map[string]interface{} {
	id := fmt.Sprintf("doc-%d", g.n)
	g.n++
	users := make([]interface{}, 1+g.rng.Intn(3))
	for i := range users {
		users[i] = fmt.Sprintf("user%d", g.rng.Intn(50))
	}
	doc := map[string]interface{}{
		"id":       id,
		"title":    g.text(3),
		"body":     g.text(20 + g.rng.Intn(50)),
		"aclusers": users,
		"lat":      nil,
		"lon":      nil,
	}
	if g.rng.Intn(2) == 0 {
		doc["lat"] = g.rng.Float64()*180 - 90
		doc["lon"] = g.rng.Float64()*360 - 180
	}
	return doc
}

// Message returns the next generated document as a producer message keyed
// by its id.
func (g *Generator) Message(topic string) (*sarama.ProducerMessage, error) {
	doc := g.Doc()
	key := sarama.StringEncoder(doc["id"].(string))
	if g.codec == nil {
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, errors.Wrap(err, "marshaling json")
		}
		return &sarama.ProducerMessage{Topic: topic, Key: key, Value: sarama.ByteEncoder(data)}, nil
	}
	for _, k := range []string{"lat", "lon"} {
		if doc[k] != nil {
			doc[k] = goavro.Union("double", doc[k])
		}
	}
	header := make([]byte, 5)
	binary.BigEndian.PutUint32(header[1:], uint32(g.schemaID))
	data, err := g.codec.BinaryFromNative(header, doc)
	if err != nil {
		return nil, errors.Wrap(err, "encoding avro")
	}
	return &sarama.ProducerMessage{Topic: topic, Key: key, Value: sarama.ByteEncoder(data)}, nil
}

// RegisterSchema registers the document schema for topic's values and
// returns its id.
func RegisterSchema(registryURL, topic string) (int32, error) {
	body, err := json.Marshal(Schema{Schema: docSchema})
	if err != nil {
		return 0, errors.Wrap(err, "marshaling schema")
	}
	resp, err := http.Post(fmt.Sprintf("http://%s/subjects/%s-value/versions", registryURL, topic),
		"application/vnd.schemaregistry.v1+json", bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "posting schema")
	}
	defer resp.Body.Close()
	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return 0, errors.Wrap(err, "reading response body")
	}
	if resp.StatusCode >= 300 || resp.StatusCode < 200 {
		return 0, errors.Errorf("unexpected status posting schema: %v, body: %s", resp.StatusCode, respBody)
	}
	var reg struct {
		ID int32 `json:"id"`
	}
	if err := json.Unmarshal(respBody, &reg); err != nil {
		return 0, errors.Wrap(err, "decoding schema id")
	}
	return reg.ID, nil
}

// Run produces Count messages at Rate.
func (m *GenMain) Run() error {
	gen := NewGenerator(m.Seed, nil, 0)
	if m.RegistryURL != "" {
		codec, err := NewDocCodec()
		if err != nil {
			return errors.Wrap(err, "parsing schema")
		}
		id, err := RegisterSchema(m.RegistryURL, m.Topic)
		if err != nil {
			return errors.Wrap(err, "registering schema")
		}
		gen = NewGenerator(m.Seed, codec, id)
	}

	conf := sarama.NewConfig()
	conf.Version = sarama.V0_10_0_0
	conf.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(m.Hosts, conf)
	if err != nil {
		return errors.Wrap(err, "getting new producer")
	}
	defer producer.Close()

	ticker := time.NewTicker(m.Rate)
	defer ticker.Stop()
	for i := 0; m.Count == 0 || i < m.Count; i++ {
		msg, err := gen.Message(m.Topic)
		if err != nil {
			return errors.Wrap(err, "generating message")
		}
		if _, _, err := producer.SendMessage(msg); err != nil {
			m.Log.Printf("Error sending message: '%v', backing off", err)
			time.Sleep(time.Second * 10)
		}
		<-ticker.C
	}
	return nil
}
