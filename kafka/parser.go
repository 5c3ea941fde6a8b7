package kafka

import (
	"bytes"
	"time"

	"github.com/Shopify/sarama"
	"github.com/pilosa/feedgen"
	"github.com/pkg/errors"
)

// MessageParser turns raw kafka messages into documents: the key is the
// docid, the value the content and the timestamp the last modified date.
// Headers, when the broker sends them, become properties.
type MessageParser struct {
	MimeType string
}

// Parse implements feedgen.Parser.
func (p MessageParser) Parse(data interface{}) (feedgen.Document, error) {
	msg, ok := data.(*sarama.ConsumerMessage)
	if !ok {
		return nil, errors.Errorf("record is not a raw kafka record, but a %T", data)
	}
	if len(msg.Key) == 0 {
		return nil, errors.Errorf("message at %s/%d/%d has no key", msg.Topic, msg.Partition, msg.Offset)
	}
	doc := feedgen.MapDocument{
		feedgen.PropDocID:   feedgen.Values{feedgen.S(msg.Key)},
		feedgen.PropContent: feedgen.Values{feedgen.Binary{R: bytes.NewReader(msg.Value)}},
	}
	if p.MimeType != "" {
		doc[feedgen.PropMimeType] = feedgen.Values{feedgen.S(p.MimeType)}
	}
	if !msg.Timestamp.IsZero() {
		doc[feedgen.PropLastModified] = feedgen.Values{feedgen.Calendar(msg.Timestamp.In(time.UTC))}
	}
	for _, h := range msg.Headers {
		if h == nil || len(h.Key) == 0 {
			continue
		}
		name := string(h.Key)
		doc[name] = append(doc[name], feedgen.S(h.Value))
	}
	return doc, nil
}
