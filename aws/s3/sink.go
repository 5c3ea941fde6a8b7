package s3

import (
	"bytes"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pilosa/feedgen"
	"github.com/pkg/errors"
)

// Sink is a feedgen.Sink archiving each feed as an object named
// <prefix>/<datasource>/<feed id>.xml.
type Sink struct {
	s3     s3iface.S3API
	bucket string
	prefix string
}

// NewSink gets a Sink writing to bucket.
func NewSink(client s3iface.S3API, bucket, prefix string) *Sink {
	return &Sink{s3: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key a feed is archived under.
func (s *Sink) Key(f *feedgen.Feed) string {
	return path.Join(s.prefix, f.DataSource(), f.ID()+".xml")
}

// Send implements feedgen.Sink.
func (s *Sink) Send(f *feedgen.Feed) error {
	data, err := f.Bytes()
	if err != nil {
		return errors.Wrap(err, "getting feed bytes")
	}
	info := f.Info()
	key := s.Key(f)
	_, err = s.s3.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/xml"),
		Metadata: map[string]*string{
			"Feedtype": aws.String(info.Kind.Legacy()),
			"Records":  aws.String(strconv.Itoa(info.Records)),
		},
	})
	return errors.Wrapf(err, "putting %s", key)
}
