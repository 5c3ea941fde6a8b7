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

package s3

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pilosa/feedgen"
	"github.com/pilosa/feedgen/json"
	"github.com/pkg/errors"
)

// SrcOption is a functional option type for s3.Source.
type SrcOption func(s *Source)

// OptSrcBucket is a SrcOption which sets the S3 bucket for a Source.
func OptSrcBucket(bucket string) SrcOption {
	return func(s *Source) {
		s.bucket = bucket
	}
}

// OptSrcRegion is a SrcOption which sets the AWS region for a Source.
func OptSrcRegion(region string) SrcOption {
	return func(s *Source) {
		s.region = region
	}
}

// OptSrcDocIDAt tells the source to set key on each record which has no
// value for it to <S3 bucket>.<S3 object key>#<record number>.
func OptSrcDocIDAt(key string) SrcOption {
	return func(s *Source) {
		s.docIDAt = key
	}
}

// OptSrcPrefix tells the source to list only the objects in the bucket that
// match the specified prefix.
func OptSrcPrefix(prefix string) SrcOption {
	return func(s *Source) {
		s.prefix = prefix
	}
}

// OptSrcClient sets the S3 client instead of creating one for the region.
func OptSrcClient(client s3iface.S3API) SrcOption {
	return func(s *Source) {
		s.client = client
	}
}

// Source is a feedgen.Source which reads line separated json documents from
// the objects of a bucket.
type Source struct {
	bucket  string
	prefix  string
	region  string
	docIDAt string
	client  s3iface.S3API

	mu     sync.Mutex
	rs     *RawSource
	cur    feedgen.NamedReadCloser
	json   *json.Source
	recNum int
}

// NewSource returns a new Source with the options applied.
func NewSource(opts ...SrcOption) (s *Source, err error) {
	s = &Source{}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client, err = NewClient(s.region)
		if err != nil {
			return nil, err
		}
	}
	s.rs, err = NewRawSource(s.client, s.bucket, s.prefix)
	if err != nil {
		return nil, errors.Wrap(err, "getting raw s3 source")
	}
	return s, nil
}

// Record parses the next JSON object from the current object in the bucket,
// or moves to the next object and returns its first json object.
func (s *Source) Record() (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if s.json == nil {
			r, err := s.rs.NextReader()
			if err != nil {
				return nil, err
			}
			s.cur, s.json, s.recNum = r, json.NewSource(r), 0
		}
		rec, err := s.json.Record()
		if err == io.EOF {
			if cerr := s.cur.Close(); cerr != nil {
				return nil, errors.Wrapf(cerr, "closing %s", s.cur.Name())
			}
			s.json = nil
			continue
		} else if err != nil {
			return nil, errors.Wrapf(err, "decoding json from %s", s.cur.Name())
		}
		if m, ok := rec.(map[string]interface{}); ok && s.docIDAt != "" {
			if _, ok := m[s.docIDAt]; !ok {
				m[s.docIDAt] = fmt.Sprintf("%s.%s#%d", s.bucket, s.cur.Name(), s.recNum)
			}
		}
		s.recNum++
		return rec, nil
	}
}

// NewClient gets an S3 client for region using the default credential chain.
func NewClient(region string) (*s3.S3, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region)},
	)
	if err != nil {
		return nil, errors.Wrap(err, "getting new session")
	}
	return s3.New(sess), nil
}

// RawSource is a feedgen.RawSource over the objects of a bucket.
type RawSource struct {
	bucket string
	prefix string

	s3      s3iface.S3API
	objects []*s3.Object
	objIdx  *uint64
}

// NewRawSource lists every object in bucket under prefix.
func NewRawSource(client s3iface.S3API, bucket, prefix string) (*RawSource, error) {
	idx := uint64(0)
	rs := &RawSource{
		bucket: bucket,
		prefix: prefix,
		s3:     client,
		objIdx: &idx,
	}
	input := &s3.ListObjectsInput{Bucket: aws.String(rs.bucket), Prefix: aws.String(rs.prefix)}
	for {
		resp, err := rs.s3.ListObjects(input)
		if err != nil {
			return nil, errors.Wrap(err, "listing objects")
		}
		rs.objects = append(rs.objects, resp.Contents...)
		if !aws.BoolValue(resp.IsTruncated) || len(resp.Contents) == 0 {
			break
		}
		marker := resp.NextMarker
		if marker == nil {
			marker = resp.Contents[len(resp.Contents)-1].Key
		}
		input.Marker = marker
	}
	return rs, nil
}

type objReader struct {
	name string
	body io.ReadCloser
}

func (o *objReader) Read(buf []byte) (n int, err error) {
	return o.body.Read(buf)
}

func (o *objReader) Close() error {
	return o.body.Close()
}

func (o *objReader) Name() string {
	return o.name
}

// NextReader implements feedgen.RawSource.
func (rs *RawSource) NextReader() (feedgen.NamedReadCloser, error) {
	idx := atomic.AddUint64(rs.objIdx, 1) - 1
	if int(idx) >= len(rs.objects) {
		return nil, io.EOF
	}
	obj := rs.objects[idx]

	result, err := rs.s3.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(*obj.Key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %v", *obj.Key)
	}
	return &objReader{name: *obj.Key, body: result.Body}, nil
}
