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
	"github.com/pilosa/feedgen"
	"github.com/pilosa/feedgen/file"
	"github.com/pilosa/feedgen/ingest"
	"github.com/pkg/errors"
)

// Main holds the config for sending documents consumed from kafka.
type Main struct {
	ingest.Main `flag:"!embed"`
	Hosts       []string `help:"Comma separated list of Kafka hosts and ports"`
	Topics      []string `help:"Comma separated list of Kafka topics"`
	Group       string   `help:"Kafka group"`
	RegistryURL string   `help:"URL of the confluent schema registry. Pass an empty string to use JSON instead of Avro."`
	Raw         bool     `help:"Treat each message value as document content keyed by the message key."`
	MimeType    string   `help:"Mime type of raw message content."`
	MaxMsgs     int      `help:"Stop after this many messages. 0 means no limit."`
	OutDir      string   `help:"Directory to write feed files to."`
	TLS         ingest.TLSConfig
}

// NewMain gets a Main with default values.
func NewMain() *Main {
	m := &Main{
		Main:        *ingest.NewMain(),
		Hosts:       []string{"localhost:9092"},
		Topics:      []string{"test"},
		Group:       "group0",
		RegistryURL: "localhost:8081",
		MimeType:    "text/plain",
		OutDir:      "feeds",
	}
	m.NewSource = m.newSource
	m.NewSink = func() (feedgen.Sink, error) {
		return file.NewSink(m.OutDir)
	}
	return m
}

func (m *Main) newSource() (feedgen.Source, error) {
	tlsConfig, err := ingest.GetTLSConfig(&m.TLS, m.Log())
	if err != nil {
		return nil, errors.Wrap(err, "getting TLS config")
	}
	configure := func(s *Source) {
		s.Hosts = m.Hosts
		s.Topics = m.Topics
		s.Group = m.Group
		s.MaxMsgs = m.MaxMsgs
		s.KeyField = m.DocIDField
		s.TLS = tlsConfig
		s.Log = m.Log()
	}
	if m.Raw {
		if m.Parser == nil {
			m.Parser = MessageParser{MimeType: m.MimeType}
		}
		src := NewSource()
		configure(src)
		src.Type = "raw"
		return src, errors.Wrap(src.Open(), "opening kafka source")
	}
	if m.RegistryURL == "" {
		src := NewSource()
		configure(src)
		return src, errors.Wrap(src.Open(), "opening kafka source")
	}
	src := NewConfluentSource()
	configure(&src.Source)
	src.RegistryURL = m.RegistryURL
	return src, errors.Wrap(src.Open(), "opening confluent source")
}
