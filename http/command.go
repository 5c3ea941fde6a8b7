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

package http

import (
	"github.com/pilosa/feedgen"
	"github.com/pilosa/feedgen/file"
	"github.com/pilosa/feedgen/ingest"
	"github.com/pkg/errors"
)

// Main holds the config for the http command.
type Main struct {
	ingest.Main `flag:"!embed"`
	Bind        string `help:"Listen for post requests on this address."`
	Buffer      int    `help:"Number of received documents to buffer before requests block."`
	OutDir      string `help:"Directory to write feed files to."`
	TLS         ingest.TLSConfig
}

// NewMain gets a new Main with default values.
func NewMain() *Main {
	m := &Main{
		Main:   *ingest.NewMain(),
		Bind:   ":12121",
		Buffer: 100,
		OutDir: "feeds",
	}
	m.NewSource = func() (feedgen.Source, error) {
		tlsConfig, err := ingest.GetTLSConfig(&m.TLS, m.Log())
		if err != nil {
			return nil, errors.Wrap(err, "getting TLS config")
		}
		src, err := NewJSONSource(WithAddr(m.Bind), WithBuffer(m.Buffer), WithTLS(tlsConfig), WithLogger(m.Log()))
		if err != nil {
			return nil, errors.Wrap(err, "getting json source")
		}
		m.Log().Printf("listening on %s", src.Addr())
		return src, nil
	}
	m.NewSink = func() (feedgen.Sink, error) {
		return file.NewSink(m.OutDir)
	}
	return m
}
