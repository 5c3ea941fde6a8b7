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
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pilosa/feedgen"
	"github.com/pkg/errors"
)

// JSONSource implements the feedgen.Source interface by listening for HTTP
// post requests and decoding json documents from their bodies.
type JSONSource struct {
	addr      string
	listener  net.Listener
	tlsConfig *tls.Config
	server    *http.Server
	records   chan record
	log       feedgen.Logger

	done      chan struct{}
	closeOnce sync.Once
	serveErr  error
}

// WithAddr is an option for the JSONSource which causes it to bind to the given
// address.
func WithAddr(addr string) JSONSourceOption {
	return func(j *JSONSource) {
		j.addr = addr
	}
}

// WithListener is an option for JSONSource which causes it to use the given
// listener. It will infer the address from the listener.
func WithListener(l net.Listener) JSONSourceOption {
	return func(j *JSONSource) {
		j.listener = l
		j.addr = l.Addr().String()
	}
}

// WithBuffer is an option for JSONSource which modifies the length of the
// channel used to buffer received records (while they are waiting to be
// retrieved by a call to Record).
func WithBuffer(n int) JSONSourceOption {
	return func(j *JSONSource) {
		if n > -1 {
			j.records = make(chan record, n)
		}
	}
}

// WithTLS is an option for JSONSource which makes it serve HTTPS. A nil
// config leaves it serving plain HTTP.
func WithTLS(conf *tls.Config) JSONSourceOption {
	return func(j *JSONSource) {
		j.tlsConfig = conf
	}
}

// WithLogger sets the logger for rejected requests.
func WithLogger(l feedgen.Logger) JSONSourceOption {
	return func(j *JSONSource) {
		if l != nil {
			j.log = l
		}
	}
}

// JSONSourceOption is a functional option type for JSONSource.
type JSONSourceOption func(j *JSONSource)

// NewJSONSource creates a JSONSource - it takes JSONSourceOptions which modify
// its behavior.
func NewJSONSource(opts ...JSONSourceOption) (*JSONSource, error) {
	j := &JSONSource{
		records: make(chan record, 3),
		log:     feedgen.NopLogger{},
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(j)
	}

	if j.listener == nil {
		var err error
		j.listener, err = net.Listen("tcp", j.addr)
		if err != nil {
			return nil, errors.Wrap(err, "listening")
		}
	}
	if tl, ok := j.listener.(*net.TCPListener); ok {
		j.listener = tcpKeepAliveListener{tl}
	}
	if j.tlsConfig != nil {
		j.listener = tls.NewListener(j.listener, j.tlsConfig)
	}

	j.server = &http.Server{
		Addr:    j.addr,
		Handler: j,
	}
	go func() {
		err := j.server.Serve(j.listener)
		if err != nil && err != http.ErrServerClosed {
			j.serveErr = errors.Wrap(err, "serving")
			j.Close()
		}
	}()
	return j, nil
}

// Addr gets the address that the JSONSource is listening on.
func (j *JSONSource) Addr() string {
	if j.listener != nil {
		return j.listener.Addr().String()
	}
	return j.addr
}

type record struct {
	data interface{}
	err  error
}

// Record returns an unmarshaled json document as a map[string]interface{}.
// Numbers are decoded as json.Number. Once the source is closed, records
// already received are returned, then io.EOF.
func (j *JSONSource) Record() (interface{}, error) {
	select {
	case rec := <-j.records:
		return rec.data, rec.err
	case <-j.done:
	}
	select {
	case rec := <-j.records:
		return rec.data, rec.err
	default:
	}
	if j.serveErr != nil {
		return nil, j.serveErr
	}
	return nil, io.EOF
}

// Close stops the server. Requests still being read are rejected.
func (j *JSONSource) Close() error {
	var err error
	j.closeOnce.Do(func() {
		close(j.done)
		err = j.server.Close()
	})
	return errors.Wrap(err, "closing server")
}

// ServeHTTP implements http.Handler for JSONSource. Every document of a
// request is queued before the response is written; the response body is
// the number of documents accepted.
func (j *JSONSource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		err := errors.Errorf("unsupported method: %v", r.Method)
		j.log.Printf("%v", err)
		http.Error(w, err.Error(), http.StatusMethodNotAllowed)
		return
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	n := 0
	for {
		doc := make(map[string]interface{})
		err := dec.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			err := errors.Wrapf(err, "decoding json after %d documents", n)
			j.log.Printf("%v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		select {
		case j.records <- record{data: doc}:
			n++
		case <-j.done:
			http.Error(w, fmt.Sprintf("shutting down after %d documents", n), http.StatusServiceUnavailable)
			return
		}
	}
	fmt.Fprintf(w, "%d\n", n)
}

// tcpKeepAliveListener is copied from net/http

type tcpKeepAliveListener struct {
	*net.TCPListener
}

func (ln tcpKeepAliveListener) Accept() (c net.Conn, err error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)
	return tc, nil
}
