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

// +build integration

package kafka_test

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/pilosa/feedgen/kafka"
	"github.com/pilosa/feedgen/test"
)

var kafkaTopic = "feedgentest"
var kafkaGroup = "feedgentestgroup"

// TestKafkaMain produces generated documents to a local kafka and sends them as
// feeds.
func TestKafkaMain(t *testing.T) {
	topic := fmt.Sprintf("%s-%d", kafkaTopic, time.Now().UnixNano())
	conf := sarama.NewConfig()
	conf.Version = sarama.V0_10_0_0
	conf.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer([]string{"localhost:9092"}, conf)
	test.ErrNil(t, err, "getting producer")
	gen := kafka.NewGenerator(1, nil, 0)
	for i := 0; i < 20; i++ {
		msg, err := gen.Message(topic)
		test.ErrNil(t, err, "generating message")
		_, _, err = producer.SendMessage(msg)
		test.ErrNil(t, err, "sending message")
	}
	test.ErrNil(t, producer.Close(), "closing producer")

	d, err := ioutil.TempDir("", "kafkamain")
	test.ErrNil(t, err, "TempDir")
	defer os.RemoveAll(d)

	m := kafka.NewMain()
	m.Topics = []string{topic}
	m.Group = kafkaGroup
	m.RegistryURL = ""
	m.MaxMsgs = 20
	m.DataSource = "kafka"
	m.FeedIDPrefix = "k"
	m.OutDir = d
	m.GeohashLat = "lat"
	m.GeohashLon = "lon"
	test.ErrNil(t, m.Run(), "Run")

	feed, err := ioutil.ReadFile(filepath.Join(d, "kafka-k0.xml"))
	test.ErrNil(t, err, "reading feed")
	test.MustBe(t, 20, strings.Count(string(feed), "<record "))
}
