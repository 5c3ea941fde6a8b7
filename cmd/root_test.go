package cmd

import (
	"bytes"
	"io/ioutil"
	"os"
	"testing"

	"github.com/pilosa/feedgen/test"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestSetAllConfig(t *testing.T) {
	cfg, err := ioutil.TempFile("", "feedgen-config")
	test.ErrNil(t, err, "TempFile")
	defer os.Remove(cfg.Name())
	_, err = cfg.WriteString(`
data-source = "fromfile"
max-feed-size = "2MB"
content-encodings = ["base64binary"]
`)
	test.ErrNil(t, err, "writing config")
	test.ErrNil(t, cfg.Close(), "closing config")

	os.Setenv("FEEDGEN_MAX_FEED_SIZE", "5MB")
	defer os.Unsetenv("FEEDGEN_MAX_FEED_SIZE")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config := flags.String("config", "", "")
	dataSource := flags.String("data-source", "feedgen", "")
	maxFeedSize := flags.String("max-feed-size", "10MB", "")
	feedType := flags.String("feed-type", "content", "")
	encodings := flags.StringSlice("content-encodings", []string{"base64binary", "base64compressed"}, "")
	test.ErrNil(t, flags.Parse([]string{"--config", cfg.Name(), "--feed-type", "metadataurl"}), "Parse")

	test.ErrNil(t, setAllConfig(viper.New(), flags, "FEEDGEN"), "setAllConfig")
	test.MustBe(t, cfg.Name(), *config)
	test.MustBe(t, "fromfile", *dataSource, "config file")
	test.MustBe(t, "5MB", *maxFeedSize, "env overrides config")
	test.MustBe(t, "metadataurl", *feedType, "flag")
	test.MustBe(t, []string{"base64binary"}, *encodings, "string slice from config")
}

func TestRootCommandSubcommands(t *testing.T) {
	rc := NewRootCommand(nil, &bytes.Buffer{}, &bytes.Buffer{})
	names := make(map[string]bool)
	for _, c := range rc.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"csv", "file", "http", "kafka", "kafkagen", "s3"} {
		if !names[want] {
			t.Errorf("missing subcommand %s in %v", want, names)
		}
	}
}
