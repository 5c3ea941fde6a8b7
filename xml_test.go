package feedgen

import (
	"strings"
	"testing"

	"github.com/pilosa/feedgen/test"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in, exp string
	}{
		{"plain", "plain"},
		{`<a href="x">'&'</a>`, "&lt;a href=&quot;x&quot;&gt;&apos;&amp;&apos;&lt;/a&gt;"},
		{"tab\tnl\ncr\r", "tab\tnl\ncr\r"},
		{"bell\x07null\x00", "bellnull"},
		{"bad\xffutf8", "badutf8"},
		{"日本語 é", "日本語 é"},
		{"\ufffe\ufffdok", "\ufffdok"},
	}
	for _, tst := range tests {
		var b strings.Builder
		escape(&b, tst.in)
		test.MustBe(t, tst.exp, b.String(), tst.in)
	}
}

func TestFeedPrefix(t *testing.T) {
	exp := xmlStart + "\n<gsafeed>\n<header>\n<datasource>a&amp;b</datasource>\n" +
		"<feedtype>metadata-and-url</feedtype>\n</header>\n<group>\n"
	test.MustBe(t, exp, feedPrefix("a&b", KindMetadataURL))
	test.MustBe(t, "</group>\n</gsafeed>\n", feedSuffix())
}

func TestXMLBuilder(t *testing.T) {
	var b xmlBuilder
	b.open("meta")
	b.attr("name", "x<y")
	b.WriteString("/>\n")
	b.start("p")
	b.text("a&b")
	b.end("p")
	test.MustBe(t, "<meta name=\"x&lt;y\"/>\n<p>a&amp;b</p>\n", b.String())
}
