package feedgen

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"io"
	"strings"
)

// ContentEncoding is the binary-to-text transform applied to content.
type ContentEncoding int

const (
	EncodingInvalid ContentEncoding = iota
	// EncodingBase64 is plain base64.
	EncodingBase64
	// EncodingBase64Compressed is zlib compressed, then base64 encoded.
	EncodingBase64Compressed
)

func (e ContentEncoding) String() string {
	switch e {
	case EncodingBase64:
		return "base64binary"
	case EncodingBase64Compressed:
		return "base64compressed"
	}
	return "invalid"
}

// FindContentEncoding returns EncodingInvalid for unknown names.
func FindContentEncoding(s string) ContentEncoding {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "base64binary":
		return EncodingBase64
	case "base64compressed":
		return EncodingBase64Compressed
	}
	return EncodingInvalid
}

// encodingSet is the parsed form of an appliance capability string.
type encodingSet map[ContentEncoding]struct{}

func parseEncodings(supported string) encodingSet {
	set := make(encodingSet)
	for _, f := range strings.FieldsFunc(supported, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	}) {
		if e := FindContentEncoding(f); e != EncodingInvalid {
			set[e] = struct{}{}
		}
	}
	return set
}

func (s encodingSet) has(e ContentEncoding) bool {
	_, ok := s[e]
	return ok
}

// NegotiateEncoding picks the default encoding for a feed: compressed if the
// appliance advertises it, plain base64 otherwise.
func NegotiateEncoding(supported string) ContentEncoding {
	if parseEncodings(supported).has(EncodingBase64Compressed) {
		return EncodingBase64Compressed
	}
	return EncodingBase64
}

const (
	base64LineWidth = 76
	contentChunk    = 1024 * 1024
	alternateChunk  = 2048
)

// encodingReader pulls from src and yields the encoded form of what it read.
// Only one chunk of input is held at a time.
type encodingReader struct {
	src     io.Reader
	chunk   []byte
	pending bytes.Buffer
	b64     io.WriteCloser
	zw      *zlib.Writer
	w       io.Writer
	done    bool
}

func newEncodingReader(src io.Reader, enc ContentEncoding, wrapLines bool, chunkSize int) *encodingReader {
	r := &encodingReader{
		src:   src,
		chunk: make([]byte, chunkSize),
	}
	var out io.Writer = &r.pending
	if wrapLines {
		out = &lineWrapper{w: &r.pending, width: base64LineWidth}
	}
	r.b64 = base64.NewEncoder(base64.StdEncoding, out)
	r.w = r.b64
	if enc == EncodingBase64Compressed {
		r.zw = zlib.NewWriter(r.b64)
		r.w = r.zw
	}
	return r
}

func (r *encodingReader) Read(p []byte) (int, error) {
	for r.pending.Len() == 0 && !r.done {
		n, err := r.src.Read(r.chunk)
		if n > 0 {
			if _, werr := r.w.Write(r.chunk[:n]); werr != nil {
				return 0, werr
			}
		}
		if err == io.EOF {
			if err := r.finish(); err != nil {
				return 0, err
			}
		} else if err != nil {
			return 0, err
		}
	}
	if r.pending.Len() == 0 {
		return 0, io.EOF
	}
	return r.pending.Read(p)
}

func (r *encodingReader) finish() error {
	r.done = true
	if r.zw != nil {
		if err := r.zw.Close(); err != nil {
			return err
		}
	}
	return r.b64.Close()
}

// lineWrapper inserts a newline after every width bytes.
type lineWrapper struct {
	w     io.Writer
	width int
	col   int
}

func (l *lineWrapper) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		if l.col == l.width {
			if _, err := l.w.Write([]byte{'\n'}); err != nil {
				return written, err
			}
			l.col = 0
		}
		n := l.width - l.col
		if n > len(p) {
			n = len(p)
		}
		m, err := l.w.Write(p[:n])
		written += m
		l.col += m
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}

// alternateContent is sent in place of content which is empty or too big so
// that every content element carries something. It is the title (wrapped in
// a minimal HTML page for HTML documents) or a single space.
func alternateContent(title, mimeType string) []byte {
	title = strings.TrimSpace(title)
	if title == "" {
		return []byte{' '}
	}
	if mimeType == "" || strings.EqualFold(mimeType, DefaultMimeType) {
		var b xmlBuilder
		b.WriteString("<html><title>")
		b.text(title)
		b.WriteString("</title></html>")
		return []byte(b.String())
	}
	return []byte(title)
}
