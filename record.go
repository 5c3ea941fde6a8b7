package feedgen

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// wrapRecord appends the record(s) for doc. Standalone ACL documents and,
// for contenturl feeds, documents carrying ACLs are routed through the
// inherited ACL path when the appliance supports it. content is the
// document's content stream, or nil.
func (f *Feed) wrapRecord(doc Document, content io.Reader, feedLog *xmlBuilder) error {
	if f.inherited {
		isACL, err := isACLDocument(doc)
		if err != nil {
			return errors.Wrap(err, "getting document type")
		}
		if isACL {
			if err := f.wrapACLRecord(doc, feedLog); err != nil {
				return errors.Wrap(err, "writing acl record")
			}
			f.records++
			return nil
		}
		if f.kind == KindContentURL {
			hasACL, err := HasACLProperties(doc)
			if err != nil {
				return err
			}
			if hasACL {
				// The crawl of a contenturl record replaces the ACL sent in
				// the feed, so the ACL is sent as a record of its own and the
				// document inherits from it.
				if err := f.wrapACLRecord(ExtractACL(doc), feedLog); err != nil {
					return errors.Wrap(err, "writing extracted acl record")
				}
				f.records++
				doc = InheritFromExtractedACL(doc)
			}
		}
	}
	if err := f.wrapDocumentRecord(doc, content, feedLog); err != nil {
		return err
	}
	f.records++
	return nil
}

// wrapDocumentRecord writes one record element, streaming content into the
// feed when the feed kind carries content.
func (f *Feed) wrapDocumentRecord(doc Document, content io.Reader, feedLog *xmlBuilder) error {
	aclAllowed := f.inherited
	metadataAllowed := f.kind.metadataAllowed()
	contentAllowed := f.kind.contentAllowed()

	var prefix xmlBuilder
	prefix.open(tagRecord)

	url, err := f.urls.RecordURL(doc, DocRecord)
	if err != nil {
		return errors.Wrap(err, "getting record url")
	}
	prefix.attr(attrURL, url)

	displayURL, ok, err := OptionalString(doc, PropDisplayURL)
	if err != nil {
		return err
	}
	if ok {
		prefix.attr(attrDisplayURL, displayURL)
	}

	action, ok, err := OptionalString(doc, PropAction)
	if err != nil {
		return err
	}
	if ok {
		switch at := findActionType(action); at {
		case ActionAdd:
			prefix.attr(attrAction, at.String())
		case ActionDelete:
			prefix.attr(attrAction, at.String())
			aclAllowed = false
			metadataAllowed = false
			contentAllowed = false
		default:
			f.log.Printf("illegal action type '%s' for %s, ignoring", action, url)
		}
	}

	lock, err := optionalBool(doc, PropLock, false)
	if err != nil {
		f.log.Printf("ignoring %s for %s: %v", PropLock, url, err)
	}
	if lock {
		prefix.attr(attrLock, "true")
	}

	// pagerank is passed through unvalidated.
	pagerank, ok, err := OptionalString(doc, PropPageRank)
	if err != nil {
		return err
	}
	if ok {
		prefix.attr(attrPageRank, pagerank)
	}

	mimeType, ok, err := OptionalString(doc, PropMimeType)
	if err != nil {
		return err
	}
	if !ok {
		mimeType = DefaultMimeType
	}
	prefix.attr(attrMimeType, mimeType)

	lastModified, err := optionalCalendar(doc, PropLastModified)
	if err != nil {
		f.log.Printf("swallowing error getting %s for %s: %v", PropLastModified, url, err)
	} else if lastModified == nil {
		f.log.Debugf("document %s does not contain %s", url, PropLastModified)
	} else {
		prefix.attr(attrLastModified, lastModified.UTC().Format(http.TimeFormat))
	}

	if err := f.appendAuthMethod(&prefix, doc, url); err != nil {
		return err
	}
	prefix.WriteString(">\n")

	if aclAllowed {
		hasACL, err := HasACLProperties(doc)
		if err != nil {
			return err
		}
		if hasACL {
			if err := f.wrapACL(&prefix, doc); err != nil {
				return errors.Wrap(err, "writing acl")
			}
			doc = StripACL(doc)
		}
	}
	if metadataAllowed {
		if err := f.wrapMetadata(&prefix, doc); err != nil {
			return errors.Wrap(err, "writing metadata")
		}
	}

	var suffix xmlBuilder
	var encoding ContentEncoding
	var preEncoded bool
	if contentAllowed {
		encoding, preEncoded, err = f.documentEncoding(doc)
		if err != nil {
			return err
		}
		prefix.open(tagContent)
		prefix.attr(attrEncoding, encoding.String())
		prefix.WriteString(">\n")
		suffix.WriteByte('\n')
		suffix.end(tagContent)
	}
	suffix.end(tagRecord)

	f.buf.WriteString(prefix.String())
	if contentAllowed {
		if err := f.writeContent(doc, content, encoding, preEncoded); err != nil {
			return err
		}
	}
	f.buf.WriteString(suffix.String())

	feedLog.WriteString(prefix.String())
	if contentAllowed {
		feedLog.WriteString(contentPlaceholder)
	}
	feedLog.WriteString(suffix.String())
	return nil
}

// appendAuthMethod adds the authmethod attribute for non-public documents.
// A malformed google:ispublic is logged and the document treated as public.
func (f *Feed) appendAuthMethod(b *xmlBuilder, doc Document, url string) error {
	v, err := firstValue(doc, PropIsPublic)
	if err != nil || v == nil {
		return err
	}
	isPublic := true
	if bv, ok := v.(B); ok {
		isPublic = bool(bv)
	} else if isPublic, err = ParseBool(v.String()); err != nil {
		f.log.Printf("illegal value for %s on %s, treating as public: %v", PropIsPublic, url, err)
		return nil
	}
	if isPublic {
		return nil
	}
	method, _, err := OptionalString(doc, PropAuthMethod)
	if err != nil {
		return err
	}
	if method == "" {
		method = DefaultAuthMethod
	}
	b.attr(attrAuthMethod, method)
	return nil
}

// documentEncoding resolves the encoding for a document's content. A
// document naming its own encoding supplies content already in that
// encoding.
func (f *Feed) documentEncoding(doc Document) (enc ContentEncoding, preEncoded bool, err error) {
	name, ok, err := OptionalString(doc, PropContentEncoding)
	if err != nil {
		return EncodingInvalid, false, err
	}
	if !ok || name == "" {
		return f.encoding, false, nil
	}
	enc = FindContentEncoding(name)
	if enc == EncodingInvalid || !f.encodings.has(enc) {
		f.log.Printf("unsupported content encoding: %s", name)
		return EncodingInvalid, false, errors.Wrapf(ErrUnsupportedEncoding, "'%s'", name)
	}
	return enc, true, nil
}

var errContentTooBig = errors.New("content exceeds maximum document size")

// sizeLimitedReader counts bytes read and fails once more than max bytes
// have been read. A max of 0 or less means no limit.
type sizeLimitedReader struct {
	r   io.Reader
	max int64
	n   int64
}

func (s *sizeLimitedReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.n += int64(n)
	if s.max > 0 && s.n > s.max {
		return 0, errContentTooBig
	}
	return n, err
}

// contentStream returns the document's content, or nil if it has none.
func contentStream(doc Document) (io.Reader, error) {
	v, err := firstValue(doc, PropContent)
	if err != nil || v == nil {
		return nil, err
	}
	switch cv := v.(type) {
	case Binary:
		return cv.R, nil
	case *Binary:
		if cv == nil {
			return nil, nil
		}
		return cv.R, nil
	}
	return strings.NewReader(v.String()), nil
}

// closeContent closes src if it is an io.Closer.
func (f *Feed) closeContent(src io.Reader) {
	c, ok := src.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		f.log.Printf("closing content stream: %v", err)
	}
}

// writeContent streams src, the document's content, encoded into the feed.
// Empty content and content larger than the document size limit are
// replaced by alternate content.
func (f *Feed) writeContent(doc Document, src io.Reader, enc ContentEncoding, preEncoded bool) error {
	start := f.buf.Len()
	if src != nil {
		limited := &sizeLimitedReader{r: src, max: f.limits.MaxDocumentSize}
		var r io.Reader = limited
		if !preEncoded {
			r = newEncodingReader(limited, enc, f.wrapLines, contentChunk)
		}
		_, err := f.buf.ReadFrom(r)
		if err == errContentTooBig {
			f.log.Debugf("content larger than %d bytes, sending alternate content", f.limits.MaxDocumentSize)
		} else if err != nil {
			return errors.Wrap(err, "reading content")
		} else if limited.n > 0 {
			return nil
		}
		f.buf.truncate(start)
	}

	title, _, err := OptionalString(doc, PropTitle)
	if err != nil {
		return err
	}
	mimeType, _, err := OptionalString(doc, PropMimeType)
	if err != nil {
		return err
	}
	alt := newEncodingReader(bytes.NewReader(alternateContent(title, mimeType)), enc, false, alternateChunk)
	_, err = f.buf.ReadFrom(alt)
	return errors.Wrap(err, "writing alternate content")
}
