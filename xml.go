package feedgen

import (
	"strings"
	"unicode/utf8"
)

const (
	xmlStart = "<?xml version='1.0' encoding='UTF-8'?><!DOCTYPE gsafeed PUBLIC" +
		" \"-//Google//DTD GSA Feeds//EN\" \"gsafeed.dtd\">"

	tagGsafeed    = "gsafeed"
	tagHeader     = "header"
	tagDatasource = "datasource"
	tagFeedtype   = "feedtype"
	tagGroup      = "group"
	tagRecord     = "record"
	tagMetadata   = "metadata"
	tagMeta       = "meta"
	tagContent    = "content"
	tagACL        = "acl"
	tagPrincipal  = "principal"

	attrURL             = "url"
	attrDisplayURL      = "displayurl"
	attrAction          = "action"
	attrLock            = "lock"
	attrPageRank        = "pagerank"
	attrMimeType        = "mimetype"
	attrLastModified    = "last-modified"
	attrAuthMethod      = "authmethod"
	attrName            = "name"
	attrContent         = "content"
	attrEncoding        = "encoding"
	attrOverwriteACLs   = "overwrite-acls"
	attrInheritanceType = "inheritance-type"
	attrInheritFrom     = "inherit-from"
	attrScope           = "scope"
	attrAccess          = "access"
	attrPrincipalType   = "principal-type"
	attrNamespace       = "namespace"
	attrCaseSensitivity = "case-sensitivity-type"

	contentPlaceholder = "...content..."
)

// xmlBuilder accumulates markup for one record. All text goes through
// escape; tag and attribute names are trusted constants.
type xmlBuilder struct {
	strings.Builder
}

func (b *xmlBuilder) start(tag string) {
	b.WriteByte('<')
	b.WriteString(tag)
	b.WriteByte('>')
}

func (b *xmlBuilder) end(tag string) {
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">\n")
}

func (b *xmlBuilder) open(tag string) {
	b.WriteByte('<')
	b.WriteString(tag)
}

func (b *xmlBuilder) attr(name, value string) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString("=\"")
	escape(&b.Builder, value)
	b.WriteByte('"')
}

func (b *xmlBuilder) text(s string) {
	escape(&b.Builder, s)
}

// escape writes s with the five XML special characters replaced by entities.
// Characters which may not appear in an XML 1.0 document are dropped.
func escape(b *strings.Builder, s string) {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		default:
			if r == utf8.RuneError && size == 1 {
				continue
			}
			if isXMLChar(r) {
				b.WriteRune(r)
			}
		}
	}
}

func isXMLChar(r rune) bool {
	return r == '\t' || r == '\n' || r == '\r' ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

func feedPrefix(dataSource string, kind FeedKind) string {
	var b xmlBuilder
	b.WriteString(xmlStart)
	b.WriteByte('\n')
	b.start(tagGsafeed)
	b.WriteByte('\n')
	b.start(tagHeader)
	b.WriteByte('\n')
	b.start(tagDatasource)
	b.text(dataSource)
	b.end(tagDatasource)
	b.start(tagFeedtype)
	b.WriteString(kind.Legacy())
	b.end(tagFeedtype)
	b.end(tagHeader)
	b.start(tagGroup)
	b.WriteByte('\n')
	return b.String()
}

func feedSuffix() string {
	var b xmlBuilder
	b.end(tagGroup)
	b.end(tagGsafeed)
	return b.String()
}
