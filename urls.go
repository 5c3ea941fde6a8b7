package feedgen

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// URLConstructor builds the URLs records are published under.
type URLConstructor interface {
	// RecordURL returns the URL of the record for doc. typ is DocACL when
	// the record is a standalone ACL.
	RecordURL(doc Document, typ DocumentType) (string, error)
	// InheritFromURL returns the URL of the ACL doc inherits from, or "" if
	// it declares none.
	InheritFromURL(doc Document) (string, error)
}

// ConnectorURLs is the URLConstructor for documents fed by a connector.
type ConnectorURLs struct {
	DataSource string
	Kind       FeedKind
	// ContentURLPrefix is the address of the servlet the appliance uses to
	// retrieve content for contenturl feeds.
	ContentURLPrefix string
}

// RecordURL implements URLConstructor.
func (c ConnectorURLs) RecordURL(doc Document, typ DocumentType) (string, error) {
	if typ == DocRecord {
		search, ok, err := OptionalString(doc, PropSearchURL)
		if err != nil {
			return "", err
		}
		if ok && search != "" {
			return search, nil
		}
	}
	id, err := DocID(doc)
	if err != nil {
		return "", errors.Wrap(err, "getting docid")
	}
	if typ == DocACL {
		ft, _, err := OptionalString(doc, PropFeedType)
		if err != nil {
			return "", errors.Wrap(err, "getting feed type")
		}
		return c.docURL(id, ft)
	}
	switch c.Kind {
	case KindContent:
		return c.connectorURL(id), nil
	case KindContentURL:
		return c.contentURL(id), nil
	}
	return "", errors.Errorf("document '%s' has no %s for a %s feed", id, PropSearchURL, c.Kind)
}

// InheritFromURL implements URLConstructor.
func (c ConnectorURLs) InheritFromURL(doc Document) (string, error) {
	explicit, ok, err := OptionalString(doc, PropACLInheritFrom)
	if err != nil {
		return "", err
	}
	if ok && explicit != "" {
		return explicit, nil
	}
	parent, ok, err := OptionalString(doc, PropACLInheritFromDocID)
	if err != nil || !ok || parent == "" {
		return "", err
	}
	ft, _, err := OptionalString(doc, PropACLInheritFromFeedType)
	if err != nil {
		return "", err
	}
	if ft == "" {
		ft = c.Kind.String()
	}
	return c.docURL(parent, ft)
}

// docURL builds the URL for docid as it would appear in a feed of the named
// kind. ACLs live under the connector scheme.
func (c ConnectorURLs) docURL(docid, feedType string) (string, error) {
	if docid == "" {
		return "", errors.New("no docid")
	}
	switch strings.ToLower(feedType) {
	case "", DocACL.String(), KindContent.String():
		return c.connectorURL(docid), nil
	case KindContentURL.String():
		return c.contentURL(docid), nil
	}
	return "", errors.Errorf("unsupported feed type '%s' for docid '%s'", feedType, docid)
}

func (c ConnectorURLs) connectorURL(docid string) string {
	return "googleconnector://" + c.DataSource + ".localhost/doc?docid=" + url.QueryEscape(docid)
}

func (c ConnectorURLs) contentURL(docid string) string {
	v := url.Values{}
	v.Set("connector", c.DataSource)
	v.Set("docid", docid)
	return c.ContentURLPrefix + "?" + v.Encode()
}
