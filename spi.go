package feedgen

import (
	"strings"

	"github.com/pkg/errors"
)

// Reserved property names understood by the feed generator.
const (
	PropDocID                  = "google:docid"
	PropAction                 = "google:action"
	PropContent                = "google:content"
	PropContentURL             = "google:contenturl"
	PropContentEncoding        = "google:contentencoding"
	PropContentLength          = "google:contentlength"
	PropDisplayURL             = "google:displayurl"
	PropSearchURL              = "google:searchurl"
	PropDocumentType           = "google:documenttype"
	PropFeedType               = "google:feedtype"
	PropIsPublic               = "google:ispublic"
	PropLastModified           = "google:lastmodified"
	PropLock                   = "google:lock"
	PropMimeType               = "google:mimetype"
	PropPageRank               = "google:pagerank"
	PropTitle                  = "google:title"
	PropAuthMethod             = "google:authmethod"
	PropSecurityToken          = "google:securitytoken"
	PropOverwriteACLs          = "google:overwriteacls"
	PropACLUsers               = "google:aclusers"
	PropACLGroups              = "google:aclgroups"
	PropACLDenyUsers           = "google:acldenyusers"
	PropACLDenyGroups          = "google:acldenygroups"
	PropACLInheritFrom         = "google:aclinheritfrom"
	PropACLInheritFromDocID    = "google:aclinheritfrom:docid"
	PropACLInheritFromFeedType = "google:aclinheritfrom:feedtype"
	PropACLInheritanceType     = "google:aclinheritancetype"
)

const (
	// DefaultMimeType is sent when a document does not declare one.
	DefaultMimeType = "text/html"
	// DefaultAuthMethod is sent for non-public documents with no
	// google:authmethod.
	DefaultAuthMethod = "httpbasic"
)

// NameSet is an immutable set of property names.
type NameSet struct {
	names map[string]struct{}
}

// NewNameSet returns a NameSet holding names.
func NewNameSet(names ...string) NameSet {
	s := NameSet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.names[n] = struct{}{}
	}
	return s
}

// Contains reports whether name is in the set.
func (s NameSet) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Union returns a new set holding the names of both sets.
func (s NameSet) Union(o NameSet) NameSet {
	u := NameSet{names: make(map[string]struct{}, len(s.names)+len(o.names))}
	for n := range s.names {
		u.names[n] = struct{}{}
	}
	for n := range o.names {
		u.names[n] = struct{}{}
	}
	return u
}

// DefaultSkipSet holds the properties that are never written as generic
// metadata. They are either consumed specially or dropped.
var DefaultSkipSet = NewNameSet(
	PropACLInheritFromDocID,
	PropACLInheritFromFeedType,
	PropAction,
	PropAuthMethod,
	PropContent,
	PropContentURL,
	PropContentEncoding,
	PropContentLength,
	PropDocID,
	PropDocumentType,
	PropFeedType,
	PropLock,
	PropOverwriteACLs,
	PropPageRank,
	PropSecurityToken,
)

// ACLProperties are the properties which make up a document's ACL.
var ACLProperties = NewNameSet(
	PropACLUsers,
	PropACLGroups,
	PropACLDenyUsers,
	PropACLDenyGroups,
	PropACLInheritFrom,
	PropACLInheritFromDocID,
	PropACLInheritFromFeedType,
	PropACLInheritanceType,
)

// HasACLProperties reports whether doc carries any ACL property.
func HasACLProperties(doc Document) (bool, error) {
	names, err := doc.PropertyNames()
	if err != nil {
		return false, errors.Wrap(err, "getting property names")
	}
	for _, n := range names {
		if ACLProperties.Contains(n) {
			return true, nil
		}
	}
	return false, nil
}

// FeedKind governs which sections the records of a feed may carry.
type FeedKind int

const (
	// KindContent feeds carry metadata and inlined content.
	KindContent FeedKind = iota
	// KindContentURL feeds carry URLs the appliance crawls back through the
	// connector; neither metadata nor content is sent.
	KindContentURL
	// KindMetadataURL feeds carry metadata for web URLs.
	KindMetadataURL
)

// Legacy returns the feedtype string written in the feed header.
func (k FeedKind) Legacy() string {
	if k == KindContent {
		return "incremental"
	}
	return "metadata-and-url"
}

func (k FeedKind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindContentURL:
		return "contenturl"
	case KindMetadataURL:
		return "metadataurl"
	}
	return "unknown"
}

func (k FeedKind) metadataAllowed() bool { return k != KindContentURL }
func (k FeedKind) contentAllowed() bool  { return k == KindContent }

// ParseFeedKind parses the names used in configuration.
func ParseFeedKind(s string) (FeedKind, error) {
	switch strings.ToLower(s) {
	case "content":
		return KindContent, nil
	case "contenturl":
		return KindContentURL, nil
	case "metadataurl", "web":
		return KindMetadataURL, nil
	}
	return 0, errors.Errorf("unknown feed kind '%s'", s)
}

// ActionType is the action a record asks the appliance to take.
type ActionType int

const (
	ActionNone ActionType = iota
	ActionAdd
	ActionDelete
	ActionInvalid
)

func (a ActionType) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionDelete:
		return "delete"
	}
	return ""
}

func findActionType(s string) ActionType {
	switch strings.ToLower(s) {
	case "add":
		return ActionAdd
	case "delete":
		return ActionDelete
	}
	return ActionInvalid
}

// DocumentType distinguishes regular records from standalone ACLs.
type DocumentType int

const (
	DocRecord DocumentType = iota
	DocACL
)

func (t DocumentType) String() string {
	if t == DocACL {
		return "acl"
	}
	return "record"
}

func isACLDocument(doc Document) (bool, error) {
	dt, ok, err := OptionalString(doc, PropDocumentType)
	if err != nil || !ok {
		return false, err
	}
	return strings.EqualFold(dt, DocACL.String()), nil
}
