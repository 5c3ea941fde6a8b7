package feedgen

import (
	"io"

	"github.com/pkg/errors"
)

// aclRelations lists the principal properties in the order they are
// written.
var aclRelations = []struct {
	prop   string
	scope  ACLScope
	access ACLAccess
}{
	{PropACLUsers, ScopeUser, AccessPermit},
	{PropACLGroups, ScopeGroup, AccessPermit},
	{PropACLDenyUsers, ScopeUser, AccessDeny},
	{PropACLDenyGroups, ScopeGroup, AccessDeny},
}

// wrapACLRecord writes a standalone acl element directly into the feed.
func (f *Feed) wrapACLRecord(doc Document, feedLog *xmlBuilder) error {
	var b xmlBuilder
	if err := f.wrapACL(&b, doc); err != nil {
		return err
	}
	f.buf.WriteString(b.String())
	feedLog.WriteString(b.String())
	return nil
}

// wrapACL renders the acl element for doc into b. Only standalone ACLs
// carry a url; inline ACLs belong to the enclosing record.
func (f *Feed) wrapACL(b *xmlBuilder, doc Document) error {
	b.open(tagACL)
	isACL, err := isACLDocument(doc)
	if err != nil {
		return errors.Wrap(err, "getting document type")
	}
	if isACL {
		url, err := f.urls.RecordURL(doc, DocACL)
		if err != nil {
			return errors.Wrap(err, "getting acl url")
		}
		b.attr(attrURL, url)
	}

	inheritanceType, _, err := OptionalString(doc, PropACLInheritanceType)
	if err != nil {
		return err
	}
	if inheritanceType != "" {
		b.attr(attrInheritanceType, inheritanceType)
	}

	inheritFrom, err := f.urls.InheritFromURL(doc)
	if err != nil {
		return errors.Wrap(err, "getting inherit-from url")
	}
	if inheritFrom != "" {
		b.attr(attrInheritFrom, inheritFrom)
	}
	b.WriteString(">\n")

	for _, rel := range aclRelations {
		prop, err := doc.FindProperty(rel.prop)
		if err != nil {
			return errors.Wrapf(err, "finding %s", rel.prop)
		}
		if prop == nil {
			continue
		}
		if err := wrapPrincipals(b, prop, rel.scope, rel.access); err != nil {
			return errors.Wrapf(err, "reading %s", rel.prop)
		}
	}
	b.end(tagACL)
	return nil
}

// wrapPrincipals writes one principal element per non-empty principal name.
func wrapPrincipals(b *xmlBuilder, prop Property, scope ACLScope, access ACLAccess) error {
	for {
		v, err := prop.NextValue()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		p := principalOf(v)
		if p.Name == "" {
			continue
		}
		b.open(tagPrincipal)
		if p.Type == PrincipalUnqualified {
			b.attr(attrPrincipalType, p.Type.String())
		}
		if p.Namespace != "" {
			b.attr(attrNamespace, p.Namespace)
		}
		if p.CaseSensitivity != EverythingCaseSensitive {
			b.attr(attrCaseSensitivity, p.CaseSensitivity.String())
		}
		b.attr(attrScope, string(scope))
		b.attr(attrAccess, string(access))
		b.WriteByte('>')
		b.text(p.Name)
		b.end(tagPrincipal)
	}
}
