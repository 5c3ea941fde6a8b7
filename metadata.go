package feedgen

import (
	"io"

	"github.com/pkg/errors"
)

// wrapMetadata renders the metadata element. Properties are written in
// lexicographic order so that the same document always produces the same
// bytes; the appliance's change detection relies on it.
func (f *Feed) wrapMetadata(b *xmlBuilder, doc Document) error {
	overwrite, err := optionalBool(doc, PropOverwriteACLs, true)
	if err != nil {
		f.log.Printf("ignoring %s: %v", PropOverwriteACLs, err)
	}
	b.open(tagMetadata)
	if !overwrite {
		b.attr(attrOverwriteACLs, "false")
	}
	b.WriteString(">\n")

	names, err := sortedNames(doc)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		f.log.Printf("property names set is empty")
	}
	for _, name := range names {
		if f.skip.Contains(name) {
			f.logProperty(doc, name)
			continue
		}
		prop, err := doc.FindProperty(name)
		if err != nil {
			return errors.Wrapf(err, "finding %s", name)
		}
		if prop == nil {
			continue
		}
		if err := f.wrapProperty(b, name, prop); err != nil {
			return errors.Wrapf(err, "reading %s", name)
		}
	}
	b.end(tagMetadata)
	return nil
}

// wrapProperty writes a meta element for each non-empty value.
func (f *Feed) wrapProperty(b *xmlBuilder, name string, prop Property) error {
	for {
		v, err := prop.NextValue()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		s := v.String()
		f.log.Debugf("PROPERTY: %s = \"%s\"", name, s)
		if s == "" {
			continue
		}
		b.open(tagMeta)
		b.attr(attrName, name)
		b.attr(attrContent, s)
		b.WriteString("/>\n")
	}
}

// logProperty traces a skipped property. Content is never logged.
func (f *Feed) logProperty(doc Document, name string) {
	if name == PropContent {
		f.log.Debugf("PROPERTY: %s = \"%s\"", name, contentPlaceholder)
		return
	}
	prop, err := doc.FindProperty(name)
	if err != nil || prop == nil {
		return
	}
	for {
		v, err := prop.NextValue()
		if err != nil {
			return
		}
		f.log.Debugf("PROPERTY: %s = \"%s\"", name, v.String())
	}
}
