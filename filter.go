package feedgen

// Filter derives a read-only view of a Document. Filters never modify the
// document they are given.
type Filter func(Document) Document

// Chain composes filters, applying them in order.
func Chain(filters ...Filter) Filter {
	return func(doc Document) Document {
		for _, f := range filters {
			if f != nil {
				doc = f(doc)
			}
		}
		return doc
	}
}

// deleteView hides a set of properties.
type deleteView struct {
	src  Document
	drop func(name string) bool
}

func (v *deleteView) PropertyNames() ([]string, error) {
	names, err := v.src.PropertyNames()
	if err != nil {
		return nil, err
	}
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if !v.drop(n) {
			kept = append(kept, n)
		}
	}
	return kept, nil
}

func (v *deleteView) FindProperty(name string) (Property, error) {
	if v.drop(name) {
		return nil, nil
	}
	return v.src.FindProperty(name)
}

// DeleteProperties removes the named properties. They are neither fed nor
// visible in the set of property names.
func DeleteProperties(names ...string) Filter {
	set := NewNameSet(names...)
	return func(doc Document) Document {
		return &deleteView{src: doc, drop: set.Contains}
	}
}

// overlayView replaces (or adds) the values of some properties.
type overlayView struct {
	src  Document
	vals map[string]Values
}

func (v *overlayView) PropertyNames() ([]string, error) {
	names, err := v.src.PropertyNames()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names)+len(v.vals))
	for _, n := range names {
		if _, ok := v.vals[n]; !ok {
			out = append(out, n)
		}
	}
	for n := range v.vals {
		out = append(out, n)
	}
	return out, nil
}

func (v *overlayView) FindProperty(name string) (Property, error) {
	if vals, ok := v.vals[name]; ok {
		return vals.Iter(), nil
	}
	return v.src.FindProperty(name)
}

// AddValues sets the named property to vals, replacing any values the
// document already has for it.
func AddValues(name string, vals ...Value) Filter {
	return func(doc Document) Document {
		return &overlayView{src: doc, vals: map[string]Values{name: Values(vals)}}
	}
}

// StripACL removes every ACL property so that ACL data is not repeated as
// generic metadata.
func StripACL(doc Document) Document {
	return &deleteView{src: doc, drop: ACLProperties.Contains}
}

// ExtractACL produces a standalone ACL document out of a regular document's
// ACL properties. Only the docid and ACL properties survive.
func ExtractACL(doc Document) Document {
	keep := func(name string) bool {
		return name == PropDocID || ACLProperties.Contains(name)
	}
	base := &deleteView{src: doc, drop: func(name string) bool { return !keep(name) }}
	return &overlayView{src: base, vals: map[string]Values{
		PropDocumentType: {S(DocACL.String())},
		PropFeedType:     {S(DocACL.String())},
	}}
}

// InheritFromExtractedACL replaces a document's ACL with a reference to the
// ACL produced for it by ExtractACL.
func InheritFromExtractedACL(doc Document) Document {
	id, err := DocID(doc)
	if err != nil || id == "" {
		return StripACL(doc)
	}
	return &overlayView{src: StripACL(doc), vals: map[string]Values{
		PropACLInheritFromDocID:    {S(id)},
		PropACLInheritFromFeedType: {S(DocACL.String())},
	}}
}

// legacyUnsupported are the ACL properties appliances without inherited ACL
// support cannot evaluate.
var legacyUnsupported = NewNameSet(
	PropACLDenyUsers,
	PropACLDenyGroups,
	PropACLInheritFrom,
	PropACLInheritFromDocID,
	PropACLInheritFromFeedType,
	PropACLInheritanceType,
)

// ACLTransform adapts ACL properties to what the receiving appliance
// supports. Appliances with the legacy ACL model only understand permit
// lists.
func ACLTransform(conn Connection) Filter {
	if conn == nil || conn.SupportsInheritedACLs() {
		return nil
	}
	return func(doc Document) Document {
		return &deleteView{src: doc, drop: legacyUnsupported.Contains}
	}
}
