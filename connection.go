package feedgen

import "strings"

// Connection describes what the receiving appliance accepts.
type Connection interface {
	// ContentEncodings returns a comma separated list of the content
	// encodings the appliance accepts.
	ContentEncodings() string
	// SupportsInheritedACLs reports whether the appliance understands ACL
	// inheritance, deny entries and standalone ACL records.
	SupportsInheritedACLs() bool
}

// StaticConnection is a Connection with fixed capabilities, typically set
// from configuration.
type StaticConnection struct {
	Encodings     []string
	InheritedACLs bool
}

// ContentEncodings implements Connection.
func (c StaticConnection) ContentEncodings() string {
	return strings.Join(c.Encodings, ",")
}

// SupportsInheritedACLs implements Connection.
func (c StaticConnection) SupportsInheritedACLs() bool {
	return c.InheritedACLs
}

// DefaultConnection accepts only plain base64 content and legacy ACLs.
var DefaultConnection Connection = StaticConnection{
	Encodings: []string{EncodingBase64.String()},
}
