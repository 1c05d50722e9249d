// Package dictionary resolves logical property identifiers to property definitions
// and namespace prefixes.
package dictionary

import (
	"errors"
	"fmt"
	"strings"
)

// NamespacePrefix separates the prefix from the local name in a short-form name (cm:created).
const NamespacePrefix = ":"

const (
	namespaceBegin = "{"
	namespaceEnd   = "}"
)

// ErrNamespacePrefixNotFound is returned when a namespace URI or prefix is not registered.
var ErrNamespacePrefixNotFound = errors.New("namespace prefix not found")

// QName is a namespaced name. The zero value means "no name".
type QName struct {
	NamespaceURI string `json:"namespace_uri" yaml:"namespace_uri"`
	LocalName    string `json:"local_name" yaml:"local_name"`
}

// NewQName returns a QName for the given namespace URI and local name.
func NewQName(namespaceURI, localName string) QName {
	return QName{NamespaceURI: namespaceURI, LocalName: localName}
}

// IsZero reports whether q is the zero QName.
func (q QName) IsZero() bool {
	return q.NamespaceURI == "" && q.LocalName == ""
}

// String renders q as {uri}local.
func (q QName) String() string {
	return namespaceBegin + q.NamespaceURI + namespaceEnd + q.LocalName
}

// PrefixString renders q in short form (prefix:local) using ns.
func (q QName) PrefixString(ns NamespaceService) (string, error) {
	prefix, ok := ns.GetPrefix(q.NamespaceURI)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNamespacePrefixNotFound, q.NamespaceURI)
	}
	return prefix + NamespacePrefix + q.LocalName, nil
}

// ResolveQName parses s as either {uri}local or prefix:local.
func ResolveQName(s string, ns NamespaceService) (QName, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return QName{}, fmt.Errorf("empty qualified name")
	}
	if strings.HasPrefix(s, namespaceBegin) {
		end := strings.Index(s, namespaceEnd)
		if end < 0 {
			return QName{}, fmt.Errorf("malformed qualified name %q", s)
		}
		local := s[end+1:]
		if local == "" {
			return QName{}, fmt.Errorf("malformed qualified name %q: missing local name", s)
		}
		return NewQName(s[1:end], local), nil
	}
	prefix, local, found := strings.Cut(s, NamespacePrefix)
	if !found {
		// No prefix: default namespace.
		prefix, local = "", s
	}
	if local == "" {
		return QName{}, fmt.Errorf("malformed qualified name %q: missing local name", s)
	}
	uri, ok := ns.GetNamespaceURI(prefix)
	if !ok {
		return QName{}, fmt.Errorf("%w: %q", ErrNamespacePrefixNotFound, prefix)
	}
	return NewQName(uri, local), nil
}
