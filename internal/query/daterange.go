package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/termquery/internal/dictionary"
)

// DateRangeQuery returns a mandatory range clause constraining property to [from, to]:
//
//	 +@cm\:created:[2020\-01\-01T00:00:00 TO 2020\-12\-31T00:00:00]
//
// A zero from or to is replaced by ZeroDate or FutureDate. The property must be
// defined in dict with type d:date or d:datetime. The result has a leading and a
// trailing space so it can be appended to a larger query as is.
func DateRangeQuery(from, to time.Time, property dictionary.QName, dict dictionary.Service, ns dictionary.NamespaceService) (string, error) {
	if property.IsZero() {
		return "", ErrMissingProperty
	}
	def := dict.GetProperty(property)
	if def == nil {
		return "", fmt.Errorf("%w: '%s'", ErrUnknownProperty, property)
	}
	if !def.IsDate() {
		return "", &IllegalPropertyTypeError{Property: property, Type: def.DataType}
	}

	shortName, err := def.Name.PrefixString(ns)
	if err != nil {
		return "", fmt.Errorf("date property '%s': %w", property, err)
	}
	prefix := shortName[:strings.Index(shortName, dictionary.NamespacePrefix)]

	fromLiteral := ZeroDate
	if !from.IsZero() {
		fromLiteral = FormatDate(from)
	}
	toLiteral := FutureDate
	if !to.IsZero() {
		toLiteral = FormatDate(to)
	}

	var b strings.Builder
	b.WriteString(" +@")
	b.WriteString(prefix)
	b.WriteString(`\:`)
	b.WriteString(def.Name.LocalName)
	b.WriteString(":[")
	b.WriteString(fromLiteral)
	b.WriteString(" TO ")
	b.WriteString(toLiteral)
	b.WriteString("] ")
	return b.String(), nil
}
