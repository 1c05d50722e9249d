package query

import (
	"errors"
	"fmt"

	"github.com/hyperjump/termquery/internal/dictionary"
)

var (
	// ErrMissingProperty is returned when no property name is given.
	ErrMissingProperty = errors.New("date property cannot be empty")
	// ErrUnknownProperty is returned when the dictionary has no definition for the property.
	ErrUnknownProperty = errors.New("date property not recognised")
	// ErrIllegalPropertyType is matched by *IllegalPropertyTypeError.
	ErrIllegalPropertyType = errors.New("illegal property type")
)

// IllegalPropertyTypeError reports a property whose data type is neither date nor datetime.
type IllegalPropertyTypeError struct {
	Property dictionary.QName
	Type     dictionary.QName
}

func (e *IllegalPropertyTypeError) Error() string {
	return fmt.Sprintf("illegal property type '%s' [%s]", e.Property, e.Type)
}

// Is makes errors.Is(err, ErrIllegalPropertyType) true.
func (e *IllegalPropertyTypeError) Is(target error) bool {
	return target == ErrIllegalPropertyType
}
