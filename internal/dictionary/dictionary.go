package dictionary

// ModelURI is the namespace of the built-in data type names.
const ModelURI = "http://www.alfresco.org/model/dictionary/1.0"

// ModelPrefix is the prefix registered for ModelURI in every Registry.
const ModelPrefix = "d"

// Built-in data types.
var (
	DataTypeAny      = NewQName(ModelURI, "any")
	DataTypeText     = NewQName(ModelURI, "text")
	DataTypeMLText   = NewQName(ModelURI, "mltext")
	DataTypeInt      = NewQName(ModelURI, "int")
	DataTypeLong     = NewQName(ModelURI, "long")
	DataTypeFloat    = NewQName(ModelURI, "float")
	DataTypeDouble   = NewQName(ModelURI, "double")
	DataTypeBoolean  = NewQName(ModelURI, "boolean")
	DataTypeDate     = NewQName(ModelURI, "date")
	DataTypeDateTime = NewQName(ModelURI, "datetime")
)

var builtinDataTypes = map[string]QName{
	DataTypeAny.LocalName:      DataTypeAny,
	DataTypeText.LocalName:     DataTypeText,
	DataTypeMLText.LocalName:   DataTypeMLText,
	DataTypeInt.LocalName:      DataTypeInt,
	DataTypeLong.LocalName:     DataTypeLong,
	DataTypeFloat.LocalName:    DataTypeFloat,
	DataTypeDouble.LocalName:   DataTypeDouble,
	DataTypeBoolean.LocalName:  DataTypeBoolean,
	DataTypeDate.LocalName:     DataTypeDate,
	DataTypeDateTime.LocalName: DataTypeDateTime,
}

// PropertyDefinition describes a property known to the dictionary.
type PropertyDefinition struct {
	Name     QName  `json:"name"`
	DataType QName  `json:"data_type"`
	Title    string `json:"title,omitempty"`
	Indexed  bool   `json:"indexed"`
	// Source is the model file that defined the property, empty when it was merged without one.
	Source string `json:"source,omitempty"`
}

// IsDate reports whether the property holds a date or date-time value.
func (p *PropertyDefinition) IsDate() bool {
	return p.DataType == DataTypeDate || p.DataType == DataTypeDateTime
}

// Service looks up property definitions. GetProperty returns nil for unknown names.
type Service interface {
	GetProperty(name QName) *PropertyDefinition
}

// NamespaceService maps namespace URIs to prefixes and back.
type NamespaceService interface {
	GetPrefix(namespaceURI string) (string, bool)
	GetNamespaceURI(prefix string) (string, bool)
}
