package identity

import "strings"

const (
	propertyRenderSeparatorConstant = ": "
	propertyJoinSeparatorConstant   = ", "
)

// Property is a single named value attached to an identity.
type Property struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Properties is an ordered key/value list. Keys vary per source.
type Properties []Property

// Identity is one account record as reported by a source.
type Identity struct {
	Identifier           string
	SecondaryIdentifiers []string
	Properties           Properties
}

// New builds an identity with the provided identifier and secondary identifiers.
// Blank secondary identifiers are dropped.
func New(identifier string, secondaryIdentifiers ...string) Identity {
	retainedSecondaryIdentifiers := make([]string, 0, len(secondaryIdentifiers))
	for _, secondaryIdentifier := range secondaryIdentifiers {
		trimmedSecondaryIdentifier := strings.TrimSpace(secondaryIdentifier)
		if len(trimmedSecondaryIdentifier) == 0 {
			continue
		}
		retainedSecondaryIdentifiers = append(retainedSecondaryIdentifiers, trimmedSecondaryIdentifier)
	}

	return Identity{
		Identifier:           strings.TrimSpace(identifier),
		SecondaryIdentifiers: retainedSecondaryIdentifiers,
	}
}

// WithProperty returns a copy of the identity with the property appended.
// Empty values are skipped so sparse exports do not render blank fields.
func (identityRecord Identity) WithProperty(name string, value string) Identity {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return identityRecord
	}
	updatedProperties := make(Properties, 0, len(identityRecord.Properties)+1)
	updatedProperties = append(updatedProperties, identityRecord.Properties...)
	updatedProperties = append(updatedProperties, Property{Name: name, Value: trimmedValue})
	identityRecord.Properties = updatedProperties
	return identityRecord
}

// Lookup returns the first property value stored under name.
func (properties Properties) Lookup(name string) (string, bool) {
	for _, property := range properties {
		if property.Name == name {
			return property.Value, true
		}
	}
	return "", false
}

// Clone returns an independent copy of the property list.
func (properties Properties) Clone() Properties {
	if properties == nil {
		return nil
	}
	cloned := make(Properties, len(properties))
	copy(cloned, properties)
	return cloned
}

// String renders the properties as "name: value" pairs joined by commas.
func (properties Properties) String() string {
	renderedProperties := make([]string, 0, len(properties))
	for _, property := range properties {
		renderedProperties = append(renderedProperties, property.Name+propertyRenderSeparatorConstant+property.Value)
	}
	return strings.Join(renderedProperties, propertyJoinSeparatorConstant)
}
