package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ToolSchema describes one invocable tool as supplied by the host's registry.
type ToolSchema struct {
	// Name is the tool's unique, stable identifier. It may contain
	// separators (e.g. "-") that are not valid identifiers in the guest
	// language.
	Name string `json:"name"`

	// Parameters is the JSON schema of the tool's accepted parameters.
	Parameters ParametersSchema `json:"parameters_json_schema"`
}

// ParametersSchema is a tool's parameter schema. Beyond the raw schema
// document it preserves the declared order of the "properties" keys, which is
// the only source of positional semantics when binding positional arguments.
//
// The zero value is an absent schema: HasProperties reports false and
// PropertyNames returns nil.
type ParametersSchema struct {
	raw           json.RawMessage
	propertyOrder []string
	hasProperties bool
}

// ParseParametersSchema parses a raw JSON schema document.
func ParseParametersSchema(data []byte) (ParametersSchema, error) {
	var s ParametersSchema
	if err := s.UnmarshalJSON(data); err != nil {
		return ParametersSchema{}, err
	}
	return s, nil
}

// UnmarshalJSON stores the raw schema and extracts the declared property
// order. The standard decoder's maps discard key order, so the "properties"
// object is walked token by token instead.
func (s *ParametersSchema) UnmarshalJSON(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("parsing parameter schema: %w", err)
	}

	*s = ParametersSchema{raw: append(json.RawMessage(nil), data...)}

	props, ok := top["properties"]
	if !ok {
		return nil
	}
	order, err := propertyOrder(props)
	if err != nil {
		return fmt.Errorf("parsing schema properties: %w", err)
	}
	s.propertyOrder = order
	s.hasProperties = true
	return nil
}

// MarshalJSON writes the schema back out verbatim.
func (s ParametersSchema) MarshalJSON() ([]byte, error) {
	if s.raw == nil {
		return []byte("null"), nil
	}
	return s.raw, nil
}

// HasProperties reports whether the schema declares a "properties" mapping.
// Its absence is a configuration error for callers that need to bind
// positional arguments.
func (s ParametersSchema) HasProperties() bool {
	return s.hasProperties
}

// PropertyNames returns the parameter names in their declared schema order.
func (s ParametersSchema) PropertyNames() []string {
	if s.propertyOrder == nil {
		return nil
	}
	names := make([]string, len(s.propertyOrder))
	copy(names, s.propertyOrder)
	return names
}

// Raw returns the schema document as it was supplied.
func (s ParametersSchema) Raw() json.RawMessage {
	return s.raw
}

// propertyOrder collects the keys of a JSON object in document order,
// skipping over each value.
func propertyOrder(obj json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("properties must be an object, got %v", tok)
	}

	var names []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in properties object", keyTok)
		}
		names = append(names, key)

		// Consume the value.
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return names, nil
}
