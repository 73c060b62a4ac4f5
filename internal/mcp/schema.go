package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// paramValidator checks tool arguments against the catalog's input schemas.
type paramValidator struct {
	schemas map[string]*jsonschema.Schema
}

func newParamValidator(tools []ToolDefinition) (*paramValidator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	v := &paramValidator{schemas: make(map[string]*jsonschema.Schema, len(tools))}
	for _, tool := range tools {
		data, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encode %s schema: %w", tool.Name, err)
		}
		url := fmt.Sprintf("tasking://schemas/tools/%s.json", tool.Name)
		if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("load %s schema: %w", tool.Name, err)
		}
		schema, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", tool.Name, err)
		}
		v.schemas[tool.Name] = schema
	}
	return v, nil
}

// validate returns an error wrapping ErrInvalidParams when params do not
// match the schema of method. Unknown methods pass through.
func (v *paramValidator) validate(method string, params json.RawMessage) error {
	schema, ok := v.schemas[method]
	if !ok {
		return nil
	}
	if len(bytes.TrimSpace(params)) == 0 || bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
		params = json.RawMessage(`{}`)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(params))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}
