package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrSchema is returned when a config file does not match the schema.
var ErrSchema = errors.New("config does not match schema")

//go:embed schema.json
var schemaJSON []byte

// Schema returns the JSON schema of the config file.
func Schema() []byte {
	return schemaJSON
}

// ValidateFile checks a YAML config file against the embedded schema.
func ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	return ValidateYAML(data)
}

// ValidateYAML checks YAML config content against the embedded schema.
// Empty content is valid.
func ValidateYAML(data []byte) error {
	var doc any

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if doc == nil {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		msgs = append(msgs, verr.Field()+": "+verr.Description())
	}

	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
}
