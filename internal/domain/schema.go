package domain

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed lesson.schema.json
var lessonSchemaJSON []byte

const lessonSchemaURL = "schema://lesson.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func lessonSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(lessonSchemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parse lesson schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(lessonSchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add lesson schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(lessonSchemaURL)
	})
	return compiledSchema, schemaErr
}

// validateSchema checks raw lesson JSON against the embedded lesson schema.
func validateSchema(raw []byte) error {
	schema, err := lessonSchema()
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}
