// Copyright 2026 qualab. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package dataset

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/v1/*.json
var schemaFS embed.FS

var datasetSchema *gojsonschema.Schema

func init() {
	data, err := schemaFS.ReadFile("schemas/v1/dataset.schema.json")
	if err != nil {
		panic(fmt.Sprintf("dataset: embedded schema missing: %v", err))
	}
	loader := gojsonschema.NewBytesLoader(data)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		panic(fmt.Sprintf("dataset: embedded schema invalid: %v", err))
	}
	datasetSchema = schema
}

// Validate checks raw dataset JSON against the embedded schema, the same
// gojsonschema.Validate pattern the teacher's ModelValidator uses for PCA
// output documents.
func Validate(data []byte) error {
	result, err := datasetSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		return formatValidationErrors(result.Errors())
	}
	return nil
}

func formatValidationErrors(errors []gojsonschema.ResultError) error {
	msgs := make([]string, 0, len(errors))
	for _, e := range errors {
		field := e.Field()
		if field == "(root)" {
			field = "dataset"
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Description()))
	}
	return fmt.Errorf("dataset schema violations:\n  %s", strings.Join(msgs, "\n  "))
}
