package offersapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://aero-offers.schemas/"

const (
	schemaOfferList        = "offer_list.json"
	schemaModelInformation = "model_information.json"
	schemaModels           = "models.json"
)

var compiledSchemas = mustCompileSchemas()

func mustCompileSchemas() map[string]*jsonschema.Schema {
	compiled, err := compileSchemas(schemaFS)
	if err != nil {
		panic(fmt.Sprintf("offersapi: %v", err))
	}
	return compiled
}

// compileSchemas registers every schema as a resource first so that $ref
// between files resolves, then compiles each of them.
func compileSchemas(fsys fs.FS) (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	names, err := fs.Glob(fsys, "schemas/*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}

	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
		}
		if err := compiler.AddResource(schemaBaseURL+path.Base(name), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to add schema resource %s: %w", name, err)
		}
	}

	compiled := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		base := path.Base(name)
		schema, err := compiler.Compile(schemaBaseURL + base)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", base, err)
		}
		compiled[base] = schema
	}
	return compiled, nil
}

// validate checks a response body against the named schema.
func validate(name string, body []byte) error {
	schema, ok := compiledSchemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
