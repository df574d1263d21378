package curriculum

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

var catalogSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
})

// ValidationError lists every problem found in a catalog document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid catalog: " + strings.Join(e.Problems, "; ")
}

// Parse validates a YAML catalog document and decodes it.
func Parse(data []byte) (*Catalog, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}

	schema, err := catalogSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling catalog schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	if !result.Valid() {
		verr := &ValidationError{}
		for _, re := range result.Errors() {
			verr.Problems = append(verr.Problems, re.String())
		}
		return nil, verr
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if problems := checkCatalog(&cat); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return &cat, nil
}

// Validate reports whether data is a well-formed catalog.
func Validate(data []byte) error {
	_, err := Parse(data)
	return err
}

// checkCatalog enforces the rules the schema cannot express.
func checkCatalog(c *Catalog) []string {
	var problems []string
	topics := make(map[string]bool)
	for _, t := range c.Topics {
		key := strings.ToLower(t.Name)
		if topics[key] {
			problems = append(problems, fmt.Sprintf("duplicate topic %q", t.Name))
		}
		topics[key] = true

		subs := make(map[string]bool)
		for _, s := range t.Subtopics {
			if subs[s.Name] {
				problems = append(problems, fmt.Sprintf("topic %q: duplicate subtopic %q", t.Name, s.Name))
			}
			subs[s.Name] = true
		}
	}
	return problems
}
