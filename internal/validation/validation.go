// Package validation checks request bodies against JSON schemas before they
// are decoded.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	CreateOrder = NewSchema("create order", createOrderSchema)
	CancelOrder = NewSchema("cancel order", cancelOrderSchema)
)

type Schema struct {
	name   string
	loader gojsonschema.JSONLoader
}

func NewSchema(name, source string) *Schema {
	return &Schema{name: name, loader: gojsonschema.NewStringLoader(source)}
}

// Error lists every violation found in one document.
type Error struct {
	Schema     string
	Violations []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s request: %s", e.Schema, strings.Join(e.Violations, "; "))
}

// Validate returns *Error when body does not conform. Malformed JSON is
// reported as a single violation.
func (s *Schema) Validate(body []byte) error {
	result, err := gojsonschema.Validate(s.loader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &Error{Schema: s.name, Violations: []string{"body is not valid JSON"}}
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return &Error{Schema: s.name, Violations: violations}
}
