package httpadapter

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

//go:embed openapi.yaml
var openAPISpec []byte

var loadOpenAPI = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}
	return doc, nil
})

// requestValidator checks JSON bodies against component schemas of the
// embedded spec.
type requestValidator struct {
	doc *openapi3.T
}

func newRequestValidator() (*requestValidator, error) {
	doc, err := loadOpenAPI()
	if err != nil {
		return nil, err
	}
	return &requestValidator{doc: doc}, nil
}

func (v *requestValidator) validate(schemaName string, body []byte) error {
	if v == nil {
		return nil
	}
	if v.doc.Components == nil {
		return fmt.Errorf("openapi spec has no components")
	}
	ref, ok := v.doc.Components.Schemas[schemaName]
	if !ok || ref == nil || ref.Value == nil {
		return fmt.Errorf("openapi schema %q not found", schemaName)
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("invalid json"))
	}
	if err := ref.Value.VisitJSON(value); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate "+schemaName, err)
	}
	return nil
}
