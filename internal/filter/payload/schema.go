package payload

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	requestDef cue.Value
	schemaErr  error

	// cue.Context is not safe for concurrent use.
	schemaMu sync.Mutex
)

func loadSchema() {
	schemaCtx = cuecontext.New()
	v := schemaCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		schemaErr = fmt.Errorf("compiling request schema: %w", err)
		return
	}
	requestDef = v.LookupPath(cue.ParsePath("#Request"))
	if err := requestDef.Err(); err != nil {
		schemaErr = fmt.Errorf("looking up #Request: %w", err)
	}
}

// ValidateRequest checks a raw query request body against the CUE request
// schema: known top-level keys, object-valued filter, sane nesting level
// and sort direction. The filter's inner structure is checked by Parse.
func ValidateRequest(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("%w: request body is not valid JSON", ErrInvalidFilter)
	}
	schemaOnce.Do(loadSchema)
	if schemaErr != nil {
		return schemaErr
	}
	schemaMu.Lock()
	defer schemaMu.Unlock()

	v := schemaCtx.CompileBytes(data, cue.Filename("request.json"))
	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	if err := requestDef.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return nil
}
