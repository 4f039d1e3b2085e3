package postgrest

import (
	"fmt"
	"net/http"

	"github.com/restq/go-restq/core/query"
)

// ServerError is a non-success response from the server. Data holds the
// parsed diagnostic body when the response declared a JSON payload. The
// error is propagated verbatim; this layer never retries.
type ServerError struct {
	Status     int
	StatusText string
	Data       any
	Headers    http.Header
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server responded %d %s", e.Status, e.StatusText)
}

// CardinalityError reports a mismatch between an embedded query's
// declared cardinality and the shape the server actually returned. It
// signals a query/schema mismatch, not a network fault.
type CardinalityError struct {
	Cardinality query.Cardinality
	Key         string
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("Incorrect cardinality %q for embedded query", string(e.Cardinality))
}
