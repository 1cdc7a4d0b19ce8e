package repositories

import "errors"

// ErrNotFound is returned when a document does not exist in its collection.
// Callers with a local fallback path treat it differently from transport or
// permission errors, so implementations must return it verbatim.
var ErrNotFound = errors.New("document not found")
