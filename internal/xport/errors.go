package xport

import "fmt"

// ConstraintError reports a V5 naming/label-length violation, raised before
// any bytes are written.
type ConstraintError struct {
	Kind  string // "dataset name", "variable name", "label"
	Value string
	Limit int
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("xport: V5 %s %q exceeds the %d-character limit", e.Kind, e.Value, e.Limit)
}
