package registry

import (
	"fmt"
	"strings"
)

// DuplicateNameError reports two discovered files sharing a logical
// name. It fails the entire build; no partial registry is produced.
type DuplicateNameError struct {
	Name  string
	Files []string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("multiple database files share the stem %q: %s",
		e.Name, strings.Join(e.Files, ", "))
}

// NotFoundError reports a name absent from the current registry
// snapshot.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "Database not found: " + e.Name
}
