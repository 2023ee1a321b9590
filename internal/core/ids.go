package core

import "github.com/google/uuid"

// GenerateID produces an identifier of the form {prefix}_{uuid}. IDs are
// unique for the lifetime of the store, including under rapid sequential
// calls.
func GenerateID(prefix string) string {
	if prefix == "" {
		prefix = "id"
	}
	return prefix + "_" + uuid.NewString()
}
