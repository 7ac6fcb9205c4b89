package uid

import "github.com/google/uuid"

// New generates a time-ordered identifier (UUIDv7). Lexical order of the
// returned strings follows creation order, which the kit allocator relies on.
func New() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
