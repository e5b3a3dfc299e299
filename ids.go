package abac

import "github.com/google/uuid"

// NewPolicyID generates a fresh random policy identifier.
func NewPolicyID() string {
	return uuid.NewString()
}

// NewResourceID generates a fresh random resource identifier.
func NewResourceID() string {
	return uuid.NewString()
}
