package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new time-ordered unique identifier string.
// Version 7 UUIDs sort by creation time, which keeps bid IDs in commit order.
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
