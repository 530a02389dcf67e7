package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex seq_01HZX3K4W8QJ5V2N7M6R9T0YBC
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_SEQUENCE = "seq"
	UUID_PREFIX_DOCUMENT = "doc"
	UUID_PREFIX_PAYMENT  = "pay"
	UUID_PREFIX_EVENT    = "evt"
)
