package graph

import (
	"fmt"

	"github.com/upstarter/engram/internal/storage"
	"github.com/upstarter/engram/pkg/types"
)

func validateMemoryID(id string) error {
	if !types.IsValidMemoryID(id) {
		return fmt.Errorf("%w: malformed memory id %q, want mem_<12 hex chars>", storage.ErrInvalidInput, id)
	}
	return nil
}

func validateEntityID(id string) error {
	if !types.IsValidEntityID(id) {
		return fmt.Errorf("%w: malformed entity id %q, want entity:<type>:<slug>", storage.ErrInvalidInput, id)
	}
	return nil
}
