package registry

import (
	"errors"
	"fmt"

	"github.com/srg/gattkit/pkg/gatt"
)

// ErrRegistryConflict is matched by every *RegistryConflictError.
var ErrRegistryConflict = errors.New("registry conflict")

// RegistryConflictError is returned when a registration would silently
// replace a baseline binding and override was not requested.
type RegistryConflictError struct {
	Registry string
	UUID     gatt.UUID
	Existing string
}

func (e *RegistryConflictError) Error() string {
	return fmt.Sprintf("%s registry: %s is already bound to baseline %q (register with override to replace it)",
		e.Registry, e.UUID.ShortString(), e.Existing)
}

// Is allows errors.Is(err, ErrRegistryConflict)
func (e *RegistryConflictError) Is(target error) bool {
	return target == ErrRegistryConflict
}
