package capability

import "errors"

// Registry and catalog errors.
var (
	// ErrCapabilityNotFound is returned when a capability is not registered.
	ErrCapabilityNotFound = errors.New("capability not found")

	// ErrCapabilityNameEmpty is returned when a capability has no name.
	ErrCapabilityNameEmpty = errors.New("capability name cannot be empty")

	// ErrCapabilityExecuteNil is returned when a capability has no execute function.
	ErrCapabilityExecuteNil = errors.New("capability execute function cannot be nil")

	// ErrCapabilityAlreadyRegistered is returned when registering a duplicate.
	ErrCapabilityAlreadyRegistered = errors.New("capability already registered")

	// ErrMissingRequiredArg is returned when a required argument is missing.
	ErrMissingRequiredArg = errors.New("missing required argument")

	// ErrInvalidArgType is returned when an argument has the wrong type.
	ErrInvalidArgType = errors.New("invalid argument type")

	// ErrBuiltinImmutable is returned when a built-in capability is
	// targeted for removal or pruning.
	ErrBuiltinImmutable = errors.New("built-in capabilities cannot be removed")

	// ErrInvalidToolFile is returned when a synthesized tool file fails
	// header or entry-point validation.
	ErrInvalidToolFile = errors.New("invalid tool file")
)
