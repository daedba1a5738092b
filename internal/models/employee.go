package models

// Employee is an entry of the employee registry.
// Shift reports refer to employees by loosely-typed names; the registry is
// the canonical identity they are resolved against.
type Employee struct {
	// ID is the canonical employee identifier.
	ID int64 `json:"id"`

	// Name is the full display name (e.g., "Jonathan Reyes").
	Name string `json:"name"`

	// Key is an optional short handle used on paper reports (e.g., "jon").
	Key string `json:"key,omitempty"`

	// CreatedAt is the Unix timestamp when the employee was registered.
	CreatedAt int64 `json:"createdAt"`
}
