package models

import "encoding/json"

// Identity is a write-once holder for an identifier allocated by the remote
// flow-management system at deploy time. The zero value is unassigned. The
// first Set succeeds and is thereafter visible; every later Set fails, even
// with an equal value, so a recorded identity can never silently drift from
// what other elements' parent references depend on.
type Identity struct {
	value    string
	assigned bool
}

// Set stores the identity value. It fails with ErrIdentityReassigned if the
// identity was already assigned.
func (i *Identity) Set(value string) error {
	if i.assigned {
		return ErrIdentityReassigned
	}

	i.value = value
	i.assigned = true

	return nil
}

// Value returns the assigned identity, or the empty string before assignment.
func (i *Identity) Value() string {
	return i.value
}

// Assigned reports whether the identity has been set.
func (i *Identity) Assigned() bool {
	return i.assigned
}

func (i Identity) String() string {
	return i.value
}

// MarshalJSON renders the identity value, or null while unassigned.
func (i Identity) MarshalJSON() ([]byte, error) {
	if !i.assigned {
		return []byte("null"), nil
	}

	return json.Marshal(i.value)
}
