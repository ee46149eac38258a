package backend

import (
	"encoding/json"
	"fmt"
)

// Result is the normalized outcome of a mutation whose response shape
// varies (boolean flag vs. field-validity map). Pages consume only
// this shape.
type Result struct {
	OK          bool
	UserID      string
	FieldErrors map[string]bool
}

// InvalidFields lists the field names the backend rejected.
func (r *Result) InvalidFields() []string {
	var fields []string
	for name, valid := range r.FieldErrors {
		if !valid {
			fields = append(fields, name)
		}
	}
	return fields
}

// decodeRegistration folds the POST /users/ response into a Result.
// `true` means created; an object means a field→validity map where a
// false value marks the offending field.
func decodeRegistration(raw []byte) (*Result, error) {
	var ok bool
	if err := json.Unmarshal(raw, &ok); err == nil {
		return &Result{OK: ok}, nil
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &created); err == nil && created.ID != "" {
		return &Result{OK: true, UserID: created.ID}, nil
	}

	var fields map[string]bool
	if err := json.Unmarshal(raw, &fields); err == nil {
		result := &Result{OK: true, FieldErrors: fields}
		for _, valid := range fields {
			if !valid {
				result.OK = false
			}
		}
		return result, nil
	}

	return nil, fmt.Errorf("register_user: unrecognized response shape: %s", string(raw))
}
