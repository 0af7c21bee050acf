package leads

import "errors"

var (
	// ErrMissingContact is returned when a lead has no way to reach the customer
	ErrMissingContact = errors.New("leads: email, phone, or channel is required")

	// ErrInvalidCSV is returned when an upload is not a leads sheet
	ErrInvalidCSV = errors.New("leads: invalid csv")
)
