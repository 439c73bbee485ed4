package progress

// UpsertProgressPayload represents the record progress request body.
type UpsertProgressPayload struct {
	Position   int     `json:"position" validate:"min=0"`
	Percentage float64 `json:"percentage" validate:"omitempty,min=0,max=100"`
}
