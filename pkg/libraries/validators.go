package libraries

// CreateLibraryPayload represents the create library request body.
type CreateLibraryPayload struct {
	Name                string   `json:"name" validate:"required,max=100"`
	ScanIntervalMinutes int      `json:"scan_interval_minutes" validate:"min=0"`
	WatchMode           bool     `json:"watch_mode"`
	ScanPaths           []string `json:"scan_paths" validate:"required,min=1,dive,required"`
}

// ListLibrariesQuery represents query params for listing libraries.
type ListLibrariesQuery struct {
	Limit  int `query:"limit" default:"50" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// UpdateLibraryPayload represents the update library request body.
type UpdateLibraryPayload struct {
	Name                *string   `json:"name" validate:"omitempty,max=100"`
	ScanIntervalMinutes *int      `json:"scan_interval_minutes" validate:"omitempty,min=0"`
	WatchMode           *bool     `json:"watch_mode"`
	ScanPaths           *[]string `json:"scan_paths" validate:"omitempty,min=1,dive,required"`
}
