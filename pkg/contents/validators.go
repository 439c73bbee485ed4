package contents

// ListContentsQuery represents query params for listing contents.
type ListContentsQuery struct {
	Limit     int     `query:"limit" default:"50" validate:"min=1,max=100"`
	Offset    int     `query:"offset" validate:"min=0"`
	LibraryID *int    `query:"library_id"`
	Type      *string `query:"type" validate:"omitempty,oneof=comic novel"`
}
