package users

// CreateUserPayload represents the create user request body.
type CreateUserPayload struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
	IsAdmin  bool   `json:"is_admin"`
}

// ListUsersQuery represents query params for listing users.
type ListUsersQuery struct {
	Limit  int `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `query:"offset" validate:"omitempty,min=0"`
}

// UpdateUserPayload represents the update user request body.
type UpdateUserPayload struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	IsAdmin  *bool   `json:"is_admin"`
}

// ResetPasswordPayload represents the reset password request body.
type ResetPasswordPayload struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}
