package handlers

const (
	// maxJSONBody bounds request bodies; face images dominate the size
	maxJSONBody = 8 << 20

	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnauthorized        = "Unauthorized"
	ErrInternalServerError = "Internal server error"
)
