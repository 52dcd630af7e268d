package core

// Error codes used by the admin API and in logs
const (
	ErrGameNotFound   = "GAME_NOT_FOUND"
	ErrInvalidRequest = "INVALID_REQUEST"
	ErrNotYourTurn    = "NOT_YOUR_TURN"
	ErrAlreadyShot    = "ALREADY_SHOT"
	ErrGameOver       = "GAME_OVER"
	ErrUnauthorized   = "UNAUTHORIZED"
	ErrInternalError  = "INTERNAL_ERROR"
	ErrResourceLimit  = "RESOURCE_LIMIT"
)

// ErrorResponse is the admin API error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
