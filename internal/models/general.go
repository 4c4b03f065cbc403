package models

// ErrorResponse defines API error response format
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// MessageResponse defines API success response format for operations that
// return no resource
type MessageResponse struct {
	Message string `json:"message"`
}

// VersionResponse defines the version API response format
type VersionResponse struct {
	Version   string `json:"version"`
	BuildTime string `json:"buildTime,omitempty"`
}
