package model

// WebSocket message types
const (
	WSMessageTypeStatus   = "status"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStatusMessage is pushed when a poll applies a non-terminal transition
type WSStatusMessage struct {
	Type     string      `json:"type"`
	TaskID   string      `json:"taskId"`
	Status   AssetStatus `json:"status"`
	Progress int         `json:"progress,omitempty"`
}

// WSCompleteMessage is pushed when a stage reaches its terminal URL
type WSCompleteMessage struct {
	Type     string      `json:"type"`
	TaskID   string      `json:"taskId"`
	Status   AssetStatus `json:"status"`
	ModelURL string      `json:"modelUrl"`
}

// WSErrorMessage is pushed when the provider reports task failure
type WSErrorMessage struct {
	Type   string  `json:"type"`
	TaskID string  `json:"taskId"`
	Error  WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
