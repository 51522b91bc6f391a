package agentapi

// Roles used in Content.Role.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Operation labels used for metrics and latency reporting.
const (
	OpCreateSession = "create_session"
	OpRun           = "run"
)

// InlineData carries base64 encoded bytes such as an uploaded image.
type InlineData struct {
	DisplayName string `json:"displayName,omitempty"`
	Data        string `json:"data"`
	MimeType    string `json:"mimeType"`
}

// Part is one element of a message. Exactly one field is set.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// Content is a role-tagged list of parts.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// RunRequest is the body of POST /run.
type RunRequest struct {
	AppName    string  `json:"appName"`
	UserID     string  `json:"userId"`
	SessionID  string  `json:"sessionId"`
	NewMessage Content `json:"newMessage"`
	Streaming  bool    `json:"streaming"`
}

// Event is one element of the /run response. Fields the chat client does not
// read are left undecoded.
type Event struct {
	ID           string   `json:"id,omitempty"`
	Author       string   `json:"author,omitempty"`
	InvocationID string   `json:"invocationId,omitempty"`
	Content      *Content `json:"content,omitempty"`
	ErrorCode    string   `json:"errorCode,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
}
