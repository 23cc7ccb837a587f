package server

// ChatRequest is the POST /chat request body.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the POST /chat success body.
type ChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the standard error envelope. Kind carries the exchange
// error taxonomy; Response is set only for persistence failures, where the
// generated reply is delivered once to the caller even though it was never
// stored.
type ErrorResponse struct {
	Error    string `json:"error"`
	Kind     string `json:"kind,omitempty"`
	Response string `json:"response,omitempty"`
}
