package record

// Success is the payload for operations without a natural result.
type Success struct {
	Success bool `json:"success"`
}

// Deleted reports a message deletion. Count mirrors the number of requested
// IDs because the server does not report per-ID outcomes.
type Deleted struct {
	Success      bool `json:"success"`
	DeletedCount int  `json:"deletedCount"`
}

// Joined reports a channel join.
type Joined struct {
	Success bool     `json:"success"`
	Via     string   `json:"via"`
	Chats   []any    `json:"chats"`
	Message *Message `json:"message,omitempty"`
}

// SessionString carries the text form of the current session blob.
type SessionString struct {
	SessionString string `json:"sessionString"`
}

// Failure is emitted in place of a result when a batch continues past an error.
type Failure struct {
	Error string `json:"error"`
}

// Item is one output element handed back to the workflow engine.
type Item struct {
	JSON any `json:"json"`
}
