package record

// Direction of a message relative to the authenticated account.
type Direction string

// Message directions.
const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Message is the canonical message record.
type Message struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Date          *int      `json:"date"`
	Text          string    `json:"message"`
	Direction     Direction `json:"direction"`
	Out           bool      `json:"out"`
	Mentioned     bool      `json:"mentioned"`
	MediaUnread   bool      `json:"mediaUnread"`
	Silent        bool      `json:"silent"`
	Post          bool      `json:"post"`
	FromScheduled bool      `json:"fromScheduled"`
	EditDate      *int      `json:"editDate"`
	PostAuthor    *string   `json:"postAuthor"`
	Views         *int      `json:"views"`
	Forwards      *int      `json:"forwards"`
	ReplyToMsgID  *string   `json:"replyToMsgId"`
	FromID        *string   `json:"fromId"`
	PeerID        *string   `json:"peerId"`
	HasMedia      bool      `json:"hasMedia"`
	MediaType     *string   `json:"mediaType"`
	Action        *string   `json:"action,omitempty"`
}
