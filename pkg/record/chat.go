package record

// Chat is the canonical basic group record.
type Chat struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	Title             string `json:"title"`
	ParticipantsCount *int   `json:"participantsCount"`
	Date              *int   `json:"date"`
	Creator           bool   `json:"creator"`
	Deactivated       bool   `json:"deactivated"`
	CallActive        bool   `json:"callActive"`
	CallNotEmpty      bool   `json:"callNotEmpty"`
}

// Channel is the canonical channel or supergroup record.
type Channel struct {
	ID                string              `json:"id"`
	Type              string              `json:"type"`
	Title             string              `json:"title"`
	Username          *string             `json:"username"`
	Usernames         []Username          `json:"usernames"`
	ParticipantsCount *int                `json:"participantsCount"`
	Date              *int                `json:"date"`
	Creator           bool                `json:"creator"`
	Broadcast         bool                `json:"broadcast"`
	Megagroup         bool                `json:"megagroup"`
	Verified          bool                `json:"verified"`
	Restricted        bool                `json:"restricted"`
	RestrictionReason []RestrictionReason `json:"restrictionReason"`
	Scam              bool                `json:"scam"`
	Fake              bool                `json:"fake"`
}

// ChannelFull carries the counters only available from a full-info request.
type ChannelFull struct {
	About             string  `json:"about"`
	ParticipantsCount *int    `json:"participantsCount"`
	AdminsCount       *int    `json:"adminsCount"`
	KickedCount       *int    `json:"kickedCount"`
	BannedCount       *int    `json:"bannedCount"`
	LinkedChatID      *string `json:"linkedChatId"`
}

// ChannelInfo is a channel together with its full info.
type ChannelInfo struct {
	*Channel
	FullInfo *ChannelFull `json:"fullInfo"`
}

// Unknown is the fallback for entity variants without a dedicated record.
type Unknown struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Dialog is a conversation summary.
type Dialog struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Name                string   `json:"name"`
	UnreadCount         int      `json:"unreadCount"`
	UnreadMentionsCount int      `json:"unreadMentionsCount"`
	IsUser              bool     `json:"isUser"`
	IsGroup             bool     `json:"isGroup"`
	IsChannel           bool     `json:"isChannel"`
	Pinned              bool     `json:"pinned"`
	Date                *int     `json:"date"`
	LastMessage         *Message `json:"lastMessage"`
}
