package record

// Username is one of the handles attached to a user or channel.
type Username struct {
	Username string `json:"username"`
	Active   bool   `json:"active"`
	Editable bool   `json:"editable"`
}

// RestrictionReason explains why a peer is restricted on a platform.
type RestrictionReason struct {
	Platform string `json:"platform"`
	Reason   string `json:"reason"`
	Text     string `json:"text"`
}

// Status is the presence of a user.
type Status struct {
	// Type is the wire constructor name, e.g. "userStatusOnline".
	Type      string `json:"type"`
	WasOnline *int   `json:"wasOnline"`
	Expires   *int   `json:"expires"`
}

// Color is a name or profile color with an optional background emoji.
type Color struct {
	Color             *int    `json:"color"`
	BackgroundEmojiID *string `json:"backgroundEmojiId"`
}

// EmojiStatus is the custom emoji shown next to a premium user's name.
type EmojiStatus struct {
	DocumentID *string `json:"documentId"`
	Until      *int    `json:"until"`
}

// User is the canonical user record.
type User struct {
	ID                   string              `json:"id"`
	Type                 string              `json:"type"`
	AccessHash           *string             `json:"accessHash"`
	FirstName            *string             `json:"firstName"`
	LastName             *string             `json:"lastName"`
	Username             *string             `json:"username"`
	Usernames            []Username          `json:"usernames"`
	Phone                *string             `json:"phone"`
	Bot                  bool                `json:"bot"`
	BotChatHistory       bool                `json:"botChatHistory"`
	BotNochats           bool                `json:"botNochats"`
	BotInlineGeo         bool                `json:"botInlineGeo"`
	BotInlinePlaceholder *string             `json:"botInlinePlaceholder"`
	BotInfoVersion       *int                `json:"botInfoVersion"`
	BotAttachMenu        bool                `json:"botAttachMenu"`
	BotCanEdit           bool                `json:"botCanEdit"`
	Verified             bool                `json:"verified"`
	Restricted           bool                `json:"restricted"`
	RestrictionReason    []RestrictionReason `json:"restrictionReason"`
	Scam                 bool                `json:"scam"`
	Fake                 bool                `json:"fake"`
	Premium              bool                `json:"premium"`
	Self                 bool                `json:"self"`
	Contact              bool                `json:"contact"`
	MutualContact        bool                `json:"mutualContact"`
	Deleted              bool                `json:"deleted"`
	Support              bool                `json:"support"`
	Min                  bool                `json:"min"`
	ApplyMinPhoto        bool                `json:"applyMinPhoto"`
	Status               *Status             `json:"status"`
	LangCode             *string             `json:"langCode"`
	Color                *Color              `json:"color"`
	ProfileColor         *Color              `json:"profileColor"`
	EmojiStatus          *EmojiStatus        `json:"emojiStatus"`
	StoriesMaxID         *int                `json:"storiesMaxId"`
	StoriesUnavailable   bool                `json:"storiesUnavailable"`
}

// UserSummary is the short identity returned by the authentication flow.
type UserSummary struct {
	ID        string  `json:"id"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Username  *string `json:"username"`
	Phone     *string `json:"phone"`
}
