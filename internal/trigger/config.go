package trigger

import (
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/tgflow/internal/cron"
	"github.com/flemzord/tgflow/internal/security"
)

// Event types.
const (
	EventNewMessage  = "newMessage"
	EventEditMessage = "editMessage"
	EventChatAction  = "chatAction"
)

// Chat filters.
const (
	ChatsAll      = "all"
	ChatsPrivate  = "private"
	ChatsGroups   = "groups"
	ChatsChannels = "channels"
	ChatsSpecific = "specific"
)

// Config holds the trigger.poller module configuration.
type Config struct {
	// Schedule is a cron expression or descriptor. Defaults to "@every 1m".
	Schedule string `yaml:"schedule"`
	// EventType is newMessage, editMessage or chatAction.
	EventType string `yaml:"event_type"`
	// ChatFilter is all, private, groups, channels or specific.
	ChatFilter string `yaml:"chat_filter"`
	// ChatID is the chat watched by the specific filter.
	ChatID string `yaml:"chat_id"`
	// IncomingOnly drops the account's own messages. Defaults to true.
	IncomingOnly *bool `yaml:"incoming_only"`
	// DialogLimit bounds the dialogs read per poll. Defaults to 100.
	DialogLimit int `yaml:"dialog_limit"`

	// SessionCheck, when set, schedules a session health check.
	SessionCheck string `yaml:"session_check"`

	Webhook WebhookConfig `yaml:"webhook"`
}

// WebhookConfig sends every event to an HTTP endpoint.
type WebhookConfig struct {
	URL string `yaml:"url"`
	// Secret signs the body with HMAC-SHA256 in X-Signature-256.
	Secret  string                   `yaml:"secret"`
	Timeout time.Duration            `yaml:"timeout"`
	Filter  security.URLFilterConfig `yaml:"filter"`
}

func (c *Config) defaults() {
	if c.Schedule == "" {
		c.Schedule = "@every 1m"
	}
	if c.EventType == "" {
		c.EventType = EventNewMessage
	}
	if c.ChatFilter == "" {
		c.ChatFilter = ChatsAll
	}
	if c.IncomingOnly == nil {
		t := true
		c.IncomingOnly = &t
	}
	if c.DialogLimit <= 0 {
		c.DialogLimit = 100
	}
	if c.Webhook.Timeout <= 0 {
		c.Webhook.Timeout = 10 * time.Second
	}
}

func (c *Config) incomingOnly() bool {
	return c.IncomingOnly == nil || *c.IncomingOnly
}

func (c *Config) validate() error {
	var errs []error
	if err := cron.ValidateSchedule(c.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("trigger: schedule: %w", err))
	}
	if c.SessionCheck != "" {
		if err := cron.ValidateSchedule(c.SessionCheck); err != nil {
			errs = append(errs, fmt.Errorf("trigger: session_check: %w", err))
		}
	}
	switch c.EventType {
	case EventNewMessage, EventEditMessage, EventChatAction:
	default:
		errs = append(errs, fmt.Errorf("trigger: event_type %q is not one of newMessage, editMessage, chatAction", c.EventType))
	}
	switch c.ChatFilter {
	case ChatsAll, ChatsPrivate, ChatsGroups, ChatsChannels:
	case ChatsSpecific:
		if c.ChatID == "" {
			errs = append(errs, errors.New("trigger: chat_id is required for the specific chat filter"))
		}
	default:
		errs = append(errs, fmt.Errorf("trigger: unknown chat_filter %q", c.ChatFilter))
	}
	if c.DialogLimit > 500 {
		errs = append(errs, fmt.Errorf("trigger: dialog_limit %d exceeds 500", c.DialogLimit))
	}
	if c.Webhook.URL != "" {
		if err := security.NewURLFilter(c.Webhook.Filter).Check(c.Webhook.URL); err != nil {
			errs = append(errs, fmt.Errorf("trigger: webhook url: %w", err))
		}
	}
	return errors.Join(errs...)
}
