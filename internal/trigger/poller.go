package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/pkg/record"
)

// Source is the connection a poll reads from. *client.Client satisfies it.
type Source interface {
	Connect(ctx context.Context) error
	Disconnect()
	GetDialogs(ctx context.Context, limit int) ([]record.Dialog, error)
	Resolve(ctx context.Context, identifier string) (mtproto.PeerRef, error)
}

// Observer records poll outcomes.
type Observer interface {
	ObservePoll(err error)
	ObserveEvent(chatType string)
}

// Sink receives emitted events in addition to the hub.
type Sink interface {
	Deliver(ctx context.Context, e Event) error
}

// mark is the last message seen in a chat.
type mark struct {
	id   int
	edit int
}

// Poller detects new activity by comparing the last message of every
// dialog against what the previous poll saw. The first poll only records
// the current position.
type Poller struct {
	cfg       Config
	newSource func() Source
	hub       *Hub
	sink      Sink
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	primed bool
	marks  map[string]mark
}

// NewPoller creates a Poller. newSource is called once per poll; the
// source is connected for the poll and disconnected afterwards.
func NewPoller(cfg Config, newSource func() Source, hub *Hub, logger *slog.Logger) *Poller {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:       cfg,
		newSource: newSource,
		hub:       hub,
		logger:    logger.With("component", "trigger"),
		now:       time.Now,
		marks:     make(map[string]mark),
	}
}

// SetSink adds a delivery target for every event.
func (p *Poller) SetSink(s Sink) { p.sink = s }

// SetObserver records poll metrics.
func (p *Poller) SetObserver(o Observer) { p.observer = o }

// Name implements cron.Job.
func (p *Poller) Name() string { return "trigger_poll" }

// Schedule implements cron.Job.
func (p *Poller) Schedule() string { return p.cfg.Schedule }

// Run implements cron.Job by polling once.
func (p *Poller) Run(ctx context.Context) error {
	_, err := p.Poll(ctx)
	return err
}

// Poll reads the dialogs once and returns the events it emitted.
func (p *Poller) Poll(ctx context.Context) (events []Event, err error) {
	defer func() {
		if p.observer != nil {
			p.observer.ObservePoll(err)
		}
	}()

	src := p.newSource()
	if err := src.Connect(ctx); err != nil {
		return nil, fmt.Errorf("trigger: connect: %w", err)
	}
	defer src.Disconnect()

	want := ""
	if p.cfg.ChatFilter == ChatsSpecific {
		ref, err := src.Resolve(ctx, p.cfg.ChatID)
		if err != nil {
			return nil, fmt.Errorf("trigger: chat %q: %w", p.cfg.ChatID, err)
		}
		want = strconv.FormatInt(ref.ID, 10)
	}

	dialogs, err := src.GetDialogs(ctx, p.cfg.DialogLimit)
	if err != nil {
		return nil, fmt.Errorf("trigger: dialogs: %w", err)
	}

	p.mu.Lock()
	priming := !p.primed
	p.primed = true
	for _, d := range dialogs {
		if !p.matchChat(d, want) || d.LastMessage == nil {
			continue
		}
		msg := d.LastMessage
		id, err := strconv.Atoi(msg.ID)
		if err != nil {
			continue
		}
		prev, seen := p.marks[d.ID]
		cur := mark{id: id, edit: deref(msg.EditDate)}
		if id < prev.id {
			continue
		}
		p.marks[d.ID] = cur
		if priming || (!seen && p.cfg.EventType == EventEditMessage) {
			continue
		}
		if !p.matchEvent(msg, prev, cur, seen) {
			continue
		}
		events = append(events, Event{
			ID:        uuid.NewString(),
			Type:      p.cfg.EventType,
			ChatID:    d.ID,
			ChatType:  chatType(d),
			ChatTitle: d.Title,
			Message:   msg,
			Detected:  p.now(),
		})
	}
	p.mu.Unlock()

	if priming {
		p.logger.Info("trigger primed", "dialogs", len(dialogs))
		return nil, nil
	}
	return events, p.emit(ctx, events)
}

func (p *Poller) emit(ctx context.Context, events []Event) error {
	var failed []error
	for _, e := range events {
		if p.hub != nil {
			p.hub.Publish(e)
		}
		if p.observer != nil {
			p.observer.ObserveEvent(e.ChatType)
		}
		if p.sink != nil {
			if err := p.sink.Deliver(ctx, e); err != nil {
				p.logger.Warn("event delivery failed", "event", e.ID, "chat", e.ChatID, "error", err)
				failed = append(failed, err)
			}
		}
		p.logger.Debug("event", "type", e.Type, "chat", e.ChatID, "message", e.Message.ID)
	}
	return errors.Join(failed...)
}

func (p *Poller) matchChat(d record.Dialog, want string) bool {
	switch p.cfg.ChatFilter {
	case ChatsPrivate:
		return d.IsUser
	case ChatsGroups:
		return d.IsGroup
	case ChatsChannels:
		return d.IsChannel && !d.IsGroup
	case ChatsSpecific:
		return d.ID == want
	default:
		return true
	}
}

func (p *Poller) matchEvent(msg *record.Message, prev, cur mark, seen bool) bool {
	if p.cfg.incomingOnly() && msg.Out {
		return false
	}
	newer := !seen || cur.id > prev.id
	switch p.cfg.EventType {
	case EventNewMessage:
		return newer && msg.Action == nil
	case EventChatAction:
		return newer && msg.Action != nil
	case EventEditMessage:
		return cur.id == prev.id && cur.edit > prev.edit
	default:
		return false
	}
}

func chatType(d record.Dialog) string {
	switch {
	case d.IsUser:
		return "private"
	case d.IsChannel && !d.IsGroup:
		return "channel"
	case d.IsChannel:
		return "supergroup"
	case d.IsGroup:
		return "group"
	default:
		return "unknown"
	}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
