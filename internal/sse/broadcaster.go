package sse

import (
	"context"
	"log/slog"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/events"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
)

// Broadcaster publishes game events to the game's SSE hub
type Broadcaster struct {
	hubManager *HubManager
	logger     *slog.Logger
}

var _ events.Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// Publish sends the event to subscribers of its game. Games nobody watches are skipped.
func (b *Broadcaster) Publish(_ context.Context, event *model.Event) {
	hub := b.hubManager.GetHub(event.GameID)
	if hub == nil {
		return
	}
	data, err := events.Encode(event)
	if err != nil {
		b.logger.Error("sse failed to encode event",
			slog.String("game_id", string(event.GameID)),
			slog.String("error", err.Error()))
		return
	}
	hub.BroadcastEvent(string(event.Type), string(data))
}
