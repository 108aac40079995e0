package events

import (
	"encoding/json"
	"time"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
)

// Message is the JSON form of an event on every transport
type Message struct {
	Type       model.EventType `json:"type"`
	GameID     model.GameID    `json:"gameId"`
	PlayerID   model.PlayerID  `json:"playerId,omitempty"`
	TurnNumber int             `json:"turnNumber"`
	Version    int64           `json:"version"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    map[string]any  `json:"payload,omitempty"`
}

// ToMessage converts an event to its wire form
func ToMessage(event *model.Event) Message {
	return Message{
		Type:       event.Type,
		GameID:     event.GameID,
		PlayerID:   event.PlayerID,
		TurnNumber: event.TurnNumber,
		Version:    event.Version,
		Timestamp:  event.Timestamp.UTC(),
		Payload:    payloadFields(event.Payload),
	}
}

// Encode marshals an event to JSON
func Encode(event *model.Event) ([]byte, error) {
	return json.Marshal(ToMessage(event))
}

func payloadFields(payload any) map[string]any {
	switch p := payload.(type) {
	case model.PlayerJoinedPayload:
		return map[string]any{"playerId": p.PlayerID, "nickname": p.Nickname, "joinOrder": p.JoinOrder}
	case model.PlayerLeftPayload:
		return map[string]any{"playerId": p.PlayerID, "nickname": p.Nickname}
	case model.PlayerReadyPayload:
		return map[string]any{"playerId": p.PlayerID, "isReady": p.IsReady}
	case model.GameStartedPayload:
		return map[string]any{
			"players":             p.Players,
			"currentTurnPlayerId": p.CurrentTurnPlayerID,
			"turnDuration":        int(p.TurnDuration.Seconds()),
		}
	case model.GuessMadePayload:
		fields := map[string]any{
			"playerId":  p.PlayerID,
			"word":      p.Word,
			"distance":  p.Distance,
			"isCorrect": p.IsCorrect,
		}
		if p.NextTurnPlayerID != "" {
			fields["nextTurnPlayerId"] = p.NextTurnPlayerID
		}
		return fields
	case model.TurnTimedOutPayload:
		return map[string]any{"skippedPlayerId": p.SkippedPlayerID, "nextTurnPlayerId": p.NextTurnPlayerID}
	case model.PlayerDisconnectedPayload:
		return map[string]any{"playerId": p.PlayerID, "lastActiveAt": p.LastActiveAt.UTC()}
	case model.GameCompletedPayload:
		fields := map[string]any{"secretWord": p.SecretWord, "reason": p.Reason}
		if p.WinnerID != "" {
			fields["winnerId"] = p.WinnerID
		}
		return fields
	case model.GameAbandonedPayload:
		return map[string]any{"reason": p.Reason}
	default:
		return nil
	}
}
