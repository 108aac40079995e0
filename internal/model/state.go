package model

import (
	"slices"
	"time"
)

// GameState is the consistent read view of a game with its members and guesses
type GameState struct {
	Game    *Game
	Players []*GamePlayer // ordered by JoinOrder
	Guesses []*Guess      // in append order
}

// Member returns the membership for a player, or nil
func (s *GameState) Member(playerID PlayerID) *GamePlayer {
	for _, p := range s.Players {
		if p.PlayerID == playerID {
			return p
		}
	}
	return nil
}

// IsReady is the readiness predicate; the host is always ready
func (s *GameState) IsReady(p *GamePlayer) bool {
	return p.IsReady || p.PlayerID == s.Game.HostPlayerID
}

// ConnectedPlayers returns connected members in join order
func (s *GameState) ConnectedPlayers() []*GamePlayer {
	var connected []*GamePlayer
	for _, p := range s.Players {
		if p.IsConnected {
			connected = append(connected, p)
		}
	}
	return connected
}

// ConnectedCount returns the number of connected members
func (s *GameState) ConnectedCount() int {
	return len(s.ConnectedPlayers())
}

// AllReady reports whether every connected member is ready
func (s *GameState) AllReady() bool {
	for _, p := range s.ConnectedPlayers() {
		if !s.IsReady(p) {
			return false
		}
	}
	return true
}

// NextTurnPlayer returns the connected member after the given one in join order, wrapping around.
// Returns the player itself if nobody else is connected.
func (s *GameState) NextTurnPlayer(current PlayerID) PlayerID {
	n := len(s.Players)
	if n == 0 {
		return ""
	}
	start := 0
	for i, p := range s.Players {
		if p.PlayerID == current {
			start = i
			break
		}
	}
	for step := 1; step <= n; step++ {
		p := s.Players[(start+step)%n]
		if p.IsConnected {
			return p.PlayerID
		}
	}
	return current
}

// Opponent returns the first connected member other than the given player
func (s *GameState) Opponent(playerID PlayerID) *GamePlayer {
	for _, p := range s.Players {
		if p.PlayerID != playerID && p.IsConnected {
			return p
		}
	}
	return nil
}

// HasWord reports whether the normalized word has already been guessed in this game
func (s *GameState) HasWord(word string) bool {
	for _, g := range s.Guesses {
		if g.Word == word {
			return true
		}
	}
	return false
}

// GuessesByDistance returns the guesses sorted closest first; ties keep append order
func (s *GameState) GuessesByDistance() []*Guess {
	sorted := slices.Clone(s.Guesses)
	slices.SortStableFunc(sorted, func(a, b *Guess) int {
		return a.Distance - b.Distance
	})
	return sorted
}

// StaleMembers returns connected members whose last activity is older than threshold
func (s *GameState) StaleMembers(now time.Time, threshold time.Duration) []*GamePlayer {
	var stale []*GamePlayer
	for _, p := range s.Players {
		if p.IsConnected && now.Sub(p.LastActiveAt) > threshold {
			stale = append(stale, p)
		}
	}
	return stale
}

// Clone returns a deep copy of the state's game and memberships; guesses are immutable and shared
func (s *GameState) Clone() *GameState {
	c := &GameState{
		Game:    s.Game.Clone(),
		Players: make([]*GamePlayer, len(s.Players)),
		Guesses: slices.Clone(s.Guesses),
	}
	for i, p := range s.Players {
		c.Players[i] = p.Clone()
	}
	return c
}
