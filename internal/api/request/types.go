package request

// CreatePlayerRequest is the request body for creating a player
type CreatePlayerRequest struct {
	Nickname    string `json:"nickname"`
	AvatarColor string `json:"avatarColor"`
}

// UpdatePlayerRequest is the request body for changing a player's profile
type UpdatePlayerRequest struct {
	Nickname    string `json:"nickname"`
	AvatarColor string `json:"avatarColor"`
}

// CreateGameRequest is the request body for creating a game
type CreateGameRequest struct {
	HostPlayerID string `json:"hostPlayerId"`
	TurnDuration int    `json:"turnDuration"`
	IsPublic     bool   `json:"isPublic"`
}

// PlayerRequest is the request body for actions that only name the acting player
type PlayerRequest struct {
	PlayerID string `json:"playerId"`
}

// ReadyRequest is the request body for changing readiness
type ReadyRequest struct {
	PlayerID string `json:"playerId"`
	IsReady  bool   `json:"isReady"`
}

// GuessRequest is the request body for submitting a guess
type GuessRequest struct {
	PlayerID string `json:"playerId"`
	Word     string `json:"word"`
}

// TimeoutRequest is the request body for reporting an expired turn.
// TurnNumber is the turn the caller saw expire; 0 means the current turn.
type TimeoutRequest struct {
	PlayerID   string `json:"playerId"`
	TurnNumber int    `json:"turnNumber,omitempty"`
}
