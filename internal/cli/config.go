package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	// PlayerID is the acting player for game commands
	PlayerID   string
	PlayerFile string
	Output     string
	Verbose    bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  getEnvOrDefault("WORDRANK_SERVER", "http://localhost:8080"),
		PlayerID:   os.Getenv("WORDRANK_PLAYER"),
		PlayerFile: getEnvOrDefault("WORDRANK_PLAYER_FILE", defaultPlayerFile()),
		Output:     "text",
	}
}

// LoadPlayer reads the saved player id unless one was given by flag or env
func (c *Config) LoadPlayer() error {
	if c.PlayerID != "" {
		return nil
	}

	data, err := os.ReadFile(c.PlayerFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	c.PlayerID = strings.TrimSpace(string(data))
	return nil
}

// SavePlayer remembers the player id for later commands
func (c *Config) SavePlayer(playerID string) error {
	c.PlayerID = playerID

	if err := os.MkdirAll(filepath.Dir(c.PlayerFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.PlayerFile, []byte(playerID), 0o600)
}

// RequirePlayer returns the acting player id or an error explaining how to get one
func (c *Config) RequirePlayer() (string, error) {
	if c.PlayerID == "" {
		return "", errors.New("no player: run 'wordrank player create' or pass --player")
	}
	return c.PlayerID, nil
}

func defaultPlayerFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".wordrank", "player")
	}
	return filepath.Join(home, ".wordrank", "player")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
