package cli

import (
	"os"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL  string
	WSURL      string
	PlayerID   string
	PlayerName string
	Output     string
	Verbose    bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  getEnvOrDefault("PONGRELAY_SERVER", "http://localhost:8080"),
		WSURL:      os.Getenv("PONGRELAY_WS"),
		PlayerID:   os.Getenv("PONGRELAY_PLAYER_ID"),
		PlayerName: getEnvOrDefault("PONGRELAY_PLAYER_NAME", "Player"),
		Output:     "text",
		Verbose:    false,
	}
}

// WebsocketURL resolves the websocket endpoint, deriving it from the
// server URL when not set explicitly
func (c *Config) WebsocketURL() string {
	if c.WSURL != "" {
		return c.WSURL
	}

	url := strings.TrimSuffix(c.ServerURL, "/")
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url + "/ws"
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
