package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "pongctl",
		Short: "CLI tool for the pong relay server",
		Long: `pongctl talks to a pong relay server.

It can check server health, browse the leaderboard and match history,
and play the room lifecycle over the websocket endpoint: create a room,
join one by code, or queue for quickmatch.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: PONGRELAY_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.WSURL, "ws", cfg.WSURL, "Websocket URL, derived from --server if unset (env: PONGRELAY_WS)")
	rootCmd.PersistentFlags().StringVar(&cfg.PlayerID, "player-id", cfg.PlayerID, "Player identity (env: PONGRELAY_PLAYER_ID)")
	rootCmd.PersistentFlags().StringVar(&cfg.PlayerName, "name", cfg.PlayerName, "Display name (env: PONGRELAY_PLAYER_NAME)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newMatchesCmd())
	rootCmd.AddCommand(newPlayerCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newJoinCmd())
	rootCmd.AddCommand(newQuickMatchCmd())
	rootCmd.AddCommand(newPingCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
