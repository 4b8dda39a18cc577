package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	relayclient "github.com/mcoot/pongrelay/internal/client"
	"github.com/mcoot/pongrelay/internal/model"
)

// newGameClient builds a websocket client for one CLI invocation
func newGameClient(handlers relayclient.Handlers) *relayclient.Client {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if cfg.Verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	clientCfg := relayclient.DefaultConfig()
	clientCfg.ServerURL = cfg.WebsocketURL()
	clientCfg.PlayerID = cfg.PlayerID
	clientCfg.PlayerName = cfg.PlayerName
	return relayclient.New(clientCfg, handlers, logger)
}

func roomResult(assignment model.RoomAssignment) RoomResult {
	result := RoomResult{
		RoomCode:     string(assignment.RoomCode),
		PlayerNumber: assignment.PlayerNumber,
		IsHost:       assignment.IsHost,
	}
	if assignment.Opponent != nil {
		result.Opponent = assignment.Opponent.Name
	}
	return result
}

func newCreateCmd() *cobra.Command {
	var points int
	var mode string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room and print its join code",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			opponentJoined := make(chan model.OpponentInfo, 1)
			gameClient := newGameClient(relayclient.Handlers{
				OnOpponentJoined: func(opponent model.OpponentInfo) {
					select {
					case opponentJoined <- opponent:
					default:
					}
				},
			})
			defer func() { _ = gameClient.Close() }()

			if err := gameClient.Connect(cmd.Context()); err != nil {
				return err
			}

			assignment, err := gameClient.CreateRoom(cmd.Context(), model.RoomSettings{
				PointsToWin: points,
				GameMode:    model.GameMode(mode),
			})
			if err != nil {
				return err
			}
			out.Print(roomResult(assignment))

			if wait > 0 {
				out.PrintMessage(fmt.Sprintf("Waiting up to %s for an opponent...", wait))
				select {
				case opponent := <-opponentJoined:
					out.PrintMessage(fmt.Sprintf("Opponent joined: %s", opponent.Name))
				case <-time.After(wait):
					out.PrintMessage("No opponent joined")
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&points, "points", 11, "Points needed to win")
	cmd.Flags().StringVar(&mode, "mode", string(model.GameModeClassic), "Game mode: classic, chaos, clean")
	cmd.Flags().DurationVar(&wait, "wait", 0, "How long to keep the room open waiting for an opponent")
	return cmd
}

func newJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <room-code>",
		Short: "Join an existing room by code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameClient := newGameClient(relayclient.Handlers{})
			defer func() { _ = gameClient.Close() }()

			if err := gameClient.Connect(cmd.Context()); err != nil {
				return err
			}

			assignment, err := gameClient.JoinRoom(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(roomResult(assignment))
			return nil
		},
	}
}

func newQuickMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quickmatch",
		Short: "Queue for a match against the next waiting player",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			gameClient := newGameClient(relayclient.Handlers{
				OnMatchmaking: func(status model.MatchmakingStatusPayload) {
					out.PrintMessage(fmt.Sprintf("Waiting for a match (queue position %d)...", status.Position))
				},
			})
			defer func() { _ = gameClient.Close() }()

			if err := gameClient.Connect(cmd.Context()); err != nil {
				return err
			}

			assignment, err := gameClient.QuickMatch(cmd.Context())
			if err != nil {
				return err
			}

			out.Print(roomResult(assignment))
			return nil
		},
	}
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Measure round-trip latency to the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			latencies := make(chan time.Duration, 1)
			gameClient := newGameClient(relayclient.Handlers{
				OnLatency: func(latency time.Duration) {
					select {
					case latencies <- latency:
					default:
					}
				},
			})
			defer func() { _ = gameClient.Close() }()

			if err := gameClient.Connect(cmd.Context()); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			select {
			case latency := <-latencies:
				out.PrintMessage(fmt.Sprintf("Latency: %s", latency))
				return nil
			case <-ctx.Done():
				return fmt.Errorf("no pong received: %w", ctx.Err())
			}
		},
	}
}
