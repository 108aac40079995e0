package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// newLobbyCmd groups the commands used before a game starts
func newLobbyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "Open, find and join games",
	}

	cmd.AddCommand(newLobbyCreateCmd())
	cmd.AddCommand(newLobbyListCmd())
	cmd.AddCommand(newLobbyJoinCmd())
	cmd.AddCommand(newLobbyReadyCmd())
	cmd.AddCommand(newLobbyStartCmd())

	return cmd
}

func newLobbyCreateCmd() *cobra.Command {
	var duration int
	var public bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new game as host",
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := cfg.RequirePlayer()
			if err != nil {
				return err
			}

			req := map[string]any{
				"hostPlayerId": playerID,
				"turnDuration": duration,
				"isPublic":     public,
			}
			var result CreatedGame

			if err := client.Post("/games", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&duration, "duration", 30, "Turn duration in seconds")
	cmd.Flags().BoolVar(&public, "public", true, "List the game publicly")

	return cmd
}

func newLobbyListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List public games waiting for an opponent",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/games"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}

			var result []GameSummary
			if err := client.Get(path, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of games (0 for server default)")

	return cmd
}

func newLobbyJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <roomCode>",
		Short: "Join a game by its room code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result GameState
			if err := postAsPlayer("/games/"+url.PathEscape(args[0])+"/join", nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newLobbyReadyCmd() *cobra.Command {
	var notReady bool

	cmd := &cobra.Command{
		Use:   "ready <gameId>",
		Short: "Mark yourself ready (or not) to start",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Member
			body := map[string]any{"isReady": !notReady}
			if err := postAsPlayer(gamePath(args[0], "ready"), body, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&notReady, "not", false, "Withdraw readiness")

	return cmd
}

func newLobbyStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <gameId>",
		Short: "Start the game (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result GameState
			if err := postAsPlayer(gamePath(args[0], "start"), nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

// postAsPlayer sends body with the acting player's id added as playerId
func postAsPlayer(path string, body map[string]any, result any) error {
	playerID, err := cfg.RequirePlayer()
	if err != nil {
		return err
	}
	if body == nil {
		body = map[string]any{}
	}
	body["playerId"] = playerID
	return client.Post(path, body, result)
}

func gamePath(gameID, action string) string {
	return fmt.Sprintf("/games/%s/%s", url.PathEscape(gameID), action)
}
