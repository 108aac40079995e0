package cli

import (
	"github.com/spf13/cobra"
)

// newGameCmd groups the commands used while a game is running
func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Play a running game",
	}

	cmd.AddCommand(newGameStateCmd())
	cmd.AddCommand(newGameGuessCmd())
	cmd.AddCommand(newGameTimeoutCmd())
	cmd.AddCommand(newGameHeartbeatCmd())
	cmd.AddCommand(newGameLeaveCmd())

	return cmd
}

func newGameStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <gameId>",
		Short: "Show the game, its players and guesses closest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result GameState
			if err := client.Get(gamePath(args[0], "state"), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newGameGuessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guess <gameId> <word>",
		Short: "Guess a word on your turn",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result GuessResult
			body := map[string]any{"word": args[1]}
			if err := postAsPlayer(gamePath(args[0], "guess"), body, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newGameTimeoutCmd() *cobra.Command {
	var turn int

	cmd := &cobra.Command{
		Use:   "timeout <gameId>",
		Short: "Report that the current turn has run out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TimeoutResult
			body := map[string]any{}
			if turn > 0 {
				body["turnNumber"] = turn
			}
			if err := postAsPlayer(gamePath(args[0], "timeout"), body, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&turn, "turn", 0, "Turn number that expired (0 for the current turn)")

	return cmd
}

func newGameHeartbeatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat <gameId>",
		Short: "Tell the server you are still connected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result GameState
			if err := postAsPlayer(gamePath(args[0], "heartbeat"), nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newGameLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <gameId>",
		Short: "Leave the game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := postAsPlayer(gamePath(args[0], "leave"), nil, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Left game")
			return nil
		},
	}
}
