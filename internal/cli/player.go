package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player profile commands",
	}

	cmd.AddCommand(newPlayerCreateCmd())
	cmd.AddCommand(newPlayerGetCmd())
	cmd.AddCommand(newPlayerUpdateCmd())

	return cmd
}

func newPlayerCreateCmd() *cobra.Command {
	var nickname, color string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a player and remember it for later commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"nickname":    nickname,
				"avatarColor": color,
			}
			var result Player

			if err := client.Post("/players", req, &result); err != nil {
				return err
			}

			if err := cfg.SavePlayer(result.ID); err != nil {
				return fmt.Errorf("failed to save player: %w", err)
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&nickname, "nickname", "", "Nickname (required)")
	cmd.Flags().StringVar(&color, "color", "", "Avatar color as #rrggbb (random if empty)")
	_ = cmd.MarkFlagRequired("nickname")

	return cmd
}

func newPlayerGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [playerId]",
		Short: "Show a player's profile (defaults to the current player)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := cfg.PlayerID
			if len(args) == 1 {
				id = args[0]
			}
			if id == "" {
				_, err := cfg.RequirePlayer()
				return err
			}

			var result Player
			if err := client.Get("/players/"+url.PathEscape(id), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newPlayerUpdateCmd() *cobra.Command {
	var nickname, color string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change the current player's nickname or color",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cfg.RequirePlayer()
			if err != nil {
				return err
			}
			if nickname == "" && color == "" {
				return fmt.Errorf("--nickname or --color is required")
			}

			req := map[string]string{}
			if nickname != "" {
				req["nickname"] = nickname
			}
			if color != "" {
				req["avatarColor"] = color
			}
			var result Player

			if err := client.Patch("/players/"+url.PathEscape(id), req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&nickname, "nickname", "", "New nickname")
	cmd.Flags().StringVar(&color, "color", "", "New avatar color as #rrggbb")

	return cmd
}
