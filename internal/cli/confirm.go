package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ghgate/internal/confirm"
	"github.com/ppiankov/ghgate/internal/output"
	"github.com/ppiankov/ghgate/internal/policy"
)

var (
	confirmReason string
	confirmTarget string
	confirmTTL    time.Duration
)

func init() {
	rootCmd.AddCommand(confirmCmd)
	confirmCmd.AddCommand(confirmCreateCmd, confirmListCmd, confirmRevokeCmd)
	confirmCreateCmd.Flags().StringVar(&confirmReason, "reason", "", "Why this destructive operation is needed (required)")
	confirmCreateCmd.Flags().StringVar(&confirmTarget, "target", "", "Pin the token to one target: PR/issue number, comment id, branch name or bulk label")
	confirmCreateCmd.Flags().DurationVar(&confirmTTL, "ttl", confirm.DefaultTTL, "Token validity (max 1h)")
	_ = confirmCreateCmd.MarkFlagRequired("reason")
}

var confirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Manage confirmation tokens for destructive operations",
	Long: "When require_confirm_token is set, destructive operations need --write and\n" +
		"a single-use token passed as --confirm <id>.",
}

var confirmCreateCmd = &cobra.Command{
	Use:   "create <operation>",
	Short: "Issue a single-use confirmation token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		store, err := confirm.NewStore(confirm.DefaultDir())
		if err != nil {
			return err
		}
		target := confirmTargetFor(policy.Operation(args[0]), confirmTarget)
		token, err := store.Create(args[0], target, confirmReason, confirmTTL)
		if err != nil {
			return err
		}
		if e.out.JSON {
			return e.out.WriteJSON(token)
		}

		w := e.out.Writer()
		fmt.Fprintf(w, "Confirmation token issued: %s\n", token.ID)
		fmt.Fprintf(w, "Operation: %s\n", token.Operation)
		if token.Target != "" {
			fmt.Fprintf(w, "Target:    %s\n", token.Target)
		}
		fmt.Fprintf(w, "Expires:   %s\n", token.ExpiresAt.Format(time.RFC3339))
		fmt.Fprintf(w, "\nPass --write --confirm %s to run it once.\n", token.ID)
		return nil
	},
}

var confirmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List confirmation tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		store, err := confirm.NewStore(confirm.DefaultDir())
		if err != nil {
			return err
		}
		tokens, err := store.List()
		if err != nil {
			return err
		}
		if e.out.JSON {
			if tokens == nil {
				tokens = []confirm.Token{}
			}
			return e.out.WriteJSON(tokens)
		}
		if len(tokens) == 0 {
			_, err := fmt.Fprintln(e.out.Writer(), "No confirmation tokens.")
			return err
		}

		now := time.Now().UTC()
		t := output.NewTable(e.out.Writer(), "ID", "STATUS", "OPERATION", "TARGET", "REASON", "EXPIRES").SetMaxWidth(4, 30)
		for _, tok := range tokens {
			t.AddRow(tok.ID, tokenStatus(tok, now), tok.Operation, tok.Target, tok.Reason, tok.ExpiresAt.Format(time.RFC3339))
		}
		return t.Render()
	},
}

var confirmRevokeCmd = &cobra.Command{
	Use:   "revoke <token-id>",
	Short: "Revoke a confirmation token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		store, err := confirm.NewStore(confirm.DefaultDir())
		if err != nil {
			return err
		}
		if err := store.Revoke(args[0]); err != nil {
			return err
		}
		return e.done("Revoked %s", args[0])
	},
}

func tokenStatus(t confirm.Token, now time.Time) string {
	switch {
	case t.UsedAt != nil:
		return "used"
	case t.RevokedAt != nil:
		return "revoked"
	case !t.ActiveAt(now):
		return "expired"
	default:
		return "active"
	}
}
