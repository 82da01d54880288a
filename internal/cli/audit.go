package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ghgate/internal/audit"
)

var tailLines int

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 20, "Number of recent entries to show")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the gate decision log",
	Long:  "Commands for verifying and inspecting the hash-chained audit log.\nWithout a path the configured audit_log is used.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify hash chain integrity of an audit log",
	Long:  "Walks the JSONL audit log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail [path]",
	Short: "Show recent audit log entries",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditTail,
}

func auditPath(e *env, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if e.cfg.AuditLog == "" {
		return "", errors.New("audit log disabled: pass a path or set audit_log")
	}
	return expandHome(e.cfg.AuditLog), nil
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	path, err := auditPath(e, args)
	if err != nil {
		return err
	}

	result := audit.Verify(path)
	if e.out.JSON {
		if err := e.out.WriteJSON(result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(e.out.Writer(), "OK: %d entries verified\n", result.Lines)
	}
	if !result.Valid {
		if result.ErrorLine > 0 {
			return fmt.Errorf("audit chain broken at line %d: %s", result.ErrorLine, result.Error)
		}
		return fmt.Errorf("audit verify: %s", result.Error)
	}
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	path, err := auditPath(e, args)
	if err != nil {
		return err
	}

	entries, err := audit.Tail(path, tailLines)
	if err != nil {
		return err
	}
	if e.out.JSON {
		if entries == nil {
			entries = []audit.Entry{}
		}
		return e.out.WriteJSON(entries)
	}
	_, err = fmt.Fprint(e.out.Writer(), audit.FormatTimeline(entries))
	return err
}
