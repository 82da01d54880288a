package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ghgate/internal/config"
	"github.com/ppiankov/ghgate/internal/redact"
)

var (
	flagRepo    string
	flagHost    string
	flagConfig  string
	flagWrite   bool
	flagJSON    bool
	flagVerbose bool
	flagQuiet   bool
	flagConfirm string
)

var rootCmd = &cobra.Command{
	Use:   "ghgate",
	Short: "Safety-gated GitHub CLI for humans and agents",
	Long: "Every pull request, issue, workflow run and project operation passes a\n" +
		"safety gate before it reaches GitHub. Read operations always run; write and\n" +
		"destructive operations need --write. List operations check API quota first.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagRepo, "repo", "R", "", "Target repository (owner/name)")
	pf.StringVar(&flagHost, "host", "", "GitHub Enterprise Server hostname")
	pf.StringVar(&flagConfig, "config", "", "Config file (default ~/.ghgate/config.yaml)")
	pf.BoolVar(&flagWrite, "write", false, "Allow write and destructive operations")
	pf.BoolVar(&flagJSON, "json", false, "Print JSON output")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors")
	pf.StringVar(&flagConfirm, "confirm", "", "Confirmation token for destructive operations")
}

// Execute runs the root command and exits with a code derived from the error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", scrub(err))
		os.Exit(ExitCode(err))
	}
}

// scrub removes the active token and anything credential-shaped from an
// error message. go-github errors echo request URLs.
func scrub(err error) string {
	return redact.Literal(redact.String(err.Error()), config.Token())
}
