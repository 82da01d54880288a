// ghgate is a safety-gated GitHub CLI. Reads always run; writes and
// destructive operations need --write.
package main

import "github.com/ppiankov/ghgate/internal/cli"

func main() {
	cli.Execute()
}
