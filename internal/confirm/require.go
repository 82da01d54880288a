package confirm

import (
	"fmt"

	"github.com/ppiankov/ghgate/internal/policy"
)

// RequiredError is returned when a destructive operation lacks a valid
// confirmation token.
type RequiredError struct {
	Operation string
	Target    string
	TokenID   string
	Reason    string
}

func (e *RequiredError) Error() string {
	if e.TokenID == "" {
		return fmt.Sprintf("%s requires a confirmation token\n  → run: ghgate confirm create %s --reason \"...\" and pass --confirm <id>",
			e.Operation, e.Operation)
	}
	return fmt.Sprintf("confirmation token %s rejected for %s: %s", e.TokenID, e.Operation, e.Reason)
}

// Require consumes tokenID for operation on target. Non-destructive
// operations pass untouched. A nil store fails closed.
func Require(store *Store, operation, target, tokenID string) (*Token, error) {
	if policy.TierOf(operation) != policy.Destructive {
		return nil, nil
	}
	if tokenID == "" {
		return nil, &RequiredError{Operation: operation, Target: target}
	}
	if store == nil {
		return nil, &RequiredError{Operation: operation, Target: target, TokenID: tokenID, Reason: "no token store"}
	}
	token, err := store.Consume(tokenID, operation, target)
	if err != nil {
		return nil, &RequiredError{Operation: operation, Target: target, TokenID: tokenID, Reason: err.Error()}
	}
	return token, nil
}
