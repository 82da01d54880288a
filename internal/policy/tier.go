package policy

import "fmt"

// Tier is the risk classification of a remote operation. Higher tier =
// more damage if run by mistake.
type Tier int

const (
	// Read has no side effects on remote state.
	Read Tier = iota
	// Write mutates remote state but is reversible or low-blast-radius.
	Write
	// Destructive is hard to reverse or changes history/visibility.
	Destructive
)

// String returns the lowercase tier label.
func (t Tier) String() string {
	switch t {
	case Read:
		return "read"
	case Write:
		return "write"
	case Destructive:
		return "destructive"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// MarshalText renders the tier label in JSON and YAML output.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseTier maps a label back to a Tier. Fail-closed: unknown → Write.
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "read":
		return Read, true
	case "write":
		return Write, true
	case "destructive":
		return Destructive, true
	default:
		return Write, false
	}
}

// RequiresWrite reports whether the tier is gated by the write flag.
func (t Tier) RequiresWrite() bool {
	return t != Read
}
