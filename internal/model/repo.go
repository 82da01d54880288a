package model

import (
	"fmt"
	"strings"
)

// Repo identifies a repository by owner and name.
type Repo struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// ParseRepo splits "owner/name" into a Repo.
// A leading host segment ("github.com/owner/name") is tolerated and dropped.
func ParseRepo(s string) (Repo, error) {
	s = strings.TrimSpace(strings.TrimSuffix(s, ".git"))
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) == 3 && strings.Contains(parts[0], ".") {
		parts = parts[1:]
	}
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, fmt.Errorf("repository must be in format owner/name, got %q", s)
	}
	return Repo{Owner: parts[0], Name: parts[1]}, nil
}

// IsZero reports whether the repo is unset.
func (r Repo) IsZero() bool {
	return r.Owner == "" && r.Name == ""
}

func (r Repo) String() string {
	if r.IsZero() {
		return ""
	}
	return r.Owner + "/" + r.Name
}
