package model

import "time"

// PullRequest is the subset of pull request fields ghgate renders.
type PullRequest struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Author    string    `json:"author"`
	Head      string    `json:"head"`
	Base      string    `json:"base"`
	Draft     bool      `json:"draft"`
	Merged    bool      `json:"merged"`
	Mergeable *bool     `json:"mergeable,omitempty"`
	Labels    []string  `json:"labels"`
	Body      string    `json:"body,omitempty"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Issue is the subset of issue fields ghgate renders.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Author    string    `json:"author"`
	Labels    []string  `json:"labels"`
	Assignees []string  `json:"assignees"`
	Comments  int       `json:"comments"`
	Body      string    `json:"body,omitempty"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment is an issue or pull request conversation comment.
type Comment struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckRun is one check attached to a commit.
type CheckRun struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	URL        string `json:"url"`
}

// WorkflowRun is one GitHub Actions workflow run.
type WorkflowRun struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Branch     string    `json:"branch"`
	Event      string    `json:"event"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	HeadSHA    string    `json:"head_sha"`
	Attempt    int       `json:"attempt"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
}

// Label is a repository label.
type Label struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

// ProjectField is a single-select field of a Projects v2 board, such as
// Status. Its options play the role of board columns.
type ProjectField struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Options []ProjectOption `json:"options"`
}

// ProjectOption is one value of a single-select project field.
type ProjectOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectBoard is a Projects v2 board and its single-select fields.
type ProjectBoard struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Number int            `json:"number"`
	URL    string         `json:"url"`
	Fields []ProjectField `json:"fields"`
}

// MergeResult reports the outcome of a merge.
type MergeResult struct {
	Merged  bool   `json:"merged"`
	SHA     string `json:"sha"`
	Message string `json:"message"`
}
