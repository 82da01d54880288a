package github

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/ghgate/internal/model"
)

const projectFieldsQuery = `query($id: ID!) {
  node(id: $id) {
    ... on ProjectV2 {
      id
      title
      number
      url
      fields(first: 50) {
        nodes {
          ... on ProjectV2SingleSelectField { id name options { id name } }
        }
      }
    }
  }
}`

const addProjectItemMutation = `mutation($project: ID!, $content: ID!) {
  addProjectV2ItemById(input: {projectId: $project, contentId: $content}) { item { id } }
}`

const setItemOptionMutation = `mutation($project: ID!, $item: ID!, $field: ID!, $option: String!) {
  updateProjectV2ItemFieldValue(input: {projectId: $project, itemId: $item, fieldId: $field, value: {singleSelectOptionId: $option}}) {
    projectV2Item { id }
  }
}`

// ErrNotProject is returned when a node ID does not resolve to a Projects v2 board.
var ErrNotProject = errors.New("node is not a Projects v2 board")

// GetProject loads a Projects v2 board and its single-select fields.
// Fields of other types (text, date, iteration) are skipped.
func (c *Client) GetProject(ctx context.Context, projectID string) (*model.ProjectBoard, error) {
	var data struct {
		Node *struct {
			ID     string `json:"id"`
			Title  string `json:"title"`
			Number int    `json:"number"`
			URL    string `json:"url"`
			Fields struct {
				Nodes []struct {
					ID      string                `json:"id"`
					Name    string                `json:"name"`
					Options []model.ProjectOption `json:"options"`
				} `json:"nodes"`
			} `json:"fields"`
		} `json:"node"`
	}
	payload := map[string]any{
		"query":     projectFieldsQuery,
		"variables": map[string]any{"id": projectID},
	}
	if err := c.graphql(ctx, payload, &data); err != nil {
		return nil, fmt.Errorf("get project %s: %w", projectID, err)
	}
	if data.Node == nil || data.Node.ID == "" {
		return nil, fmt.Errorf("get project %s: %w", projectID, ErrNotProject)
	}

	board := &model.ProjectBoard{
		ID:     data.Node.ID,
		Title:  data.Node.Title,
		Number: data.Node.Number,
		URL:    data.Node.URL,
		Fields: []model.ProjectField{},
	}
	for _, f := range data.Node.Fields.Nodes {
		// Non single-select fields come back as empty objects.
		if f.ID == "" {
			continue
		}
		board.Fields = append(board.Fields, model.ProjectField{ID: f.ID, Name: f.Name, Options: f.Options})
	}
	return board, nil
}

// ProjectMove describes a move of one item to a single-select option.
// Either ItemID (a ProjectV2Item node ID) or Number (an issue or pull
// request in the client's repository) must be set.
type ProjectMove struct {
	ProjectID string
	FieldID   string
	OptionID  string
	ItemID    string
	Number    int
}

// MoveItem sets the item's single-select field to the given option. A
// Number is first added to the board, which returns the existing item when
// it is already there. Returns the item ID.
func (c *Client) MoveItem(ctx context.Context, m ProjectMove) (string, error) {
	if m.ProjectID == "" || m.FieldID == "" || m.OptionID == "" {
		return "", errors.New("project move needs a project, a field and an option id")
	}

	itemID := m.ItemID
	if itemID == "" {
		if m.Number <= 0 {
			return "", errors.New("project move needs an item id or an issue number")
		}
		id, err := c.addToProject(ctx, m.ProjectID, m.Number)
		if err != nil {
			return "", err
		}
		itemID = id
	}

	payload := map[string]any{
		"query": setItemOptionMutation,
		"variables": map[string]any{
			"project": m.ProjectID,
			"item":    itemID,
			"field":   m.FieldID,
			"option":  m.OptionID,
		},
	}
	if err := c.graphqlWithRetry(ctx, "move item "+itemID, payload, nil); err != nil {
		return "", err
	}
	return itemID, nil
}

// addToProject resolves issue or pull request #number to its node ID and
// adds it to the board.
func (c *Client) addToProject(ctx context.Context, projectID string, number int) (string, error) {
	if err := c.requireRepo(); err != nil {
		return "", err
	}
	// The issues endpoint also serves pull requests.
	issue, _, err := c.gh.Issues.Get(ctx, c.repo.Owner, c.repo.Name, number)
	if err != nil {
		return "", fmt.Errorf("get #%d: %w", number, err)
	}

	var data struct {
		Add struct {
			Item struct {
				ID string `json:"id"`
			} `json:"item"`
		} `json:"addProjectV2ItemById"`
	}
	payload := map[string]any{
		"query":     addProjectItemMutation,
		"variables": map[string]any{"project": projectID, "content": issue.GetNodeID()},
	}
	if err := c.graphqlWithRetry(ctx, fmt.Sprintf("add #%d to project", number), payload, &data); err != nil {
		return "", err
	}
	if data.Add.Item.ID == "" {
		return "", fmt.Errorf("add #%d to project: no item returned", number)
	}
	return data.Add.Item.ID, nil
}

// graphqlWithRetry runs a GraphQL mutation with rate-limit retries. Unlike
// mutate it does not need a repository.
func (c *Client) graphqlWithRetry(ctx context.Context, what string, payload map[string]any, out any) error {
	attempts, err := c.retry.do(ctx, func() error {
		return c.graphql(ctx, payload, out)
	})
	if attempts > 0 {
		c.log.Debug().Str("call", what).Int("retries", attempts).Msg("retried after rate limit")
	}
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
