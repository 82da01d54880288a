package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/ppiankov/ghgate/internal/model"
)

// ErrNoRepo is returned by repository operations when no target is configured.
var ErrNoRepo = errors.New("no repository configured: pass --repo owner/name or set GH_REPO")

// Options configures a Client.
type Options struct {
	// Token is the API token. Empty means unauthenticated (60 requests/hour).
	Token string
	// Host is a GitHub Enterprise Server hostname. Empty means github.com.
	Host string
	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64
	Burst             int
	// MaxRetries bounds retries of mutations hit by secondary rate limits.
	MaxRetries int
	Logger     zerolog.Logger
}

// Client is the remote collaborator: a thin wrapper over go-github scoped
// to one repository. It never decides policy; callers gate before calling.
type Client struct {
	gh         *github.Client
	repo       model.Repo
	graphqlURL string
	retry      retrier
	log        zerolog.Logger
}

// NewClient creates a Client for repo. The repo may be zero for calls that
// are not repository-scoped (FetchQuota).
func NewClient(ctx context.Context, repo model.Repo, opts Options) (*Client, error) {
	httpClient := &http.Client{}
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	httpClient.Transport = newPacedTransport(httpClient.Transport, opts.RequestsPerSecond, opts.Burst, opts.Logger)

	gh := github.NewClient(httpClient)
	graphqlURL := "https://api.github.com/graphql"

	if opts.Host != "" {
		host := strings.TrimSuffix(strings.TrimPrefix(opts.Host, "https://"), "/")
		baseURL := "https://" + host
		var err error
		gh, err = gh.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub Enterprise client for %s: %w", host, err)
		}
		graphqlURL = baseURL + "/api/graphql"
	}

	return newClient(gh, repo, graphqlURL, opts), nil
}

func newClient(gh *github.Client, repo model.Repo, graphqlURL string, opts Options) *Client {
	return &Client{
		gh:         gh,
		repo:       repo,
		graphqlURL: graphqlURL,
		retry:      newRetrier(opts.MaxRetries, opts.Logger),
		log:        opts.Logger,
	}
}

// Repo returns the repository the client is scoped to.
func (c *Client) Repo() model.Repo {
	return c.repo
}

func (c *Client) requireRepo() error {
	if c.repo.IsZero() {
		return ErrNoRepo
	}
	return nil
}

// mutate runs a state-changing call with rate-limit retries.
func (c *Client) mutate(ctx context.Context, what string, fn func() error) error {
	if err := c.requireRepo(); err != nil {
		return err
	}
	attempts, err := c.retry.do(ctx, func() error {
		return ignoreAccepted(fn())
	})
	if attempts > 0 {
		c.log.Debug().Str("call", what).Int("retries", attempts).Msg("retried after rate limit")
	}
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// ignoreAccepted treats 202 Accepted (queued jobs such as run cancel) as success.
func ignoreAccepted(err error) error {
	var accepted *github.AcceptedError
	if errors.As(err, &accepted) {
		return nil
	}
	return err
}
