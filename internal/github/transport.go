package github

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// pacedTransport delays requests so the client never bursts past the
// configured request rate.
type pacedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
	log     zerolog.Logger
}

func newPacedTransport(base http.RoundTripper, rps float64, burst int, log zerolog.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if rps <= 0 {
		return base
	}
	if burst <= 0 {
		burst = 1
	}
	return &pacedTransport{
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log,
	}
}

func (t *pacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	if waited := time.Since(start); waited > 10*time.Millisecond {
		t.log.Debug().Dur("waited", waited).Str("path", req.URL.Path).Msg("request paced")
	}
	return t.base.RoundTrip(req)
}
