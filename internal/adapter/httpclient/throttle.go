package httpclient

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
)

// throttle is an http.RoundTripper, using the time/rate token
// bucket limiter to restrict outbound calls.
type throttle struct {
	limiter *rate.Limiter
	next    http.RoundTripper
	logger  *zap.Logger
}

// NewThrottle wraps next with a token bucket of rps requests per second.
// A burst below 1 is raised to 1.
func NewThrottle(rps, burst int, logger *zap.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if rps <= 0 {
		return nil, fmt.Errorf("rps %w", ErrMustNotBeZero)
	}
	if burst < 1 {
		burst = 1
	}
	if next == nil {
		next = http.DefaultTransport
	}

	return &throttle{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		next:    next,
		logger:  logger,
	}, nil
}

func (t *throttle) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.limiter.Allow() {
		t.logger.Debug("throttling request", zap.String("url", req.URL.Redacted()))
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
		}
	}
	return t.next.RoundTrip(req)
}
