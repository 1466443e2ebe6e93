package annotate

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/varlab/vas/internal/vcf"
)

// DefaultTimeout bounds a single backend call when the client is not
// configured otherwise.
const DefaultTimeout = 30 * time.Second

// Backend annotates a single variant. Implementations translate their
// source-specific payloads into the shared Result shape.
type Backend interface {
	Mode() Mode
	Annotate(ctx context.Context, v *vcf.Variant, include SourceSet) (*Result, error)
}

// Client dispatches annotation requests to the backend selected by mode.
type Client struct {
	backends map[Mode]Backend
	timeout  time.Duration
	logger   *zap.Logger
}

// NewClient creates a client over the given backends.
func NewClient(backends ...Backend) *Client {
	c := &Client{
		backends: make(map[Mode]Backend, len(backends)),
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
	}
	for _, b := range backends {
		c.backends[b.Mode()] = b
	}
	return c
}

// SetTimeout bounds each backend call. Zero or negative durations are ignored.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// SetLogger sets the logger for warning messages.
func (c *Client) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Annotate annotates one variant using the backend for mode. A call that
// exceeds the configured timeout surfaces as UnavailableError, never as a
// hang or a bare context error.
func (c *Client) Annotate(ctx context.Context, v *vcf.Variant, mode Mode, include SourceSet) (*Result, error) {
	backend, ok := c.backends[mode]
	if !ok {
		return nil, &UnsupportedModeError{Mode: string(mode)}
	}
	if len(include) == 0 {
		include = AllSources()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := backend.Annotate(ctx, v, include)
	if err != nil {
		var unavail *UnavailableError
		if errors.As(err, &unavail) {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, unavailable(mode, "call timed out", err)
		}
		return nil, unavailable(mode, "backend call failed", err)
	}

	c.logger.Debug("variant annotated",
		zap.String("variant_id", v.ID),
		zap.String("mode", string(mode)))

	return res, nil
}
