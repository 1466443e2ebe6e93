package annotate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/varlab/vas/internal/vcf"
)

// RESTBackend annotates one variant per HTTP request against a VEP-style
// effect/frequency service and a ClinVar-style clinical service. All
// HTTP-level failures (timeout, non-2xx, malformed JSON) map to
// UnavailableError so callers never see backend-specific errors.
type RESTBackend struct {
	vepURL     string
	clinvarURL string
	httpClient *http.Client
	maxRetries uint64
	retryBase  time.Duration
	logger     *zap.Logger
}

// NewRESTBackend creates a REST backend. timeout bounds each HTTP request;
// the caller's context bounds the call as a whole.
func NewRESTBackend(vepURL, clinvarURL string, timeout time.Duration) *RESTBackend {
	return &RESTBackend{
		vepURL:     vepURL,
		clinvarURL: clinvarURL,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: 3,
		retryBase:  500 * time.Millisecond,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for request-level warnings.
func (b *RESTBackend) SetLogger(l *zap.Logger) {
	b.logger = l
}

func (b *RESTBackend) Mode() Mode { return ModeREST }

// Annotate fetches only the requested sources: the VEP endpoint is skipped
// unless effect or frequency is wanted, the ClinVar endpoint unless
// clinical is wanted.
func (b *RESTBackend) Annotate(ctx context.Context, v *vcf.Variant, include SourceSet) (*Result, error) {
	res := &Result{VariantID: v.ID, Mode: ModeREST}
	alt := v.Alts[0]

	if include.Has(SourceEffect) || include.Has(SourceFrequency) {
		url := fmt.Sprintf("%s/vep/human/region/%s:%d-%d/%s?content-type=application/json",
			b.vepURL, v.NormalizeChrom(), v.Pos, v.Pos, alt)

		var items []vepItem
		if err := b.getJSON(ctx, url, &items); err != nil {
			return nil, err
		}

		// Drop clinical from the VEP payload pass: REST mode sources it
		// from the dedicated endpoint below.
		effOnly := SourceSet{SourceEffect: include.Has(SourceEffect), SourceFrequency: include.Has(SourceFrequency)}
		applyVEP(res, items, effOnly)
		res.setRaw("vep", items)
	}

	if include.Has(SourceClinical) {
		url := fmt.Sprintf("%s/variation/%s:%d-%d:%s:%s?content-type=application/json",
			b.clinvarURL, v.NormalizeChrom(), v.Pos, v.Pos, v.Ref, alt)

		var payload clinvarPayload
		if err := b.getJSON(ctx, url, &payload); err != nil {
			return nil, err
		}

		res.ClinicalSignificance = payload.ClinicalSignificance
		res.setRaw("clinvar", payload)
	}

	return res, nil
}

// clinvarPayload is the ClinVar-style service response.
type clinvarPayload struct {
	ClinicalSignificance string   `json:"clinical_significance,omitempty"`
	ReviewStatus         string   `json:"review_status,omitempty"`
	Conditions           []string `json:"conditions,omitempty"`
	VariationID          string   `json:"variation_id,omitempty"`
}

// getJSON issues a GET and decodes the JSON body into target, retrying
// retryable statuses with exponential backoff. Every failure mode surfaces
// as UnavailableError.
func (b *RESTBackend) getJSON(ctx context.Context, url string, target any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(unavailable(ModeREST, "build request", err))
		}

		resp, err := b.httpClient.Do(req)
		if err != nil {
			return backoff.Permanent(unavailable(ModeREST, "request failed", err))
		}
		defer resp.Body.Close()

		if retryableStatus(resp.StatusCode) {
			b.logger.Warn("retrying annotation request",
				zap.String("url", url),
				zap.Int("status", resp.StatusCode))
			return unavailable(ModeREST, fmt.Sprintf("service returned status %d", resp.StatusCode), nil)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(unavailable(ModeREST, fmt.Sprintf("service returned status %d", resp.StatusCode), nil))
		}

		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return backoff.Permanent(unavailable(ModeREST, "malformed response body", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.retryBase
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, b.maxRetries), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		var unavail *UnavailableError
		if errors.As(err, &unavail) {
			return err
		}
		return unavailable(ModeREST, "request failed", err)
	}
	return nil
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
