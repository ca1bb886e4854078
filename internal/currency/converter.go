package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DeveloperTWH/crownstandard-backend/internal/config"
	"go.uber.org/zap"
)

// Converter turns an amount in one currency into another. Implementations
// must be safe for concurrent use.
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

var ErrConversionUnavailable = errors.New("conversion_unavailable")

// fixerConverter calls an apilayer/fixer-style convert endpoint.
type fixerConverter struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewConverter builds the FX client. With no API key configured every
// conversion reports ErrConversionUnavailable and the normalizer applies
// its documented 1:1 fallback.
func NewConverter(cfg config.Config, log *zap.Logger) Converter {
	return &fixerConverter{
		apiKey:  cfg.FXAPIKey,
		baseURL: cfg.FXAPIURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.Named("currency.fx"),
	}
}

type fixerResponse struct {
	Success bool    `json:"success"`
	Result  float64 `json:"result"`
}

func (c *fixerConverter) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if c.apiKey == "" {
		return 0, ErrConversionUnavailable
	}

	query := url.Values{}
	query.Set("from", strings.ToUpper(from))
	query.Set("to", strings.ToUpper(to))
	query.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConversionUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrConversionUnavailable, resp.StatusCode)
	}

	var parsed fixerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConversionUnavailable, err)
	}
	if !parsed.Success || parsed.Result <= 0 {
		return 0, ErrConversionUnavailable
	}
	return parsed.Result, nil
}
