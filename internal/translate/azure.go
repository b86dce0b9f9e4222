package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"subforge/internal/config"
	"subforge/internal/logging"
	"subforge/internal/services"
)

// AzureClient calls the Azure Translator text API.
type AzureClient struct {
	apiKey     string
	baseURL    string
	region     string
	apiVersion string
	// retryDelays is the sleep schedule between attempts; the request is
	// retried only on HTTP 429, once per delay.
	retryDelays []time.Duration

	httpClient *http.Client
	logger     *slog.Logger
}

// NewAzureClient constructs a client for the configured Azure endpoint.
func NewAzureClient(cfg config.Azure, logger *slog.Logger) *AzureClient {
	delays := make([]time.Duration, 0, len(cfg.RetryDelaysMS))
	for _, ms := range cfg.RetryDelaysMS {
		if ms >= 0 {
			delays = append(delays, time.Duration(ms)*time.Millisecond)
		}
	}
	return &AzureClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		region:      cfg.Region,
		apiVersion:  cfg.APIVersion,
		retryDelays: delays,
		httpClient:  &http.Client{Timeout: 2 * time.Minute},
		logger:      logging.NewComponentLogger(logger, "azure-translator"),
	}
}

// WithHTTPClient overrides the HTTP client, used by tests.
func (c *AzureClient) WithHTTPClient(client *http.Client) {
	if c != nil && client != nil {
		c.httpClient = client
	}
}

type azureTranslation struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

// Translate posts the batch as JSON. Rate-limit responses are retried on the
// configured delay schedule; any other failure surfaces immediately.
func (c *AzureClient) Translate(ctx context.Context, texts []string, sourceLanguage, targetLanguage string) ([]string, error) {
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "translate", "azure", "missing API key", nil)
	}
	if len(texts) == 0 {
		return []string{}, nil
	}

	type textItem struct {
		Text string `json:"Text"`
	}
	items := make([]textItem, len(texts))
	for i, text := range texts {
		items[i] = textItem{Text: text}
	}
	body, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	query := url.Values{}
	query.Set("api-version", c.apiVersion)
	query.Set("from", strings.ToLower(sourceLanguage))
	query.Set("to", strings.ToLower(targetLanguage))
	endpoint := c.baseURL + "/translate?" + query.Encode()

	attempts := len(c.retryDelays) + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.logger.Warn("rate limited, backing off",
				logging.Int("attempt", attempt+1),
				logging.Duration("delay", c.retryDelays[attempt-1]),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelays[attempt-1]):
			}
		}

		translations, retryable, err := c.post(ctx, endpoint, body, len(texts))
		if err == nil {
			return translations, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *AzureClient) post(ctx context.Context, endpoint string, body []byte, batchSize int) (translations []string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.region != "" {
		req.Header.Set("Ocp-Apim-Subscription-Region", c.region)
	}

	c.logger.Debug("translating batch", logging.Int("texts", batchSize))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, services.Wrap(services.ErrTransient, "translate", "azure", "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, services.Wrap(services.ErrTransient, "translate", "azure", "read response", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, services.Wrap(services.ErrTransient, "translate", "azure", "rate limited", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, services.Wrap(services.ErrTransient, "translate", "azure",
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var parsed []azureTranslation
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, false, fmt.Errorf("decode azure response: %w", err)
	}

	translations = make([]string, 0, len(parsed))
	for _, item := range parsed {
		if len(item.Translations) == 0 {
			translations = append(translations, "")
			continue
		}
		translations = append(translations, item.Translations[0].Text)
	}
	return translations, false, nil
}
