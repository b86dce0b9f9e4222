package translate

import (
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

// DeepLClient calls the DeepL v2 translation API.
type DeepLClient struct {
	apiKey    string
	baseURL   string
	formality string

	httpClient *http.Client
	logger     *slog.Logger
}

// NewDeepLClient constructs a client for the configured DeepL endpoint.
func NewDeepLClient(cfg config.DeepL, logger *slog.Logger) *DeepLClient {
	return &DeepLClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		formality:  cfg.Formality,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logging.NewComponentLogger(logger, "deepl"),
	}
}

// WithHTTPClient overrides the HTTP client, used by tests.
func (c *DeepLClient) WithHTTPClient(client *http.Client) {
	if c != nil && client != nil {
		c.httpClient = client
	}
}

// Translate posts the batch as form data. DeepL expects upper-case language
// codes and returns translations in request order.
func (c *DeepLClient) Translate(ctx context.Context, texts []string, sourceLanguage, targetLanguage string) ([]string, error) {
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "translate", "deepl", "missing API key", nil)
	}
	if len(texts) == 0 {
		return []string{}, nil
	}

	form := url.Values{}
	for _, text := range texts {
		form.Add("text", text)
	}
	form.Set("source_lang", strings.ToUpper(sourceLanguage))
	form.Set("target_lang", strings.ToUpper(targetLanguage))
	if c.formality != "" {
		form.Set("formality", c.formality)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug("translating batch",
		logging.Int("texts", len(texts)),
		logging.String("source", sourceLanguage),
		logging.String("target", targetLanguage),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "translate", "deepl", "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "translate", "deepl", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransient, "translate", "deepl",
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var parsed struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decode deepl response: %w", err)
	}

	translations := make([]string, 0, len(parsed.Translations))
	for _, t := range parsed.Translations {
		translations = append(translations, t.Text)
	}
	return translations, nil
}
