package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
)

const (
	// Generation settings tuned for deterministic field extraction.
	temperature     = 0.1
	maxOutputTokens = 2000

	// Bounded retry policy for the service call: the original design was a
	// silent single attempt; transient transport and quota errors now get a
	// short exponential backoff instead.
	maxRetries      = 2
	initialInterval = 2 * time.Second
)

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Client implements repository.ExtractorRepository against the
// generateContent REST endpoint.
type Client struct {
	http   *resty.Client
	apiKey string
	model  string
	loc    *time.Location
}

var _ repository.ExtractorRepository = (*Client)(nil)

// NewClient builds an extractor client. Records it produces carry
// timestamps in loc.
func NewClient(baseURL, apiKey, model string, loc *time.Location) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		apiKey: apiKey,
		model:  model,
		loc:    loc,
	}
}

// Extract sends the rendered page to the model and decodes the JSON object
// it returns into a record. The service gives no schema guarantee, so the
// response is defensively re-parsed; any unrecoverable response yields an
// error and the caller substitutes a fallback record.
func (c *Client) Extract(ctx context.Context, pageURL string, page *entity.PageContent, fields []string) (*entity.ExtractedRecord, error) {
	prompt := buildPrompt(pageURL, page, fields)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	values, err := decodeFields(text, fields)
	if err != nil {
		slog.Error("Failed to decode extraction response", "url", pageURL, "error", err,
			"response_head", head(text, 500))
		return nil, err
	}

	return &entity.ExtractedRecord{
		SourceURL: pageURL,
		ScrapedAt: time.Now().In(c.loc),
		Status:    entity.StatusSuccess,
		Fields:    values,
	}, nil
}

// generate performs the REST call with bounded exponential backoff on
// transport errors, 429s, and 5xx responses.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxOutputTokens,
		},
	}

	var text string
	operation := func() error {
		var result generateResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("key", c.apiKey).
			SetBody(req).
			SetResult(&result).
			Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.model))
		if err != nil {
			return fmt.Errorf("extraction request failed: %w", err)
		}
		if resp.StatusCode() == 429 || resp.StatusCode() >= 500 {
			return fmt.Errorf("extraction service returned status %d", resp.StatusCode())
		}
		if resp.IsError() {
			return backoff.Permanent(fmt.Errorf("extraction service returned status %d: %s",
				resp.StatusCode(), head(resp.String(), 200)))
		}

		text = firstCandidateText(&result)
		if text == "" {
			return backoff.Permanent(repository.ErrEmptyResponse)
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialInterval
	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
	if err != nil {
		return "", err
	}
	return text, nil
}

func firstCandidateText(resp *generateResponse) string {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
