package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DirectoryConfig holds settings for the HTTP recipient directory.
type DirectoryConfig struct {
	BaseURL string        `env:"DIRECTORY_URL,required"`
	Token   string        `env:"DIRECTORY_TOKEN"`
	Timeout time.Duration `env:"DIRECTORY_TIMEOUT" envDefault:"5s"`
}

// HTTPDirectory resolves recipients from the user service over HTTP.
// It expects GET {base}/users/{id} to return a Recipient JSON body.
type HTTPDirectory struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPDirectory creates a directory client over the user service.
func NewHTTPDirectory(cfg DirectoryConfig) (*HTTPDirectory, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: directory base url is required", ErrInvalidConfig)
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPDirectory{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (d *HTTPDirectory) Recipient(ctx context.Context, userID string) (Recipient, error) {
	endpoint := d.baseURL + "/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Recipient{}, fmt.Errorf("failed to build directory request: %w", err)
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Recipient{}, fmt.Errorf("directory lookup failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Recipient{}, fmt.Errorf("%w: %s", ErrRecipientNotFound, userID)
	case resp.StatusCode != http.StatusOK:
		return Recipient{}, fmt.Errorf("directory returned %d for user %s", resp.StatusCode, userID)
	}

	var rcpt Recipient
	if err := json.NewDecoder(resp.Body).Decode(&rcpt); err != nil {
		return Recipient{}, fmt.Errorf("failed to decode directory response: %w", err)
	}
	if rcpt.UserID == "" {
		rcpt.UserID = userID
	}
	return rcpt, nil
}
