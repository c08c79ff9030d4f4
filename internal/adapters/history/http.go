// Package history provides backfill.Source implementations.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/salesbonus/internal/domain/backfill"
	"github.com/okian/salesbonus/internal/domain/model"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 8 << 20
)

// ErrUnexpectedStatus is returned for a non-200 history response.
var ErrUnexpectedStatus = errors.New("history: unexpected status")

// HTTPSource reads channel history from an HTTP endpoint:
//
//	GET {base}?channel_id={id}&before={message id}&limit={n}
//	Authorization: Bearer {token}
//
// The response is a JSON array of messages, newest first.
type HTTPSource struct {
	Client    *http.Client
	BaseURL   string
	ChannelID string
	Token     string
}

// NewHTTPSource returns an HTTPSource with its own client bounded by timeout.
func NewHTTPSource(baseURL, channelID, token string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPSource{
		Client:    &http.Client{Timeout: timeout},
		BaseURL:   baseURL,
		ChannelID: channelID,
		Token:     token,
	}
}

// History implements backfill.Source.
func (s *HTTPSource) History(ctx context.Context, beforeID string, pageSize int) ([]model.Message, error) {
	if pageSize <= 0 || pageSize > backfill.MaxPageSize {
		pageSize = backfill.MaxPageSize
	}

	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("history: parse url: %w", err)
	}
	q := u.Query()
	q.Set("channel_id", s.ChannelID)
	q.Set("limit", strconv.Itoa(pageSize))
	if beforeID != "" {
		q.Set("before", beforeID)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history: request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var page []model.Message
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&page); err != nil {
		return nil, fmt.Errorf("history: decode page: %w", err)
	}
	if len(page) > pageSize {
		page = page[:pageSize]
	}
	return page, nil
}

var (
	_ backfill.Source = (*HTTPSource)(nil)
	_ backfill.Source = (*MemorySource)(nil)
)
