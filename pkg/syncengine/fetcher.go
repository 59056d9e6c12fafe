package syncengine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Fetcher retrieves a room's authoritative content over REST. Used for full
// re-hydration after an invalidation when the live channel cannot be
// re-established, and on a first-ever open with no cache.
type Fetcher interface {
	Fetch(ctx context.Context, room RoomID) (state []byte, version uint64, err error)
}

// HTTPFetcher hits the document API's show endpoint.
type HTTPFetcher struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPFetcher(baseURL, token string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, room RoomID) ([]byte, uint64, error) {
	docID, err := room.DocumentID()
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/document/v1/"+docID.String(), nil)
	if err != nil {
		return nil, 0, err
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("document fetch for %s: status %d", room, resp.StatusCode)
	}

	var envelope struct {
		Data struct {
			ContentState []byte `json:"content_state"`
			Version      uint64 `json:"version"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, 0, err
	}
	return envelope.Data.ContentState, envelope.Data.Version, nil
}
