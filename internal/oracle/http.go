package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"raffle/internal/models"

	"github.com/google/logger"
)

// HTTPCoordinator forwards requests to a remote coordinator. The remote side
// answers later by calling CallbackURL with the request id and random words.
type HTTPCoordinator struct {
	httpClient  *http.Client
	Endpoint    string
	CallbackURL string
}

func NewHTTPCoordinator(endpoint, callbackURL string) *HTTPCoordinator {
	return &HTTPCoordinator{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		Endpoint:    endpoint,
		CallbackURL: callbackURL,
	}
}

type remoteRequest struct {
	RequestParams
	CallbackURL string `json:"callbackUrl"`
}

type remoteResponse struct {
	RequestID models.RequestID `json:"requestId"`
}

func (c *HTTPCoordinator) RequestRandomWords(ctx context.Context, params RequestParams) (models.RequestID, error) {
	if err := params.validate(); err != nil {
		return 0, err
	}

	body, err := json.Marshal(remoteRequest{RequestParams: params, CallbackURL: c.CallbackURL})
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post to coordinator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("coordinator returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode coordinator response: %w", err)
	}
	if out.RequestID == 0 {
		return 0, fmt.Errorf("coordinator returned request id 0")
	}

	logger.Infof("coordinator accepted request, id=%d", out.RequestID)
	return out.RequestID, nil
}
