package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"selfplay/communication"
)

var ErrNoStatus = errors.New("no status published yet")

type StatusClient struct {
	serverURL  string
	httpClient *http.Client
}

// NewStatusClient takes the base URL of a status server, with or without a scheme.
func NewStatusClient(serverURL string) *StatusClient {
	if !strings.Contains(serverURL, "://") {
		serverURL = "http://" + serverURL
	}
	return &StatusClient{
		serverURL:  strings.TrimSuffix(serverURL, "/"),
		httpClient: http.DefaultClient,
	}
}

func (sc *StatusClient) GetStatus(ctx context.Context) (*communication.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.serverURL+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNoStatus
	default:
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	var status communication.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &status, nil
}
