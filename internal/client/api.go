package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tillsync/internal/dto"
)

// ServerAPI is the slice of the server surface the sync loop depends on.
// Tests substitute an in-memory fake.
type ServerAPI interface {
	SubmitOrder(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, error)
	DeltasSince(ctx context.Context, tenantID string, since int64) (*dto.SyncResponse, error)
	FetchRecord(ctx context.Context, tenantID, table, recordID string) (json.RawMessage, error)
	// Online probes connectivity; the sync loop is a no-op while offline.
	Online(ctx context.Context) bool
}

// ErrRecordGone is how FetchRecord reports a record deleted on the server
// between the delta and the re-fetch; callers drop the cached copy.
var ErrRecordGone = fmt.Errorf("record gone")

// HTTPAPI talks to the tillsync server over its JSON HTTP surface.
type HTTPAPI struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPAPI(baseURL string) *HTTPAPI {
	return &HTTPAPI{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *HTTPAPI) SubmitOrder(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := a.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	// 200 = idempotency hit, 201 = created; both are acceptance.
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("submit rejected: %d %s", res.StatusCode, msg)
	}
	var resp dto.OrderResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *HTTPAPI) DeltasSince(ctx context.Context, tenantID string, since int64) (*dto.SyncResponse, error) {
	url := fmt.Sprintf("%s/v1/sync?since=%d", a.BaseURL, since)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	res, err := a.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("sync failed: %d %s", res.StatusCode, msg)
	}
	var resp dto.SyncResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *HTTPAPI) FetchRecord(ctx context.Context, tenantID, table, recordID string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/v1/records/%s/%s", a.BaseURL, table, recordID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	res, err := a.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, ErrRecordGone
	}
	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("record fetch failed: %d %s", res.StatusCode, msg)
	}
	return io.ReadAll(res.Body)
}

func (a *HTTPAPI) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	res, err := a.Client.Do(httpReq)
	if err != nil {
		return false
	}
	res.Body.Close()
	return res.StatusCode == http.StatusOK
}
