package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"tillsync/internal/dto"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Syncer runs the store-and-forward reconciliation for one terminal: buffer
// order submissions made while offline, replay them once connectivity
// returns, and keep the local record cache caught up with the server's
// change feed.
type Syncer struct {
	store    *Store
	api      ServerAPI
	tenantID string
	interval time.Duration

	// mu serializes sync cycles: the ticker may fire while a previous cycle
	// is still settling.
	mu sync.Mutex
}

func NewSyncer(store *Store, api ServerAPI, tenantID string, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Syncer{store: store, api: api, tenantID: tenantID, interval: interval}
}

// Submit sends the order to the server when online; otherwise it buffers the
// submission locally in pending state. A temp_id is assigned if the caller
// did not set one, so replaying the queue is always idempotent.
func (s *Syncer) Submit(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	if req.TempID == nil {
		id := uuid.NewString()
		req.TempID = &id
	}

	if s.api.Online(ctx) {
		resp, err := s.api.SubmitOrder(ctx, req)
		if err == nil {
			return resp, nil
		}
		log.Warn().Err(err).Str("temp_id", *req.TempID).Msg("online submit failed, buffering")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if err := s.store.Enqueue(&QueueEntry{
		TempID:   *req.TempID,
		TenantID: req.TenantID,
		Payload:  payload,
		Status:   EntryPending,
	}); err != nil {
		return nil, err
	}
	return nil, nil // queued, no server response yet
}

// Run drives push and pull on a fixed interval until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("syncer shutting down")
			return
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}

// SyncOnce runs one push+pull cycle. Safe to call concurrently with the
// ticker: overlapping cycles are serialized. Push and pull are independent;
// the idempotency token makes order submission commutative with catch-up
// reads, so no ordering between them is needed.
func (s *Syncer) SyncOnce(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.api.Online(ctx) {
		return
	}
	s.push(ctx)
	s.pull(ctx)
}

// push replays every pending queue entry against the ingestion endpoint.
// Acceptance deletes the entry; the server's idempotency check makes a
// duplicate submission harmless if the push itself is retried.
func (s *Syncer) push(ctx context.Context) {
	entries, err := s.store.Pending(s.tenantID)
	if err != nil {
		log.Error().Err(err).Msg("read pending queue")
		return
	}
	for _, e := range entries {
		if err := s.store.MarkSyncing(e.ID); err != nil {
			log.Error().Err(err).Uint("entry", e.ID).Msg("mark syncing")
			continue
		}
		var req dto.CreateOrderRequest
		if err := json.Unmarshal(e.Payload, &req); err != nil {
			_ = s.store.MarkFailed(e.ID, "corrupt payload: "+err.Error())
			continue
		}
		if _, err := s.api.SubmitOrder(ctx, req); err != nil {
			log.Warn().Err(err).Str("temp_id", e.TempID).Msg("push failed")
			_ = s.store.MarkFailed(e.ID, err.Error())
			continue
		}
		if err := s.store.DeleteEntry(e.ID); err != nil {
			log.Error().Err(err).Uint("entry", e.ID).Msg("delete synced entry")
		}
	}
}

// pull fetches mutation-log entries past the local watermark and refreshes
// the affected cached records. The watermark only advances after the whole
// batch has been applied.
func (s *Syncer) pull(ctx context.Context) {
	last, err := s.store.LastSequence(s.tenantID)
	if err != nil {
		log.Error().Err(err).Msg("read sync cursor")
		return
	}
	resp, err := s.api.DeltasSince(ctx, s.tenantID, last)
	if err != nil {
		// Watermark untouched: next cycle retries the same range.
		log.Warn().Err(err).Int64("since", last).Msg("pull failed")
		return
	}

	maxSeq := last
	for _, entry := range resp.Entries {
		if err := s.applyDelta(ctx, entry); err != nil {
			log.Warn().Err(err).Int64("sequence", entry.Sequence).Msg("apply delta failed, will retry batch")
			return
		}
		if entry.Sequence > maxSeq {
			maxSeq = entry.Sequence
		}
	}
	if maxSeq > last {
		if err := s.store.SetLastSequence(s.tenantID, maxSeq); err != nil {
			log.Error().Err(err).Msg("advance sync cursor")
		}
	}
}

// applyDelta is deliberately simple: deletions drop the cached record, every
// other operation re-fetches full server state and overwrites the cache.
// Re-read rather than patch — no conflict detection is needed because the
// server is the single authority.
func (s *Syncer) applyDelta(ctx context.Context, entry dto.MutationEntryResponse) error {
	if entry.Operation == "delete" {
		return s.store.DeleteRecord(entry.Table, entry.RecordID)
	}
	data, err := s.api.FetchRecord(ctx, s.tenantID, entry.Table, entry.RecordID)
	if errors.Is(err, ErrRecordGone) {
		return s.store.DeleteRecord(entry.Table, entry.RecordID)
	}
	if err != nil {
		return err
	}
	return s.store.UpsertRecord(&CachedRecord{
		TableName: entry.Table,
		RecordID:  entry.RecordID,
		TenantID:  s.tenantID,
		Data:      data,
	})
}
