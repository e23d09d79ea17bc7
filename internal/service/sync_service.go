package service

import (
	"context"

	"tillsync/internal/dto"
	"tillsync/internal/repository"

	"github.com/google/uuid"
)

// SyncService is the catch-up read path for disconnected terminals.
type SyncService interface {
	// DeltasSince returns mutation-log entries with sequence > since,
	// ascending. At-least-once is fine: consumers re-fetch full record
	// state, they never apply delta payloads.
	DeltasSince(ctx context.Context, tenantID uuid.UUID, filter dto.SyncFilter) (*dto.SyncResponse, error)
	// FetchRecord returns the current server state of one tracked record.
	FetchRecord(ctx context.Context, tenantID uuid.UUID, table string, recordID uuid.UUID) (map[string]interface{}, error)
}

type syncService struct {
	mutations repository.MutationLogRepository
	records   repository.RecordRepository
}

func NewSyncService(mutations repository.MutationLogRepository, records repository.RecordRepository) SyncService {
	return &syncService{mutations: mutations, records: records}
}

func (s *syncService) DeltasSince(ctx context.Context, tenantID uuid.UUID, filter dto.SyncFilter) (*dto.SyncResponse, error) {
	entries, err := s.mutations.DeltasSince(ctx, tenantID, filter.Since, filter.Limit)
	if err != nil {
		return nil, err
	}
	resp := &dto.SyncResponse{Entries: make([]dto.MutationEntryResponse, 0, len(entries)), Latest: filter.Since}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, dto.MutationEntryResponse{
			Sequence:   e.Sequence,
			TerminalID: e.TerminalID,
			Table:      e.Table,
			RecordID:   e.RecordID.String(),
			Operation:  e.Operation,
			CreatedAt:  e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
		if e.Sequence > resp.Latest {
			resp.Latest = e.Sequence
		}
	}
	return resp, nil
}

func (s *syncService) FetchRecord(ctx context.Context, tenantID uuid.UUID, table string, recordID uuid.UUID) (map[string]interface{}, error) {
	return s.records.Fetch(ctx, tenantID, table, recordID)
}
