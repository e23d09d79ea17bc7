package client_test

import (
	"fmt"
	"testing"

	"tillsync/internal/client"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UpsertOverwritesWholesale(t *testing.T) {
	store := newTestStore(t)
	id := uuid.NewString()

	require.NoError(t, store.UpsertRecord(&client.CachedRecord{
		TableName: "customers", RecordID: id, TenantID: "t1", Data: []byte(`{"points":10}`),
	}))
	require.NoError(t, store.UpsertRecord(&client.CachedRecord{
		TableName: "customers", RecordID: id, TenantID: "t1", Data: []byte(`{"points":25}`),
	}))

	rec, err := store.GetRecord("customers", id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"points":25}`, string(rec.Data))
}

func TestStore_RecordsKeyedByTable(t *testing.T) {
	store := newTestStore(t)
	id := uuid.NewString()

	require.NoError(t, store.UpsertRecord(&client.CachedRecord{
		TableName: "orders", RecordID: id, TenantID: "t1", Data: []byte(`{"kind":"order"}`),
	}))
	require.NoError(t, store.UpsertRecord(&client.CachedRecord{
		TableName: "products", RecordID: id, TenantID: "t1", Data: []byte(`{"kind":"product"}`),
	}))

	rec, err := store.GetRecord("orders", id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"order"}`, string(rec.Data))
}

func TestStore_CursorStartsAtZero(t *testing.T) {
	store := newTestStore(t)

	last, err := store.LastSequence("fresh-tenant")
	require.NoError(t, err)
	assert.Zero(t, last)

	require.NoError(t, store.SetLastSequence("fresh-tenant", 3))
	require.NoError(t, store.SetLastSequence("fresh-tenant", 8))
	last, err = store.LastSequence("fresh-tenant")
	require.NoError(t, err)
	assert.Equal(t, int64(8), last)
}

func TestStore_ReopenRecoversStuckSyncingEntries(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	store, err := client.OpenStore(dsn)
	require.NoError(t, err)

	entry := &client.QueueEntry{TempID: uuid.NewString(), TenantID: "t1", Payload: []byte(`{}`)}
	require.NoError(t, store.Enqueue(entry))
	require.NoError(t, store.MarkSyncing(entry.ID))
	pending, err := store.Pending("t1")
	require.NoError(t, err)
	require.Empty(t, pending)

	// The process dies mid-push; the next start must put the entry back in
	// line — the idempotency token makes the re-submission safe.
	reopened, err := client.OpenStore(dsn)
	require.NoError(t, err)
	pending, err = reopened.Pending("t1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, client.EntryPending, pending[0].Status)
}

func TestStore_DuplicateTempIDRejected(t *testing.T) {
	store := newTestStore(t)
	tempID := uuid.NewString()

	require.NoError(t, store.Enqueue(&client.QueueEntry{
		TempID: tempID, TenantID: "t1", Payload: []byte(`{}`),
	}))
	err := store.Enqueue(&client.QueueEntry{
		TempID: tempID, TenantID: "t1", Payload: []byte(`{}`),
	})
	assert.Error(t, err, "the queue must never hold two entries for one token")
}
