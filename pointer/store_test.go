package pointer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryPinning mimics the backend's behavior: every pin accumulates a new
// immutable copy, and lookups return the newest copy for a tag.
type memoryPinning struct {
	seq      int
	blobs    map[string][]byte
	byName   map[string][]string // tag -> cids, oldest first
	pinErr   error
	listErr  error
	fetchErr error
}

func newMemoryPinning() *memoryPinning {
	return &memoryPinning{
		blobs:  make(map[string][]byte),
		byName: make(map[string][]string),
	}
}

func (m *memoryPinning) pin(data []byte, name string) (string, error) {
	if m.pinErr != nil {
		return "", m.pinErr
	}
	m.seq++
	cid := fmt.Sprintf("bafy%04d", m.seq)
	m.blobs[cid] = data
	m.byName[name] = append(m.byName[name], cid)
	return cid, nil
}

func (m *memoryPinning) PinJSON(_ context.Context, payload any, name string) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return m.pin(data, name)
}

func (m *memoryPinning) PinFile(_ context.Context, data []byte, name string) (string, error) {
	return m.pin(data, name)
}

func (m *memoryPinning) LatestByName(_ context.Context, name string) (string, error) {
	if m.listErr != nil {
		return "", m.listErr
	}
	cids := m.byName[name]
	if len(cids) == 0 {
		return "", nil
	}
	return cids[len(cids)-1], nil
}

func (m *memoryPinning) FetchBlob(_ context.Context, cid string) ([]byte, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	blob, ok := m.blobs[cid]
	if !ok {
		return nil, fmt.Errorf("unknown cid %s", cid)
	}
	return blob, nil
}

func fixedClock() time.Time {
	return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
}

func TestSetThenGetPointer(t *testing.T) {
	backend := newMemoryPinning()
	store := NewStore(backend, WithClock(fixedClock))
	ctx := context.Background()

	pointerID, err := store.SetPointer(ctx, "global-state", "cidA")
	require.NoError(t, err)
	require.NotEmpty(t, pointerID)

	cid, gotPointerID, err := store.GetPointer(ctx, "global-state")
	require.NoError(t, err)
	assert.Equal(t, "cidA", cid)
	assert.Equal(t, pointerID, gotPointerID)
}

func TestLastPublishedWinsUnderSerializedWriters(t *testing.T) {
	backend := newMemoryPinning()
	store := NewStore(backend, WithClock(fixedClock))
	ctx := context.Background()

	_, err := store.SetPointer(ctx, "s", "cidA")
	require.NoError(t, err)
	_, err = store.SetPointer(ctx, "s", "cidB")
	require.NoError(t, err)

	cid, _, err := store.GetPointer(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "cidB", cid)
}

func TestGetPointer_NeverSetReturnsEmptyNotError(t *testing.T) {
	store := NewStore(newMemoryPinning())

	cid, pointerID, err := store.GetPointer(context.Background(), "never-used")
	require.NoError(t, err)
	assert.Empty(t, cid)
	assert.Empty(t, pointerID)
}

func TestGetPointer_GarbledRecordTreatedAsUnset(t *testing.T) {
	backend := newMemoryPinning()
	store := NewStore(backend)
	ctx := context.Background()

	cid, err := backend.pin([]byte("not-json{"), "broken")
	require.NoError(t, err)
	require.NotEmpty(t, cid)

	got, _, err := store.GetPointer(ctx, "broken")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetPointer_UnfetchableRecordTreatedAsUnset(t *testing.T) {
	backend := newMemoryPinning()
	store := NewStore(backend, WithClock(fixedClock))
	ctx := context.Background()

	_, err := store.SetPointer(ctx, "s", "cidA")
	require.NoError(t, err)
	backend.fetchErr = fmt.Errorf("gateway timeout")

	cid, _, err := store.GetPointer(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, cid)
}

func TestGetPointer_LookupFailurePropagates(t *testing.T) {
	backend := newMemoryPinning()
	backend.listErr = fmt.Errorf("service unavailable")
	store := NewStore(backend)

	_, _, err := store.GetPointer(context.Background(), "s")
	assert.Error(t, err)
}

func TestPublishBlob(t *testing.T) {
	backend := newMemoryPinning()
	store := NewStore(backend)
	ctx := context.Background()

	cid, err := store.PublishBlob(ctx, []byte(`{"stories":[]}`), "snapshot")
	require.NoError(t, err)
	assert.NotEmpty(t, cid)

	blob, err := backend.FetchBlob(ctx, cid)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"stories":[]}`), blob)
}

func TestPublishBlob_BackendErrorWrapped(t *testing.T) {
	backend := newMemoryPinning()
	backend.pinErr = fmt.Errorf("402 payment required")
	store := NewStore(backend)

	_, err := store.PublishBlob(context.Background(), []byte("x"), "snapshot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PublishFailed")
	assert.Contains(t, err.Error(), "402 payment required")
}

func TestSetPointer_RecordShape(t *testing.T) {
	backend := newMemoryPinning()
	store := NewStore(backend, WithClock(fixedClock))
	ctx := context.Background()

	pointerID, err := store.SetPointer(ctx, "global-state", "cidA")
	require.NoError(t, err)

	raw, err := backend.FetchBlob(ctx, pointerID)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.Equal(t, "cidA", record["latest"])
	assert.Equal(t, "2026-08-30T12:00:00Z", record["updatedAt"])
}

func TestSetPointer_Validation(t *testing.T) {
	store := NewStore(newMemoryPinning())

	_, err := store.SetPointer(context.Background(), "", "cidA")
	assert.Error(t, err)

	_, err = store.SetPointer(context.Background(), "s", "")
	assert.Error(t, err)
}
