package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fieldsync/internal/client/client"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/store"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/cryptox"
	"github.com/dmitrijs2005/fieldsync/internal/logging"

	_ "modernc.org/sqlite"
)

type fakeClient struct {
	mu          sync.Mutex
	loginToken  string
	loginErr    error
	pingErr     error
	checkFn     func(formID, localID string) (*models.SubmissionRecord, error)
	createFn    func(rec *models.SubmissionRecord) (string, error)
	createCalls []*models.SubmissionRecord
}

func (f *fakeClient) Login(_ context.Context, _, _ string) (string, error) {
	return f.loginToken, f.loginErr
}

func (f *fakeClient) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeClient) setPingErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
}

func (f *fakeClient) CheckSubmission(_ context.Context, formID, localID string) (*models.SubmissionRecord, error) {
	if f.checkFn == nil {
		return nil, nil
	}
	return f.checkFn(formID, localID)
}

func (f *fakeClient) CreateSubmission(_ context.Context, rec *models.SubmissionRecord) (string, error) {
	f.mu.Lock()
	cp := *rec
	f.createCalls = append(f.createCalls, &cp)
	f.mu.Unlock()
	if f.createFn == nil {
		return "srv-" + rec.LocalID, nil
	}
	return f.createFn(rec)
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) calls() []*models.SubmissionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.SubmissionRecord, len(f.createCalls))
	copy(out, f.createCalls)
	return out
}

func setupEngine(t *testing.T) (*Engine, *store.EncryptedStore, *fakeClient) {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:engine_%s?mode=memory&cache=shared", t.Name())
	repos, err := client.InitDatabase(ctx, dsn)
	require.NoError(t, err)
	repos.DB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = repos.DB.Close() })

	crypto := cryptox.NewProvider(filepath.Join(t.TempDir(), "device.key"))
	require.NoError(t, crypto.Initialize("user-1", "device-1"))

	st := store.NewEncryptedStore(crypto, repos)
	api := &fakeClient{}
	e := NewEngine(st, api, logging.NewDiscardLogger())
	e.SetOnline(true)
	return e, st, api
}

func addPending(t *testing.T, st *store.EncryptedStore, data models.FormData) *models.SubmissionRecord {
	t.Helper()
	rec := models.NewSubmission("F1", data)
	_, err := st.SaveSubmission(context.Background(), rec)
	require.NoError(t, err)
	return rec
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(evs []Event) []EventType {
	out := make([]EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func TestSyncPending_HappyPath(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	r1 := addPending(t, st, models.FormData{"q": "a"})
	r2 := addPending(t, st, models.FormData{"q": "b"})

	events, unsub := e.Subscribe()
	defer unsub()

	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))

	for _, id := range []string{r1.LocalID, r2.LocalID} {
		got, err := st.GetSubmission(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSynced, got.Status)
		assert.Equal(t, "srv-"+id, got.ServerID)
		assert.Equal(t, 1, got.SyncAttempts)
	}

	// Records are uploaded one at a time in insertion order.
	calls := api.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, r1.LocalID, calls[0].LocalID)
	assert.Equal(t, r2.LocalID, calls[1].LocalID)

	evs := drain(events)
	assert.Equal(t, []EventType{EventSyncStart, EventSyncSuccess, EventSyncSuccess, EventSyncComplete},
		eventTypes(evs))
	last := evs[len(evs)-1]
	require.NotNil(t, last.Summary)
	assert.Equal(t, Summary{Total: 2, Synced: 2}, *last.Summary)
}

func TestSyncPending_SecondPassUploadsNothing(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	addPending(t, st, models.FormData{"q": "a1"})
	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))
	require.Len(t, api.calls(), 1)

	events, unsub := e.Subscribe()
	defer unsub()

	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))

	assert.Len(t, api.calls(), 1, "synced records are not re-uploaded")
	evs := drain(events)
	require.Equal(t, []EventType{EventSyncStart, EventSyncComplete}, eventTypes(evs))
	assert.Equal(t, Summary{}, *evs[1].Summary)
}

func TestSyncPending_OfflineIsNoop(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()
	e.SetOnline(false)

	rec := addPending(t, st, models.FormData{"q": "a"})

	events, unsub := e.Subscribe()
	defer unsub()

	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))

	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Empty(t, api.calls())
	assert.Empty(t, drain(events))
}

func TestSyncPending_AlreadyRunningIsNoop(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	addPending(t, st, models.FormData{"q": "a"})

	e.syncing.Store(true)
	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))
	assert.Empty(t, api.calls())
	e.syncing.Store(false)

	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))
	assert.Len(t, api.calls(), 1)
}

func TestSyncPending_TransientFailureStaysPending(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "a"})
	api.createFn = func(*models.SubmissionRecord) (string, error) {
		return "", fmt.Errorf("dial tcp: %w", common.ErrNetwork)
	}

	events, unsub := e.Subscribe()
	defer unsub()

	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))

	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, 1, got.SyncAttempts)
	assert.Empty(t, got.ServerID)

	evs := drain(events)
	assert.Equal(t, []EventType{EventSyncStart, EventSyncError, EventSyncComplete}, eventTypes(evs))
	assert.Equal(t, Summary{Total: 1, Failed: 1}, *evs[2].Summary)

	// Next pass picks the record up again.
	api.createFn = nil
	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))
	got, err = st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
	assert.Equal(t, 2, got.SyncAttempts)
}

func TestSyncPending_RejectionMarksFailed(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "a"})
	api.createFn = func(*models.SubmissionRecord) (string, error) {
		return "", fmt.Errorf("422: %w", common.ErrServerRejected)
	}

	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))

	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)

	// Failed records are not picked up by later passes until requeued.
	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))
	assert.Len(t, api.calls(), 1)

	require.NoError(t, e.Requeue(ctx, rec.LocalID))
	api.createFn = nil
	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))
	got, err = st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
}

func TestRequeue_OnlyFailedRecords(t *testing.T) {
	e, st, _ := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "a"})
	err := e.Requeue(ctx, rec.LocalID)
	assert.Error(t, err)
}

func TestSyncPending_ServerWins(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "local", "extra": "keep"})
	api.checkFn = func(_, localID string) (*models.SubmissionRecord, error) {
		return &models.SubmissionRecord{
			LocalID: localID, FormID: "F1",
			Data: models.FormData{"q": "server"},
		}, nil
	}

	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))

	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
	assert.Equal(t, models.FormData{"q": "server"}, got.Data)
}

func TestSyncPending_ClientWins(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "local"})
	api.checkFn = func(_, localID string) (*models.SubmissionRecord, error) {
		return &models.SubmissionRecord{
			LocalID: localID, FormID: "F1",
			Data: models.FormData{"q": "server"},
		}, nil
	}

	require.NoError(t, e.SyncPending(ctx, StrategyClientWins))

	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.FormData{"q": "local"}, got.Data)

	calls := api.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, models.FormData{"q": "local"}, calls[0].Data)
}

func TestSyncPending_MergeNewerLocalWins(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "local", "local_only": true})
	api.checkFn = func(_, localID string) (*models.SubmissionRecord, error) {
		return &models.SubmissionRecord{
			LocalID: localID, FormID: "F1",
			UpdatedAt: rec.UpdatedAt - 1000,
			Data:      models.FormData{"q": "server", "server_only": true},
		}, nil
	}

	require.NoError(t, e.SyncPending(ctx, StrategyMerge))

	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.FormData{
		"q": "local", "local_only": true, "server_only": true,
	}, got.Data)
}

func TestSyncPending_MergeNewerServerWins(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "local", "local_only": true})
	api.checkFn = func(_, localID string) (*models.SubmissionRecord, error) {
		return &models.SubmissionRecord{
			LocalID: localID, FormID: "F1",
			UpdatedAt: rec.UpdatedAt + 1000,
			Data:      models.FormData{"q": "server", "server_only": true},
		}, nil
	}

	require.NoError(t, e.SyncPending(ctx, StrategyMerge))

	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.FormData{
		"q": "server", "local_only": true, "server_only": true,
	}, got.Data)
}

func TestSyncPending_IdenticalServerCopyIsNotAConflict(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "same"})
	api.checkFn = func(_, localID string) (*models.SubmissionRecord, error) {
		return &models.SubmissionRecord{
			LocalID: localID, FormID: "F1",
			Data: models.FormData{"q": "same"},
		}, nil
	}

	events, unsub := e.Subscribe()
	defer unsub()

	require.NoError(t, e.SyncPending(ctx, StrategyManual))

	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
	assert.NotContains(t, eventTypes(drain(events)), EventConflictDetected)
	assert.Empty(t, e.ConflictQueue())
}

func TestSyncPending_CheckFailureProceedsOptimistically(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "a"})
	api.checkFn = func(_, _ string) (*models.SubmissionRecord, error) {
		return nil, fmt.Errorf("check: %w", common.ErrTimeout)
	}

	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))

	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
}

func TestSyncPending_LateConflictResolvedAndRetriedOnce(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "local"})
	server := &models.SubmissionRecord{
		LocalID: rec.LocalID, FormID: "F1",
		Data: models.FormData{"q": "server"},
	}
	attempt := 0
	api.createFn = func(r *models.SubmissionRecord) (string, error) {
		attempt++
		if attempt == 1 {
			return "", &client.ConflictError{Server: server}
		}
		return "srv-late", nil
	}

	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))

	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
	assert.Equal(t, "srv-late", got.ServerID)

	calls := api.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, models.FormData{"q": "server"}, calls[1].Data)
}

func TestSyncPending_RepeatedConflictFailsAfterOneRetry(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "local"})
	api.createFn = func(r *models.SubmissionRecord) (string, error) {
		return "", &client.ConflictError{Server: &models.SubmissionRecord{
			LocalID: r.LocalID, FormID: "F1",
			Data: models.FormData{"q": "server"},
		}}
	}

	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))

	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Len(t, api.calls(), 2)
}

func TestSyncPending_ManualConflictQueued(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "local", "shared": 1.0})
	api.checkFn = func(_, localID string) (*models.SubmissionRecord, error) {
		return &models.SubmissionRecord{
			LocalID: localID, FormID: "F1",
			Data: models.FormData{"q": "server", "shared": 1.0},
		}, nil
	}

	events, unsub := e.Subscribe()
	defer unsub()

	require.NoError(t, e.SyncPending(ctx, StrategyManual))

	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, got.Status)
	assert.Empty(t, api.calls(), "manual conflicts are not uploaded")

	queue := e.ConflictQueue()
	require.Len(t, queue, 1)
	assert.Equal(t, rec.LocalID, queue[0].Local.LocalID)
	assert.Equal(t, []string{"q"}, queue[0].DiffFields)

	evs := drain(events)
	assert.Equal(t, []EventType{EventSyncStart, EventConflictDetected, EventSyncComplete},
		eventTypes(evs))
	assert.Equal(t, Summary{Total: 1, Conflicts: 1}, *evs[2].Summary)
}

func TestResolveConflictManually(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "local"})
	api.checkFn = func(_, localID string) (*models.SubmissionRecord, error) {
		return &models.SubmissionRecord{
			LocalID: localID, FormID: "F1",
			Data: models.FormData{"q": "server"},
		}, nil
	}
	require.NoError(t, e.SyncPending(ctx, StrategyManual))
	require.Len(t, e.ConflictQueue(), 1)

	events, unsub := e.Subscribe()
	defer unsub()

	resolved := models.FormData{"q": "hand-picked"}
	require.NoError(t, e.ResolveConflictManually(ctx, rec.LocalID, resolved))

	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
	assert.Equal(t, resolved, got.Data)
	assert.Empty(t, e.ConflictQueue())

	evs := eventTypes(drain(events))
	assert.Contains(t, evs, EventSyncSuccess)
	assert.Contains(t, evs, EventConflictResolved)
}

func TestResolveConflictManually_RejectionMarksFailed(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "local"})
	api.checkFn = func(_, localID string) (*models.SubmissionRecord, error) {
		return &models.SubmissionRecord{
			LocalID: localID, FormID: "F1",
			Data: models.FormData{"q": "server"},
		}, nil
	}
	require.NoError(t, e.SyncPending(ctx, StrategyManual))
	require.Len(t, e.ConflictQueue(), 1)

	api.createFn = func(_ *models.SubmissionRecord) (string, error) {
		return "", common.ErrServerRejected
	}
	err := e.ResolveConflictManually(ctx, rec.LocalID, models.FormData{"q": "hand-picked"})
	assert.ErrorIs(t, err, common.ErrServerRejected)

	// The record must not stay in conflict with no queue entry left to
	// resolve it through. Failed keeps it reachable via Requeue.
	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Empty(t, e.ConflictQueue())

	api.createFn = nil
	require.NoError(t, e.Requeue(ctx, rec.LocalID))
	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))

	got, err = st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
}

func TestResolveConflictManually_TransientFailureReturnsToPending(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "local"})
	api.checkFn = func(_, localID string) (*models.SubmissionRecord, error) {
		return &models.SubmissionRecord{
			LocalID: localID, FormID: "F1",
			Data: models.FormData{"q": "server"},
		}, nil
	}
	require.NoError(t, e.SyncPending(ctx, StrategyManual))

	api.createFn = func(_ *models.SubmissionRecord) (string, error) {
		return "", common.ErrNetwork
	}
	err := e.ResolveConflictManually(ctx, rec.LocalID, models.FormData{"q": "hand-picked"})
	assert.ErrorIs(t, err, common.ErrNetwork)

	got, err := st.GetSubmission(ctx, rec.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestResolveConflictManually_UnknownID(t *testing.T) {
	e, _, _ := setupEngine(t)
	err := e.ResolveConflictManually(context.Background(), "nope", models.FormData{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSetOnline_EdgeEventsOnly(t *testing.T) {
	e, _, _ := setupEngine(t)

	events, unsub := e.Subscribe()
	defer unsub()

	e.SetOnline(true) // already online, no event
	e.SetOnline(false)
	e.SetOnline(false)
	e.SetOnline(true)

	assert.Equal(t, []EventType{EventOffline, EventOnline}, eventTypes(drain(events)))
}

func TestSubscribe_UnsubscribeClosesChannel(t *testing.T) {
	e, _, _ := setupEngine(t)

	events, unsub := e.Subscribe()
	unsub()
	unsub() // second call is harmless

	_, open := <-events
	assert.False(t, open)

	// Emitting with no subscribers must not panic.
	e.SetOnline(false)
}

func TestStartOnlineWatcher(t *testing.T) {
	e, _, api := setupEngine(t)
	e.SetOnline(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.StartOnlineWatcher(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, e.IsOnline, time.Second, 5*time.Millisecond)

	api.setPingErr(common.ErrNetwork)
	require.Eventually(t, func() bool { return !e.IsOnline() }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestSyncMedia(t *testing.T) {
	e, st, _ := setupEngine(t)
	ctx := context.Background()

	var uploads int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploads++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ready := &models.MediaBlob{
		ID: "m1", SubmissionID: "s1", Type: "image/jpeg",
		FileName: "photo.jpg", Content: []byte{0xFF, 0xD8},
		UploadStatus: models.MediaPending, UploadURL: srv.URL,
	}
	noURL := &models.MediaBlob{
		ID: "m2", SubmissionID: "s1", Type: "image/jpeg",
		FileName: "later.jpg", Content: []byte{0xFF, 0xD8},
		UploadStatus: models.MediaPending,
	}
	_, err := st.SaveMedia(ctx, ready)
	require.NoError(t, err)
	_, err = st.SaveMedia(ctx, noURL)
	require.NoError(t, err)

	n, err := e.SyncMedia(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, uploads)

	got, err := st.GetMedia(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MediaUploaded, got.UploadStatus)

	got, err = st.GetMedia(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, models.MediaPending, got.UploadStatus)
}

func TestSyncMedia_FailureLeavesPending(t *testing.T) {
	e, st, _ := setupEngine(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	blob := &models.MediaBlob{
		ID: "m1", SubmissionID: "s1", Type: "image/jpeg",
		Content:      []byte{1, 2, 3},
		UploadStatus: models.MediaPending, UploadURL: srv.URL,
	}
	_, err := st.SaveMedia(ctx, blob)
	require.NoError(t, err)

	n, err := e.SyncMedia(ctx)
	assert.Error(t, err)
	assert.Zero(t, n)

	got, err := st.GetMedia(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MediaPending, got.UploadStatus)
}

func TestSyncPending_DrainsQueueTasks(t *testing.T) {
	e, st, _ := setupEngine(t)
	ctx := context.Background()

	addPending(t, st, models.FormData{"q": "a"})
	addPending(t, st, models.FormData{"q": "b"})

	tasks, err := st.Queue().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))

	tasks, err = st.Queue().GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks, "synced records leave no queue entries")
}

func TestRequeue_RestoresQueueTask(t *testing.T) {
	e, st, api := setupEngine(t)
	ctx := context.Background()

	rec := addPending(t, st, models.FormData{"q": "a"})
	api.createFn = func(*models.SubmissionRecord) (string, error) {
		return "", fmt.Errorf("422: %w", common.ErrServerRejected)
	}
	require.NoError(t, e.SyncPending(ctx, StrategyServerWins))

	tasks, err := st.Queue().GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks, "definitive failure drops the queue entry")

	require.NoError(t, e.Requeue(ctx, rec.LocalID))

	tasks, err = st.Queue().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, rec.LocalID, tasks[0].TargetID)
}

func TestSyncMedia_DropsQueueTask(t *testing.T) {
	e, st, _ := setupEngine(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	blob := &models.MediaBlob{
		ID: "m1", SubmissionID: "s1", Type: "image/jpeg",
		Content:      []byte{1},
		UploadStatus: models.MediaPending, UploadURL: srv.URL,
	}
	_, err := st.SaveMedia(ctx, blob)
	require.NoError(t, err)

	tasks, err := st.Queue().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	_, err = e.SyncMedia(ctx)
	require.NoError(t, err)

	tasks, err = st.Queue().GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
