// Package services hosts the client-side orchestration layer: the sync
// engine, the auth/session service, and the online status watcher.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/client"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/store"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// ConflictStrategy selects how a diverged record is resolved.
type ConflictStrategy string

const (
	// StrategyServerWins discards local changes and keeps the server payload.
	StrategyServerWins ConflictStrategy = "server_wins"
	// StrategyClientWins overwrites the server with the local payload.
	StrategyClientWins ConflictStrategy = "client_wins"
	// StrategyMerge lets the record with the later timestamp supply its
	// fields into the other's payload. Recency is compared per whole
	// record; field-level timestamps are not tracked, so this is
	// last-writer-wins at record granularity despite the name.
	StrategyMerge ConflictStrategy = "merge"
	// StrategyManual queues the conflict for a human decision.
	StrategyManual ConflictStrategy = "manual"
)

const subscriberBuffer = 64

// Engine reconciles locally captured submissions with the server. One
// engine instance owns one local store; dependencies are injected so tests
// can run several isolated instances.
type Engine struct {
	store *store.EncryptedStore
	api   client.Client
	log   logging.Logger
	now   func() time.Time

	syncing atomic.Bool
	online  atomic.Bool

	mu        sync.Mutex
	conflicts []*models.ConflictRecord
	subs      map[int]chan Event
	nextSub   int
}

// Option customizes engine construction.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(st *store.EncryptedStore, api client.Client, log logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		store: st,
		api:   api,
		log:   log,
		now:   time.Now,
		subs:  make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe registers an event listener. The returned function removes the
// subscription and closes the channel; callers must use it to avoid leaks.
// A subscriber that stops draining loses events rather than blocking the
// engine.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSub
	e.nextSub++
	ch := make(chan Event, subscriberBuffer)
	e.subs[id] = ch

	unsubscribe := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if ch, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

func (e *Engine) emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// IsOnline reports the last known connectivity state.
func (e *Engine) IsOnline() bool {
	return e.online.Load()
}

// IsSyncing reports whether a sync pass is currently running.
func (e *Engine) IsSyncing() bool {
	return e.syncing.Load()
}

// SetOnline records a connectivity change and emits an edge event.
func (e *Engine) SetOnline(online bool) {
	if e.online.Swap(online) == online {
		return
	}
	if online {
		e.emit(Event{Type: EventOnline})
	} else {
		e.emit(Event{Type: EventOffline})
	}
}

// ConflictQueue returns a snapshot of unresolved conflicts.
func (e *Engine) ConflictQueue() []*models.ConflictRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*models.ConflictRecord, len(e.conflicts))
	copy(out, e.conflicts)
	return out
}

// outcome of one record within a pass.
type outcome int

const (
	outcomeSynced outcome = iota
	outcomeFailed
	outcomeConflict
)

// SyncPending runs one sync pass over every pending record, in insertion
// order, one record in flight at a time. It is a silent no-op when offline
// or when a pass is already running; the syncing flag is the only guard
// against overlapping passes and protects nothing else.
func (e *Engine) SyncPending(ctx context.Context, strategy ConflictStrategy) error {
	if !e.online.Load() {
		return nil
	}
	if !e.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer e.syncing.Store(false)

	e.emit(Event{Type: EventSyncStart})

	pending, decErrs, err := e.store.GetSubmissionsByStatus(ctx, models.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to load pending records: %w", err)
	}
	for _, derr := range decErrs {
		// Undecryptable records cannot be uploaded; surface and move on.
		e.log.Error(ctx, "pending record unreadable", "local_id", derr.Key, "error", derr.Err)
		e.emit(Event{Type: EventSyncError, LocalID: derr.Key})
	}

	summary := Summary{Total: len(pending) + len(decErrs), Failed: len(decErrs)}

	pending = e.orderByQueue(ctx, pending)
	for _, rec := range pending {
		switch e.syncOne(ctx, rec, strategy) {
		case outcomeSynced:
			summary.Synced++
		case outcomeFailed:
			summary.Failed++
		case outcomeConflict:
			summary.Conflicts++
		}
	}

	e.emit(Event{Type: EventSyncComplete, Summary: &summary})
	e.log.Info(ctx, "sync pass complete",
		"total", summary.Total, "synced", summary.Synced,
		"failed", summary.Failed, "conflicts", summary.Conflicts)
	return nil
}

// orderByQueue reorders pending records by their sync queue tasks (priority,
// then enqueue order). Records without a task keep their relative order and
// go last. Queue read failures fall back to stored order.
func (e *Engine) orderByQueue(ctx context.Context, pending []*models.SubmissionRecord) []*models.SubmissionRecord {
	tasks, err := e.store.Queue().GetAll(ctx)
	if err != nil {
		e.log.Warn(ctx, "sync queue unavailable, using stored order", "error", err)
		return pending
	}
	if len(tasks) == 0 {
		return pending
	}

	rank := make(map[string]int, len(tasks))
	for i, t := range tasks {
		if t.Kind != models.TaskSubmission {
			continue
		}
		if _, seen := rank[t.TargetID]; !seen {
			rank[t.TargetID] = i
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		ri, iok := rank[pending[i].LocalID]
		rj, jok := rank[pending[j].LocalID]
		if iok && jok {
			return ri < rj
		}
		return iok && !jok
	})
	return pending
}

// dropTask removes the queue entries referencing a record that reached a
// terminal state.
func (e *Engine) dropTask(ctx context.Context, kind, targetID string) {
	tasks, err := e.store.Queue().GetAll(ctx)
	if err != nil {
		e.log.Warn(ctx, "failed to read sync queue", "error", err)
		return
	}
	for _, t := range tasks {
		if t.Kind == kind && t.TargetID == targetID {
			if err := e.store.Queue().Delete(ctx, t.ID); err != nil {
				e.log.Warn(ctx, "failed to drop sync task", "task_id", t.ID, "error", err)
			}
		}
	}
}

// syncOne pushes a single record through conflict check, resolution and
// upload. Storage or network errors affect only this record.
func (e *Engine) syncOne(ctx context.Context, rec *models.SubmissionRecord, strategy ConflictStrategy) outcome {
	rec.Status = models.StatusSyncing

	// Conflict check. A transport failure here is treated as "no conflict"
	// so a flaky link cannot block the upload; a real conflict the check
	// missed still surfaces as a 409 from the create endpoint.
	server, err := e.api.CheckSubmission(ctx, rec.FormID, rec.LocalID)
	if err != nil {
		e.log.Warn(ctx, "conflict check failed, proceeding optimistically",
			"local_id", rec.LocalID, "error", err)
		server = nil
	}

	if server != nil && len(models.DiffFields(rec.Data, server.Data)) > 0 {
		if strategy == StrategyManual {
			e.queueConflict(ctx, rec, server)
			return outcomeConflict
		}
		e.resolve(rec, server, strategy)
	}

	return e.upload(ctx, rec, strategy, true)
}

// upload submits the record and applies the status transition. A 409 at
// this stage is a late-discovered conflict: it is routed through the same
// resolution logic, then retried exactly once.
func (e *Engine) upload(ctx context.Context, rec *models.SubmissionRecord, strategy ConflictStrategy, allowConflictRetry bool) outcome {
	serverID, err := e.api.CreateSubmission(ctx, rec)

	var conflict *client.ConflictError
	switch {
	case err == nil:
		return e.markSynced(ctx, rec, serverID)

	case errors.As(err, &conflict):
		if strategy == StrategyManual {
			e.queueConflict(ctx, rec, conflict.Server)
			return outcomeConflict
		}
		if !allowConflictRetry {
			return e.markFailed(ctx, rec, err)
		}
		e.resolve(rec, conflict.Server, strategy)
		return e.upload(ctx, rec, strategy, false)

	case errors.Is(err, common.ErrNetwork) || errors.Is(err, common.ErrTimeout):
		// Transient: the record stays pending and is retried next pass.
		rec.Status = models.StatusPending
		rec.SyncAttempts++
		rec.UpdatedAt = e.now().UnixMilli()
		if _, serr := e.store.SaveSubmission(ctx, rec); serr != nil {
			e.log.Error(ctx, "failed to persist retry state", "local_id", rec.LocalID, "error", serr)
		}
		e.emit(Event{Type: EventSyncError, LocalID: rec.LocalID})
		return outcomeFailed

	default:
		return e.markFailed(ctx, rec, err)
	}
}

func (e *Engine) markSynced(ctx context.Context, rec *models.SubmissionRecord, serverID string) outcome {
	rec.Status = models.StatusSynced
	rec.ServerID = serverID
	rec.SyncAttempts++
	rec.UpdatedAt = e.now().UnixMilli()
	if _, err := e.store.SaveSubmission(ctx, rec); err != nil {
		e.log.Error(ctx, "failed to persist synced record", "local_id", rec.LocalID, "error", err)
		e.emit(Event{Type: EventSyncError, LocalID: rec.LocalID})
		return outcomeFailed
	}
	e.dropTask(ctx, models.TaskSubmission, rec.LocalID)
	e.emit(Event{Type: EventSyncSuccess, LocalID: rec.LocalID})
	return outcomeSynced
}

func (e *Engine) markFailed(ctx context.Context, rec *models.SubmissionRecord, cause error) outcome {
	e.log.Warn(ctx, "submission rejected", "local_id", rec.LocalID, "error", cause)
	rec.Status = models.StatusFailed
	rec.SyncAttempts++
	rec.UpdatedAt = e.now().UnixMilli()
	if _, err := e.store.SaveSubmission(ctx, rec); err != nil {
		e.log.Error(ctx, "failed to persist failed record", "local_id", rec.LocalID, "error", err)
	}
	e.dropTask(ctx, models.TaskSubmission, rec.LocalID)
	e.emit(Event{Type: EventSyncError, LocalID: rec.LocalID})
	return outcomeFailed
}

// resolve mutates rec.Data according to the strategy. For merge, the side
// with the later record timestamp supplies its fields into the other's
// payload.
func (e *Engine) resolve(rec *models.SubmissionRecord, server *models.SubmissionRecord, strategy ConflictStrategy) {
	switch strategy {
	case StrategyClientWins:
		// Local payload overwrites the server on upload.
	case StrategyMerge:
		if recency(rec) > recency(server) {
			rec.Data = models.MergeData(server.Data, rec.Data)
		} else {
			rec.Data = models.MergeData(rec.Data, server.Data)
		}
	default: // server wins
		rec.Data = server.Data
	}
}

func recency(rec *models.SubmissionRecord) int64 {
	if rec.UpdatedAt != 0 {
		return rec.UpdatedAt
	}
	return rec.CreatedAt
}

// queueConflict parks the record for manual resolution: status moves to
// conflict, a ConflictRecord becomes retrievable by local id, and the pass
// skips to the next pending record.
func (e *Engine) queueConflict(ctx context.Context, rec *models.SubmissionRecord, server *models.SubmissionRecord) {
	rec.Status = models.StatusConflict
	rec.UpdatedAt = e.now().UnixMilli()
	if _, err := e.store.SaveSubmission(ctx, rec); err != nil {
		e.log.Error(ctx, "failed to persist conflict state", "local_id", rec.LocalID, "error", err)
	}

	e.mu.Lock()
	e.conflicts = append(e.conflicts, &models.ConflictRecord{
		Local:      rec,
		Server:     server,
		DiffFields: models.DiffFields(rec.Data, server.Data),
		DetectedAt: e.now().UnixMilli(),
	})
	e.mu.Unlock()

	e.emit(Event{Type: EventConflictDetected, LocalID: rec.LocalID})
}

// ResolveConflictManually applies a caller-supplied payload to a queued
// conflict and re-attempts the upload. The queue entry is consumed either
// way: a transient upload failure returns the record to pending so the next
// pass retries it, and a definitive rejection marks it failed so Requeue
// applies.
func (e *Engine) ResolveConflictManually(ctx context.Context, localID string, resolved models.FormData) error {
	e.mu.Lock()
	idx := -1
	for i, c := range e.conflicts {
		if c.Local.LocalID == localID {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return fmt.Errorf("no queued conflict for %s: %w", localID, common.ErrNotFound)
	}
	e.conflicts = append(e.conflicts[:idx], e.conflicts[idx+1:]...)
	e.mu.Unlock()

	rec, err := e.store.GetSubmission(ctx, localID)
	if err != nil {
		return fmt.Errorf("failed to load conflicted record: %w", err)
	}

	rec.Data = resolved
	rec.UpdatedAt = e.now().UnixMilli()

	serverID, err := e.api.CreateSubmission(ctx, rec)
	if err != nil {
		if errors.Is(err, common.ErrNetwork) || errors.Is(err, common.ErrTimeout) {
			rec.Status = models.StatusPending
			rec.SyncAttempts++
			if _, serr := e.store.SaveSubmission(ctx, rec); serr != nil {
				e.log.Error(ctx, "failed to persist retry state", "local_id", localID, "error", serr)
			}
			return fmt.Errorf("failed to upload resolved record: %w", err)
		}
		// The queue entry is gone, so a record left in conflict would be
		// unreachable. Definitive rejection moves it to failed, where
		// Requeue applies.
		e.markFailed(ctx, rec, err)
		return fmt.Errorf("failed to upload resolved record: %w", err)
	}

	if e.markSynced(ctx, rec, serverID) != outcomeSynced {
		return fmt.Errorf("failed to persist resolved record: %w", common.ErrIO)
	}
	e.emit(Event{Type: EventConflictResolved, LocalID: localID})
	return nil
}

// Requeue resets a failed record to pending and restores its queue task so
// the next pass retries it.
func (e *Engine) Requeue(ctx context.Context, localID string) error {
	rec, err := e.store.GetSubmission(ctx, localID)
	if err != nil {
		return err
	}
	if rec.Status != models.StatusFailed {
		return fmt.Errorf("record %s is %s, only failed records can be requeued", localID, rec.Status)
	}
	rec.Status = models.StatusPending
	rec.UpdatedAt = e.now().UnixMilli()
	if _, err := e.store.SaveSubmission(ctx, rec); err != nil {
		return err
	}
	_, err = e.store.Queue().Enqueue(ctx, &models.SyncTask{
		Priority:  models.PrioritySubmission,
		Kind:      models.TaskSubmission,
		TargetID:  localID,
		CreatedAt: e.now().UnixMilli(),
	})
	return err
}
