package engine

import (
	"context"
	"log"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/remiges-tech/sift/engine/objstore"
	"github.com/remiges-tech/sift/engine/pg/batchsqlc"
)

// fakeQuerier is an in-memory stand-in for the generated Postgres queries.
// Every method applies the same predicates as the SQL it replaces, so the
// lease and ownership guards behave exactly as they would against the real
// database. Safe for concurrent use.
type fakeQuerier struct {
	mu      sync.Mutex
	batches map[uuid.UUID]*batchsqlc.Batch
	items   map[uuid.UUID]*batchsqlc.Item
	errs    map[string]error
	calls   map[string]int
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		batches: make(map[uuid.UUID]*batchsqlc.Batch),
		items:   make(map[uuid.UUID]*batchsqlc.Item),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

// callCount reports how often the named method has been invoked.
func (f *fakeQuerier) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// failWith makes the named method return err until cleared with nil.
func (f *fakeQuerier) failWith(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

func (f *fakeQuerier) putBatch(b batchsqlc.Batch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := b
	f.batches[b.ID] = &cp
}

func (f *fakeQuerier) putItem(i batchsqlc.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := i
	f.items[i.ID] = &cp
}

func (f *fakeQuerier) batchCopy(id uuid.UUID) (batchsqlc.Batch, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[id]
	if !ok {
		return batchsqlc.Batch{}, false
	}
	return *b, true
}

func (f *fakeQuerier) itemCopy(id uuid.UUID) (batchsqlc.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.items[id]
	if !ok {
		return batchsqlc.Item{}, false
	}
	return *i, true
}

func tsEqual(a, b pgtype.Timestamp) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Time.Equal(b.Time)
}

// pendingSorted returns the batch's pending items in claim order.
func (f *fakeQuerier) pendingSorted(batch uuid.UUID) []*batchsqlc.Item {
	var pending []*batchsqlc.Item
	for _, it := range f.items {
		if it.Batch == batch && it.Status == batchsqlc.ItemStatusEnumPending {
			pending = append(pending, it)
		}
	}
	sort.Slice(pending, func(a, b int) bool {
		ta, tb := pending[a].Updatedat.Time, pending[b].Updatedat.Time
		if !ta.Equal(tb) {
			return ta.Before(tb)
		}
		return pending[a].ID.String() < pending[b].ID.String()
	})
	return pending
}

func (f *fakeQuerier) AddBatchCancelled(ctx context.Context, arg batchsqlc.AddBatchCancelledParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["AddBatchCancelled"]; err != nil {
		return err
	}
	if b, ok := f.batches[arg.ID]; ok {
		b.Ncancelled += arg.Ncancelled
		b.Updatedat = arg.Updatedat
	}
	return nil
}

func (f *fakeQuerier) BulkInsertIntoItems(ctx context.Context, arg batchsqlc.BulkInsertIntoItemsParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["BulkInsertIntoItems"]; err != nil {
		return 0, err
	}
	for i := range arg.ID {
		f.items[arg.ID[i]] = &batchsqlc.Item{
			ID:         arg.ID[i],
			Batch:      arg.Batch[i],
			Filename:   arg.Filename[i],
			Fileref:    arg.Fileref[i],
			Filehash:   arg.Filehash[i],
			Status:     batchsqlc.ItemStatusEnumPending,
			Updatedat:  arg.Updatedat[i],
			Maxretries: arg.Maxretries[i],
			Reqat:      arg.Reqat[i],
		}
	}
	return int64(len(arg.ID)), nil
}

func (f *fakeQuerier) CancelExpiredItem(ctx context.Context, arg batchsqlc.CancelExpiredItemParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["CancelExpiredItem"]; err != nil {
		return 0, err
	}
	it, ok := f.items[arg.ID]
	if !ok || it.Status != batchsqlc.ItemStatusEnumRunning || !tsEqual(it.Startat, arg.Startat) {
		return 0, nil
	}
	it.Status = batchsqlc.ItemStatusEnumCancelled
	it.Workerid = pgtype.Text{}
	it.Startat = pgtype.Timestamp{}
	it.Updatedat = arg.Updatedat
	it.Doneat = arg.Updatedat
	return 1, nil
}

func (f *fakeQuerier) CancelPendingItems(ctx context.Context, arg batchsqlc.CancelPendingItemsParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["CancelPendingItems"]; err != nil {
		return 0, err
	}
	var n int64
	for _, it := range f.items {
		if it.Batch == arg.Batch && it.Status == batchsqlc.ItemStatusEnumPending {
			it.Status = batchsqlc.ItemStatusEnumCancelled
			it.Workerid = pgtype.Text{}
			it.Startat = pgtype.Timestamp{}
			it.Updatedat = arg.Updatedat
			it.Doneat = arg.Updatedat
			n++
		}
	}
	return n, nil
}

func (f *fakeQuerier) ClaimPendingItem(ctx context.Context, arg batchsqlc.ClaimPendingItemParams) (batchsqlc.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ClaimPendingItem"]++
	if err := f.errs["ClaimPendingItem"]; err != nil {
		return batchsqlc.Item{}, err
	}
	b, ok := f.batches[arg.Batch]
	if !ok || b.Status != batchsqlc.BatchStatusEnumRunning {
		return batchsqlc.Item{}, pgx.ErrNoRows
	}
	pending := f.pendingSorted(arg.Batch)
	if len(pending) == 0 {
		return batchsqlc.Item{}, pgx.ErrNoRows
	}
	it := pending[0]
	it.Status = batchsqlc.ItemStatusEnumRunning
	it.Workerid = arg.Workerid
	it.Startat = arg.Startat
	it.Updatedat = arg.Startat
	return *it, nil
}

func (f *fakeQuerier) CloseBatchIfSettled(ctx context.Context, arg batchsqlc.CloseBatchIfSettledParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["CloseBatchIfSettled"]; err != nil {
		return 0, err
	}
	b, ok := f.batches[arg.ID]
	if !ok || b.Status != batchsqlc.BatchStatusEnumRunning {
		return 0, nil
	}
	if b.Ncomplete+b.Nfailed+b.Ncancelled != b.Ntotal {
		return 0, nil
	}
	b.Status = batchsqlc.BatchStatusEnumComplete
	b.Updatedat = arg.Updatedat
	b.Doneat = arg.Updatedat
	return 1, nil
}

func (f *fakeQuerier) CompleteItem(ctx context.Context, arg batchsqlc.CompleteItemParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["CompleteItem"]; err != nil {
		return 0, err
	}
	it, ok := f.items[arg.ID]
	if !ok || it.Status != batchsqlc.ItemStatusEnumRunning || it.Workerid != arg.Workerid {
		return 0, nil
	}
	it.Status = batchsqlc.ItemStatusEnumComplete
	it.Res = arg.Res
	it.Errcode = pgtype.Text{}
	it.Errmsg = pgtype.Text{}
	it.Workerid = pgtype.Text{}
	it.Startat = pgtype.Timestamp{}
	it.Updatedat = arg.Updatedat
	it.Doneat = arg.Updatedat
	return 1, nil
}

func (f *fakeQuerier) DeleteBatch(ctx context.Context, id uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["DeleteBatch"]; err != nil {
		return 0, err
	}
	if _, ok := f.batches[id]; !ok {
		return 0, nil
	}
	delete(f.batches, id)
	return 1, nil
}

func (f *fakeQuerier) DeleteItemsByBatch(ctx context.Context, batch uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["DeleteItemsByBatch"]; err != nil {
		return err
	}
	for id, it := range f.items {
		if it.Batch == batch {
			delete(f.items, id)
		}
	}
	return nil
}

func (f *fakeQuerier) FailExpiredItem(ctx context.Context, arg batchsqlc.FailExpiredItemParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["FailExpiredItem"]; err != nil {
		return 0, err
	}
	it, ok := f.items[arg.ID]
	if !ok || it.Status != batchsqlc.ItemStatusEnumRunning || !tsEqual(it.Startat, arg.Startat) {
		return 0, nil
	}
	it.Status = batchsqlc.ItemStatusEnumFailed
	it.Errcode = arg.Errcode
	it.Errmsg = arg.Errmsg
	it.Workerid = pgtype.Text{}
	it.Startat = pgtype.Timestamp{}
	it.Updatedat = arg.Updatedat
	it.Doneat = arg.Updatedat
	return 1, nil
}

func (f *fakeQuerier) FailItem(ctx context.Context, arg batchsqlc.FailItemParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["FailItem"]; err != nil {
		return 0, err
	}
	it, ok := f.items[arg.ID]
	if !ok || it.Status != batchsqlc.ItemStatusEnumRunning || it.Workerid != arg.Workerid {
		return 0, nil
	}
	it.Status = batchsqlc.ItemStatusEnumFailed
	it.Errcode = arg.Errcode
	it.Errmsg = arg.Errmsg
	it.Workerid = pgtype.Text{}
	it.Startat = pgtype.Timestamp{}
	it.Updatedat = arg.Updatedat
	it.Doneat = arg.Updatedat
	return 1, nil
}

func (f *fakeQuerier) GetActiveBatches(ctx context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["GetActiveBatches"]; err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, b := range f.batches {
		if b.Status == batchsqlc.BatchStatusEnumRunning && b.Ncomplete+b.Nfailed+b.Ncancelled < b.Ntotal {
			ids = append(ids, b.ID)
		}
	}
	return ids, nil
}

func (f *fakeQuerier) GetBatchByID(ctx context.Context, id uuid.UUID) (batchsqlc.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["GetBatchByID"]; err != nil {
		return batchsqlc.Batch{}, err
	}
	b, ok := f.batches[id]
	if !ok {
		return batchsqlc.Batch{}, pgx.ErrNoRows
	}
	return *b, nil
}

func (f *fakeQuerier) GetExpiredRunningItems(ctx context.Context, arg batchsqlc.GetExpiredRunningItemsParams) ([]batchsqlc.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["GetExpiredRunningItems"]; err != nil {
		return nil, err
	}
	var expired []batchsqlc.Item
	for _, it := range f.items {
		if it.Status == batchsqlc.ItemStatusEnumRunning && it.Startat.Valid && it.Startat.Time.Before(arg.Startat.Time) {
			expired = append(expired, *it)
		}
	}
	sort.Slice(expired, func(a, b int) bool {
		return expired[a].Startat.Time.Before(expired[b].Startat.Time)
	})
	if int32(len(expired)) > arg.Limit {
		expired = expired[:arg.Limit]
	}
	return expired, nil
}

func (f *fakeQuerier) GetItemsByBatchID(ctx context.Context, batch uuid.UUID) ([]batchsqlc.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["GetItemsByBatchID"]; err != nil {
		return nil, err
	}
	return f.itemsOf(batch, ""), nil
}

func (f *fakeQuerier) GetItemsByBatchIDAndStatus(ctx context.Context, arg batchsqlc.GetItemsByBatchIDAndStatusParams) ([]batchsqlc.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["GetItemsByBatchIDAndStatus"]; err != nil {
		return nil, err
	}
	return f.itemsOf(arg.Batch, arg.Status), nil
}

// itemsOf returns the batch's items in creation order. Callers hold f.mu.
func (f *fakeQuerier) itemsOf(batch uuid.UUID, status batchsqlc.ItemStatusEnum) []batchsqlc.Item {
	var out []batchsqlc.Item
	for _, it := range f.items {
		if it.Batch != batch {
			continue
		}
		if status != "" && it.Status != status {
			continue
		}
		out = append(out, *it)
	}
	sort.Slice(out, func(a, b int) bool {
		ta, tb := out[a].Reqat.Time, out[b].Reqat.Time
		if !ta.Equal(tb) {
			return ta.Before(tb)
		}
		return out[a].ID.String() < out[b].ID.String()
	})
	return out
}

func (f *fakeQuerier) GetOldestClaimableItem(ctx context.Context, batch uuid.UUID) (batchsqlc.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetOldestClaimableItem"]++
	if err := f.errs["GetOldestClaimableItem"]; err != nil {
		return batchsqlc.Item{}, err
	}
	b, ok := f.batches[batch]
	if !ok || b.Status != batchsqlc.BatchStatusEnumRunning {
		return batchsqlc.Item{}, pgx.ErrNoRows
	}
	pending := f.pendingSorted(batch)
	if len(pending) == 0 {
		return batchsqlc.Item{}, pgx.ErrNoRows
	}
	return *pending[0], nil
}

func (f *fakeQuerier) GetSettledOpenBatches(ctx context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["GetSettledOpenBatches"]; err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, b := range f.batches {
		if b.Status == batchsqlc.BatchStatusEnumRunning && b.Ncomplete+b.Nfailed+b.Ncancelled == b.Ntotal {
			ids = append(ids, b.ID)
		}
	}
	return ids, nil
}

func (f *fakeQuerier) GetStalledBatches(ctx context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["GetStalledBatches"]; err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, b := range f.batches {
		if b.Status != batchsqlc.BatchStatusEnumRunning || b.Ncomplete+b.Nfailed+b.Ncancelled >= b.Ntotal {
			continue
		}
		open := false
		for _, it := range f.items {
			if it.Batch == b.ID && (it.Status == batchsqlc.ItemStatusEnumPending || it.Status == batchsqlc.ItemStatusEnumRunning) {
				open = true
				break
			}
		}
		if !open {
			ids = append(ids, b.ID)
		}
	}
	return ids, nil
}

func (f *fakeQuerier) IncrementBatchCompleted(ctx context.Context, arg batchsqlc.IncrementBatchCompletedParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["IncrementBatchCompleted"]; err != nil {
		return err
	}
	if b, ok := f.batches[arg.ID]; ok {
		b.Ncomplete++
		b.Updatedat = arg.Updatedat
	}
	return nil
}

func (f *fakeQuerier) IncrementBatchFailed(ctx context.Context, arg batchsqlc.IncrementBatchFailedParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["IncrementBatchFailed"]; err != nil {
		return err
	}
	if b, ok := f.batches[arg.ID]; ok {
		b.Nfailed++
		b.Updatedat = arg.Updatedat
	}
	return nil
}

func (f *fakeQuerier) InsertIntoBatches(ctx context.Context, arg batchsqlc.InsertIntoBatchesParams) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["InsertIntoBatches"]; err != nil {
		return uuid.Nil, err
	}
	f.batches[arg.ID] = &batchsqlc.Batch{
		ID:        arg.ID,
		Owner:     arg.Owner,
		Status:    arg.Status,
		Jd:        arg.Jd,
		Ntotal:    arg.Ntotal,
		Nskipped:  arg.Nskipped,
		Reqat:     arg.Reqat,
		Updatedat: arg.Reqat,
		Doneat:    arg.Doneat,
	}
	return arg.ID, nil
}

func (f *fakeQuerier) MarkBatchCancelled(ctx context.Context, arg batchsqlc.MarkBatchCancelledParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["MarkBatchCancelled"]; err != nil {
		return 0, err
	}
	b, ok := f.batches[arg.ID]
	if !ok || (b.Status != batchsqlc.BatchStatusEnumRunning && b.Status != batchsqlc.BatchStatusEnumPaused) {
		return 0, nil
	}
	b.Status = batchsqlc.BatchStatusEnumCancelled
	b.Updatedat = arg.Updatedat
	b.Doneat = arg.Updatedat
	return 1, nil
}

func (f *fakeQuerier) PauseBatch(ctx context.Context, arg batchsqlc.PauseBatchParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["PauseBatch"]; err != nil {
		return 0, err
	}
	b, ok := f.batches[arg.ID]
	if !ok || b.Status != batchsqlc.BatchStatusEnumRunning {
		return 0, nil
	}
	b.Status = batchsqlc.BatchStatusEnumPaused
	b.Updatedat = arg.Updatedat
	return 1, nil
}

func (f *fakeQuerier) RequeueExpiredItem(ctx context.Context, arg batchsqlc.RequeueExpiredItemParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["RequeueExpiredItem"]; err != nil {
		return 0, err
	}
	it, ok := f.items[arg.ID]
	if !ok || it.Status != batchsqlc.ItemStatusEnumRunning || !tsEqual(it.Startat, arg.Startat) {
		return 0, nil
	}
	it.Status = batchsqlc.ItemStatusEnumPending
	it.Nretries++
	it.Errcode = arg.Errcode
	it.Errmsg = arg.Errmsg
	it.Workerid = pgtype.Text{}
	it.Startat = pgtype.Timestamp{}
	it.Updatedat = arg.Updatedat
	return 1, nil
}

func (f *fakeQuerier) RequeueItem(ctx context.Context, arg batchsqlc.RequeueItemParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["RequeueItem"]; err != nil {
		return 0, err
	}
	it, ok := f.items[arg.ID]
	if !ok || it.Status != batchsqlc.ItemStatusEnumRunning || it.Workerid != arg.Workerid {
		return 0, nil
	}
	it.Status = batchsqlc.ItemStatusEnumPending
	it.Nretries++
	it.Errcode = arg.Errcode
	it.Errmsg = arg.Errmsg
	it.Workerid = pgtype.Text{}
	it.Startat = pgtype.Timestamp{}
	it.Updatedat = arg.Updatedat
	return 1, nil
}

func (f *fakeQuerier) ResumeBatch(ctx context.Context, arg batchsqlc.ResumeBatchParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["ResumeBatch"]; err != nil {
		return 0, err
	}
	b, ok := f.batches[arg.ID]
	if !ok || b.Status != batchsqlc.BatchStatusEnumPaused {
		return 0, nil
	}
	b.Status = batchsqlc.BatchStatusEnumRunning
	b.Updatedat = arg.Updatedat
	return 1, nil
}

func (f *fakeQuerier) SyncBatchCounters(ctx context.Context, arg batchsqlc.SyncBatchCountersParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["SyncBatchCounters"]; err != nil {
		return 0, err
	}
	b, ok := f.batches[arg.Batch]
	if !ok || b.Status != batchsqlc.BatchStatusEnumRunning {
		return 0, nil
	}
	var ncomplete, nfailed, ncancelled int32
	for _, it := range f.items {
		if it.Batch != arg.Batch {
			continue
		}
		switch it.Status {
		case batchsqlc.ItemStatusEnumComplete:
			ncomplete++
		case batchsqlc.ItemStatusEnumFailed:
			nfailed++
		case batchsqlc.ItemStatusEnumCancelled:
			ncancelled++
		}
	}
	b.Ncomplete = ncomplete
	b.Nfailed = nfailed
	b.Ncancelled = ncancelled
	b.Updatedat = arg.Updatedat
	return 1, nil
}

var _ batchsqlc.Querier = (*fakeQuerier)(nil)

// fakeAnalyzer returns a canned verdict unless a script is installed.
type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, fileref, jd string) (JSONstr, error)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, fileref, jd string) (JSONstr, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(call, fileref, jd)
	}
	return NewJSONstr(`{"verdict":"strong_match","score":82}`)
}

func (f *fakeAnalyzer) setFn(fn func(call int, fileref, jd string) (JSONstr, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = fn
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testLogger() *logharbour.Logger {
	lctx := &logharbour.LoggerContext{}
	return logharbour.NewLogger(lctx, "sift-test", log.Writer())
}

// newTestEngine builds an engine wired to the fake querier, a mock object
// store, a real miniredis and a fake analyzer. Backoff is dialed down so
// retry tests run in milliseconds.
func newTestEngine(t *testing.T, q batchsqlc.Querier) (*Engine, *fakeAnalyzer) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	fa := &fakeAnalyzer{}
	e := New(nil, redisClient, nil, fa, testLogger(), nil, &EngineConfig{
		LeaseSeconds:        2,
		WorkerBackoffBaseMs: 1,
		WatchdogIntervalMs:  20,
	})
	e.queries = q
	e.objStore = objstore.GenerateObjectStoreMock()
	return e, fa
}

// seedBatch inserts a running batch with n pending items and returns the
// batch ID along with the item IDs in claim order.
func seedBatch(q *fakeQuerier, owner string, n int) (uuid.UUID, []uuid.UUID) {
	batchID := uuid.New()
	now := time.Now().UTC()
	q.putBatch(batchsqlc.Batch{
		ID:        batchID,
		Owner:     owner,
		Status:    batchsqlc.BatchStatusEnumRunning,
		Jd:        "senior gopher",
		Ntotal:    int32(n),
		Reqat:     ts(now),
		Updatedat: ts(now),
	})
	itemIDs := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		id := uuid.New()
		q.putItem(batchsqlc.Item{
			ID:         id,
			Batch:      batchID,
			Filename:   "resume.pdf",
			Fileref:    batchID.String() + "/" + id.String() + "/resume.pdf",
			Filehash:   ContentHash([]byte(id.String())),
			Status:     batchsqlc.ItemStatusEnumPending,
			Updatedat:  ts(now.Add(time.Duration(i) * time.Microsecond)),
			Maxretries: 3,
			Reqat:      ts(now),
		})
		itemIDs = append(itemIDs, id)
	}
	return batchID, itemIDs
}
