package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remiges-tech/sift/engine/pg/batchsqlc"
)

func TestSweepClosesSettledBatchLeftOpen(t *testing.T) {
	fq := newFakeQuerier()
	e, _ := newTestEngine(t, fq)

	// A worker bumped the final counter and died before the close.
	id := seedCountedBatch(fq, "alice", batchsqlc.BatchStatusEnumRunning, 2, 2, 0, 0)

	require.NoError(t, e.sweepSettledBatches(context.Background()))

	batch, _ := fq.batchCopy(id)
	assert.Equal(t, batchsqlc.BatchStatusEnumComplete, batch.Status)
}

func TestSweepRepairsDriftedCounters(t *testing.T) {
	fq := newFakeQuerier()
	e, _ := newTestEngine(t, fq)
	batchID, itemIDs := seedBatch(fq, "alice", 2)
	now := time.Now().UTC()

	// Both items reached terminal status but one nfailed bump was lost
	// to a crash, so the batch can never settle on its own.
	first, _ := fq.itemCopy(itemIDs[0])
	first.Status = batchsqlc.ItemStatusEnumComplete
	first.Doneat = ts(now)
	fq.putItem(first)
	second, _ := fq.itemCopy(itemIDs[1])
	second.Status = batchsqlc.ItemStatusEnumFailed
	second.Doneat = ts(now)
	fq.putItem(second)

	b, _ := fq.batchCopy(batchID)
	b.Ncomplete = 1
	b.Nfailed = 0
	fq.putBatch(b)

	require.NoError(t, e.sweepSettledBatches(context.Background()))

	batch, _ := fq.batchCopy(batchID)
	assert.EqualValues(t, 1, batch.Ncomplete)
	assert.EqualValues(t, 1, batch.Nfailed, "counters should be rebuilt from the item rows")
	assert.Equal(t, batchsqlc.BatchStatusEnumComplete, batch.Status, "the repaired batch closes")
}

func TestSweepLeavesHealthyBatchesAlone(t *testing.T) {
	fq := newFakeQuerier()
	e, _ := newTestEngine(t, fq)
	batchID, _ := seedBatch(fq, "alice", 2)

	require.NoError(t, e.sweepSettledBatches(context.Background()))

	batch, _ := fq.batchCopy(batchID)
	assert.Equal(t, batchsqlc.BatchStatusEnumRunning, batch.Status)
	assert.EqualValues(t, 0, batch.Ncomplete)
}
