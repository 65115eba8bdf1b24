package mapreduce

import (
	"fmt"
	"testing"

	"recall-ai/internal/storage"
)

func itemWithChunks(id string, chunks int) storage.KnowledgeItem {
	item := storage.KnowledgeItem{ID: id, Title: id}
	for i := 0; i < chunks; i++ {
		item.Chunks = append(item.Chunks, storage.Chunk{ID: fmt.Sprintf("%s-c%d", id, i), ChunkIndex: i})
	}
	return item
}

func TestBuildBatches_CoversEveryItemExactlyOnce(t *testing.T) {
	var items []storage.KnowledgeItem
	chunkCounts := []int{1, 4, 7, 2, 2, 9, 1, 1, 16, 3, 5}
	for i, n := range chunkCounts {
		items = append(items, itemWithChunks(fmt.Sprintf("item-%d", i), n))
	}

	batches := buildBatches(items, 10)

	seen := make(map[string]int)
	for _, batch := range batches {
		for _, item := range batch.Items {
			seen[item.ID]++
		}
	}
	if len(seen) != len(items) {
		t.Errorf("batches cover %d distinct items, want %d", len(seen), len(items))
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("item %s appears %d times", id, count)
		}
	}
	for i, batch := range batches {
		if batch.Index != i {
			t.Errorf("batch %d has index %d", i, batch.Index)
		}
	}
}

func TestBuildBatches_RespectsSizeBound(t *testing.T) {
	var items []storage.KnowledgeItem
	for i := 0; i < 30; i++ {
		items = append(items, itemWithChunks(fmt.Sprintf("item-%d", i), 1+i%5))
	}

	target := 10
	batches := buildBatches(items, target)
	singleton := int(float64(target) * batchSingletonFactor)

	for _, batch := range batches {
		if len(batch.Items) == 1 {
			continue // singleton batches may exceed the bound by construction
		}
		if got := batch.ChunkCount(); got > singleton {
			t.Errorf("batch %d has %d chunks, exceeds %d", batch.Index, got, singleton)
		}
	}
}

func TestBuildBatches_OversizedItemGetsSingleton(t *testing.T) {
	items := []storage.KnowledgeItem{
		itemWithChunks("small-1", 2),
		itemWithChunks("huge", 16), // > 1.5 × 10
		itemWithChunks("small-2", 2),
	}

	batches := buildBatches(items, 10)

	var singleton *Batch
	for i := range batches {
		for _, item := range batches[i].Items {
			if item.ID == "huge" {
				singleton = &batches[i]
			}
		}
	}
	if singleton == nil {
		t.Fatal("huge item not batched")
	}
	if len(singleton.Items) != 1 {
		t.Errorf("huge item shares a batch with %d other items", len(singleton.Items)-1)
	}
}

func TestBuildBatches_ChunklessItemsCountAsOne(t *testing.T) {
	var items []storage.KnowledgeItem
	for i := 0; i < 25; i++ {
		items = append(items, itemWithChunks(fmt.Sprintf("item-%d", i), 0))
	}

	batches := buildBatches(items, 10)
	if len(batches) < 2 {
		t.Errorf("25 chunkless items produced %d batches, want at least 2", len(batches))
	}
}

func TestBuildBatches_Empty(t *testing.T) {
	if batches := buildBatches(nil, 10); batches != nil {
		t.Errorf("buildBatches(nil) = %v, want nil", batches)
	}
}

func TestBuildBatches_MinimizesBatchCount(t *testing.T) {
	// 3 single-chunk items fit easily into one batch of target 10.
	items := []storage.KnowledgeItem{
		itemWithChunks("a", 1),
		itemWithChunks("b", 1),
		itemWithChunks("c", 1),
	}
	batches := buildBatches(items, 10)
	if len(batches) != 1 {
		t.Errorf("3 small items produced %d batches, want 1", len(batches))
	}
}
