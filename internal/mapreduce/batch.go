package mapreduce

import "recall-ai/internal/storage"

// Batching thresholds relative to the target chunk count. A batch closes once
// adding the next item would push it past the overflow boundary; an item
// bigger than the singleton boundary always gets its own batch.
const (
	batchOverflowFactor  = 1.2
	batchSingletonFactor = 1.5
)

// buildBatches greedily partitions items into batches bounded by chunk count.
// Every item lands in exactly one batch, in input order. Items without chunks
// still count as one chunk of context so a batch of chunkless items cannot
// grow without bound.
func buildBatches(items []storage.KnowledgeItem, targetChunks int) []Batch {
	if len(items) == 0 {
		return nil
	}
	if targetChunks <= 0 {
		targetChunks = 10
	}

	overflow := int(float64(targetChunks) * batchOverflowFactor)
	singleton := int(float64(targetChunks) * batchSingletonFactor)

	var batches []Batch
	var current []storage.KnowledgeItem
	currentChunks := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		batches = append(batches, Batch{Index: len(batches), Items: current})
		current = nil
		currentChunks = 0
	}

	for _, item := range items {
		chunks := len(item.Chunks)
		if chunks == 0 {
			chunks = 1
		}

		if chunks > singleton {
			flush()
			batches = append(batches, Batch{Index: len(batches), Items: []storage.KnowledgeItem{item}})
			continue
		}

		if len(current) > 0 && currentChunks+chunks > overflow {
			flush()
		}
		current = append(current, item)
		currentChunks += chunks
	}
	flush()

	return batches
}
