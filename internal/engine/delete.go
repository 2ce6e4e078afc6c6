package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grn-bogo/ziasync/internal/zia"
)

// DefaultChunkSize is the vendor-imposed ceiling on ids per bulk-delete call.
const DefaultChunkSize = 400

// DefaultCooldown is the pause between chunks. The endpoint throttles beyond
// its documented budget; the pause is an observed workaround, not API
// contract, so it is configurable.
const DefaultCooldown = time.Second

// Deleter partitions an id list into chunks and submits each as one
// rate-limited bulk-delete call.
type Deleter struct {
	client    *zia.Client
	chunkSize int
	cooldown  time.Duration
	log       *logrus.Entry

	// sleep is injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDeleter creates a bulk deleter. chunkSize at or below zero falls back to
// DefaultChunkSize; a negative cooldown falls back to DefaultCooldown and a
// zero cooldown disables the pause.
func NewDeleter(client *zia.Client, chunkSize int, cooldown time.Duration, log *logrus.Entry) *Deleter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if cooldown < 0 {
		cooldown = DefaultCooldown
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Deleter{
		client:    client,
		chunkSize: chunkSize,
		cooldown:  cooldown,
		log:       log,
		sleep:     sleepCtx,
	}
}

// Delete removes the users in input order. Ids are not deduplicated; callers
// supply a valid, deduplicated list. A failed chunk aborts the remainder.
func (d *Deleter) Delete(ctx context.Context, ids []int) error {
	chunks := chunkIDs(ids, d.chunkSize)
	for i, chunk := range chunks {
		if err := d.client.BulkDelete(ctx, chunk); err != nil {
			return fmt.Errorf("bulk delete chunk %d/%d: %w", i+1, len(chunks), err)
		}
		d.log.WithFields(logrus.Fields{
			"chunk": i + 1,
			"of":    len(chunks),
			"ids":   len(chunk),
		}).Info("deleted chunk")

		if i < len(chunks)-1 && d.cooldown > 0 {
			if err := d.sleep(ctx, d.cooldown); err != nil {
				return err
			}
		}
	}
	return nil
}

// chunkIDs partitions ids into contiguous chunks of at most size elements.
// Concatenating the chunks in order reproduces ids exactly.
func chunkIDs(ids []int, size int) [][]int {
	if size < 1 {
		size = 1
	}
	var chunks [][]int
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
