// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package events keeps a bounded in-memory history of hotplug events for the
// status API and the CLI.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stratastor/logger"
	"github.com/stratastor/blockwatch/pkg/disk/hotplug"
)

// DefaultBufferSize is the number of events kept when no size is configured.
const DefaultBufferSize = 256

// Source tells live notifications apart from enumeration replays.
type Source string

const (
	SourceHotplug Source = "hotplug"
	SourceReplay  Source = "replay"
)

// Record is one buffered event.
type Record struct {
	ID         string            `json:"id"`
	Seq        uint64            `json:"seq"`
	Timestamp  time.Time         `json:"timestamp"`
	Kind       hotplug.EventKind `json:"kind"`
	DevicePath string            `json:"device_path"`
	Source     Source            `json:"source"`
}

// Buffer is a fixed-capacity FIFO of the most recent events. Sequence numbers
// start at 1 and keep increasing after old records are evicted, so readers
// can poll with Since(lastSeq).
type Buffer struct {
	logger logger.Logger

	mu      sync.RWMutex
	records []Record // ring storage
	start   int      // index of the oldest record
	count   int
	nextSeq uint64
	now     func() time.Time
}

// NewBuffer creates a buffer holding at most size records.
func NewBuffer(l logger.Logger, size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{
		logger:  l,
		records: make([]Record, size),
		nextSeq: 1,
		now:     time.Now,
	}
}

// Add appends ev and returns the stored record. The oldest record is evicted
// when the buffer is full.
func (b *Buffer) Add(ev hotplug.Event, source Source) Record {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec := Record{
		ID:         id.String(),
		Seq:        b.nextSeq,
		Timestamp:  b.now(),
		Kind:       ev.Kind,
		DevicePath: ev.DevicePath,
		Source:     source,
	}
	b.nextSeq++

	capacity := len(b.records)
	if b.count < capacity {
		b.records[(b.start+b.count)%capacity] = rec
		b.count++
	} else {
		b.records[b.start] = rec
		b.start = (b.start + 1) % capacity
	}

	b.logger.Debug("Event recorded",
		"seq", rec.Seq,
		"kind", rec.Kind.String(),
		"device", rec.DevicePath,
		"source", string(source))

	return rec
}

// Listener returns a hotplug listener that records every event with source.
func (b *Buffer) Listener(source Source) hotplug.Listener {
	return func(ev hotplug.Event) {
		b.Add(ev, source)
	}
}

// Since returns the buffered records with a sequence number greater than
// seq, oldest first.
func (b *Buffer) Since(seq uint64) []Record {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Record, 0, b.count)
	capacity := len(b.records)
	for i := 0; i < b.count; i++ {
		rec := b.records[(b.start+i)%capacity]
		if rec.Seq > seq {
			out = append(out, rec)
		}
	}
	return out
}

// All returns every buffered record, oldest first.
func (b *Buffer) All() []Record {
	return b.Since(0)
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// LastSeq returns the sequence number of the newest record, or 0.
func (b *Buffer) LastSeq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq - 1
}
