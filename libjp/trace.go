// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libjp // import "github.com/jvmprof/jvmti-profiler/libjp"

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Trace represents one sampled call stack together with the attribute that
// was active on the sampled thread. Frames are ordered leaf first.
type Trace struct {
	Frames []Frame
	// Attr is the profile string table index of the thread attribute, 0 when
	// no attribute was set.
	Attr int64
}

// hash returns a 64 bits content hash over the frames and the attribute.
// xxh3 is 4x faster than fnv. String fields are separated by a 0 byte so
// that ("ab","c") and ("a","bc") do not collide.
func (t *Trace) hash() uint64 {
	buf := make([]byte, 0, 64+48*len(t.Frames))
	buf = binary.BigEndian.AppendUint64(buf, uint64(t.Attr))
	for i := range t.Frames {
		f := &t.Frames[i]
		buf = append(buf, byte(f.Kind))
		buf = append(buf, f.Class...)
		buf = append(buf, 0)
		buf = append(buf, f.Method...)
		buf = append(buf, 0)
		buf = append(buf, f.Signature...)
		buf = append(buf, 0)
		buf = append(buf, f.SourceFile...)
		buf = binary.BigEndian.AppendUint64(buf, uint64(f.Line))
		buf = binary.BigEndian.AppendUint64(buf, uint64(f.Addr))
	}
	return xxh3.Hash(buf)
}

// equal reports whether two traces have identical frames and attribute.
func (t *Trace) equal(other *Trace) bool {
	if t.Attr != other.Attr || len(t.Frames) != len(other.Frames) {
		return false
	}
	for i := range t.Frames {
		if t.Frames[i] != other.Frames[i] {
			return false
		}
	}
	return true
}

// TraceCount is one aggregated entry of a TraceMultiset.
type TraceCount struct {
	Trace Trace
	Count int64
}

// TraceMultiset aggregates equal traces into occurrence counts. Insertion
// order of distinct traces is preserved. Hash collisions are resolved by full
// trace comparison.
//
// A TraceMultiset is not safe for concurrent use. The collection side fills
// it during an interval and hands it over to profile serialization as a
// whole.
type TraceMultiset struct {
	buckets map[uint64][]int
	entries []TraceCount
}

// NewTraceMultiset returns an empty multiset.
func NewTraceMultiset() *TraceMultiset {
	return &TraceMultiset{buckets: make(map[uint64][]int)}
}

// Add records one occurrence of trace.
func (m *TraceMultiset) Add(trace Trace) {
	m.AddWithCount(trace, 1)
}

// AddWithCount records count occurrences of trace, merging with a previously
// added equal trace if there is one.
func (m *TraceMultiset) AddWithCount(trace Trace, count int64) {
	h := trace.hash()
	for _, idx := range m.buckets[h] {
		entry := &m.entries[idx]
		if entry.Trace.equal(&trace) {
			entry.Count += count
			return
		}
	}
	m.buckets[h] = append(m.buckets[h], len(m.entries))
	m.entries = append(m.entries, TraceCount{Trace: trace, Count: count})
}

// Entries returns the aggregated traces in insertion order. The returned
// slice is a view into the multiset and stays valid only until the next Add
// or Clear call.
func (m *TraceMultiset) Entries() []TraceCount {
	return m.entries
}

// Len returns the number of distinct traces.
func (m *TraceMultiset) Len() int {
	return len(m.entries)
}

// Clear removes all entries so their memory can be reclaimed.
func (m *TraceMultiset) Clear() {
	m.buckets = make(map[uint64][]int)
	m.entries = nil
}
