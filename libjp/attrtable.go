// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libjp // import "github.com/jvmprof/jvmti-profiler/libjp"

import "sync"

// AttributeTable assigns stable 1-based ids to thread attribute strings. Id 0
// is reserved to mean "no attribute set".
//
// A profile builder interns the registered strings in registration order
// right after the reserved empty string of its string table. An attribute id
// is therefore equal to the string table index of its text, which lets
// samples reference the attribute text directly by id.
//
// Registration happens from application threads while serialization reads a
// snapshot, so the table is safe for concurrent use.
type AttributeTable struct {
	mu      sync.Mutex
	ids     map[string]int64
	strings []string
}

// NewAttributeTable returns an empty attribute table.
func NewAttributeTable() *AttributeTable {
	return &AttributeTable{ids: make(map[string]int64)}
}

// Register returns the id for attr, assigning the next free id on first use.
func (t *AttributeTable) Register(attr string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[attr]; ok {
		return id
	}
	t.strings = append(t.strings, attr)
	id := int64(len(t.strings))
	t.ids[attr] = id
	return id
}

// Strings returns a snapshot of the registered attribute strings in
// registration order.
func (t *AttributeTable) Strings() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.strings))
	copy(out, t.strings)
	return out
}

// Len returns the number of registered attributes.
func (t *AttributeTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.strings)
}
