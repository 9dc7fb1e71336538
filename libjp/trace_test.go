// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libjp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrace(attr int64, methods ...string) Trace {
	frames := make([]Frame, 0, len(methods))
	for _, m := range methods {
		frames = append(frames, Frame{
			Kind:       JavaFrame,
			Class:      "com.example.Demo",
			Method:     m,
			Signature:  "()V",
			SourceFile: "Demo.java",
			Line:       42,
		})
	}
	return Trace{Frames: frames, Attr: attr}
}

func TestTraceMultisetMergesEqualTraces(t *testing.T) {
	m := NewTraceMultiset()
	m.Add(testTrace(0, "leaf", "root"))
	m.Add(testTrace(0, "leaf", "root"))
	m.AddWithCount(testTrace(0, "leaf", "root"), 3)

	require.Equal(t, 1, m.Len())
	assert.Equal(t, int64(5), m.Entries()[0].Count)
}

func TestTraceMultisetDistinguishes(t *testing.T) {
	tests := map[string]struct {
		a, b Trace
	}{
		"different attribute": {
			a: testTrace(0, "leaf", "root"),
			b: testTrace(1, "leaf", "root"),
		},
		"different frame order": {
			a: testTrace(0, "leaf", "root"),
			b: testTrace(0, "root", "leaf"),
		},
		"different depth": {
			a: testTrace(0, "leaf"),
			b: testTrace(0, "leaf", "root"),
		},
		"different line": {
			a: testTrace(0, "leaf"),
			b: func() Trace {
				tr := testTrace(0, "leaf")
				tr.Frames[0].Line = 43
				return tr
			}(),
		},
		"native vs jvm": {
			a: Trace{Frames: []Frame{{Kind: JavaFrame}}},
			b: Trace{Frames: []Frame{{Kind: NativeFrame}}},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := NewTraceMultiset()
			m.Add(test.a)
			m.Add(test.b)
			assert.Equal(t, 2, m.Len())
		})
	}
}

func TestTraceMultisetInsertionOrder(t *testing.T) {
	m := NewTraceMultiset()
	m.Add(testTrace(0, "first"))
	m.Add(testTrace(0, "second"))
	m.Add(testTrace(0, "first"))
	m.Add(testTrace(0, "third"))

	entries := m.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Trace.Frames[0].Method)
	assert.Equal(t, "second", entries[1].Trace.Frames[0].Method)
	assert.Equal(t, "third", entries[2].Trace.Frames[0].Method)
	assert.Equal(t, int64(2), entries[0].Count)
}

func TestTraceMultisetClear(t *testing.T) {
	m := NewTraceMultiset()
	m.Add(testTrace(0, "leaf"))
	m.Clear()

	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Entries())

	// The multiset stays usable after Clear.
	m.Add(testTrace(0, "leaf"))
	assert.Equal(t, 1, m.Len())
}

func TestNativeTraceAggregation(t *testing.T) {
	native := func(addr Address) Trace {
		return Trace{Frames: []Frame{{Kind: NativeFrame, Addr: addr}}}
	}

	m := NewTraceMultiset()
	m.Add(native(0x7f0000001000))
	m.Add(native(0x7f0000001000))
	m.Add(native(0x7f0000002000))

	require.Equal(t, 2, m.Len())
	assert.Equal(t, int64(2), m.Entries()[0].Count)
	assert.Equal(t, int64(1), m.Entries()[1].Count)
}
