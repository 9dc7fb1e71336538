// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libjp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeTableRegister(t *testing.T) {
	table := NewAttributeTable()

	assert.Equal(t, int64(1), table.Register("request:checkout"))
	assert.Equal(t, int64(2), table.Register("request:search"))
	assert.Equal(t, int64(1), table.Register("request:checkout"))
	assert.Equal(t, 2, table.Len())

	assert.Equal(t, []string{"request:checkout", "request:search"}, table.Strings())
}

func TestAttributeTableSnapshot(t *testing.T) {
	table := NewAttributeTable()
	table.Register("a")

	snapshot := table.Strings()
	table.Register("b")

	// Strings returns a copy, later registrations are not visible in it.
	assert.Equal(t, []string{"a"}, snapshot)
	assert.Equal(t, []string{"a", "b"}, table.Strings())
}

func TestAttributeTableConcurrentRegister(t *testing.T) {
	table := NewAttributeTable()
	attrs := []string{"alpha", "beta", "gamma", "delta"}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				for _, attr := range attrs {
					table.Register(attr)
				}
			}
		}()
	}
	wg.Wait()

	require.Equal(t, len(attrs), table.Len())
	// Every attribute keeps a stable id in [1, len(attrs)].
	seen := make(map[int64]bool)
	for _, attr := range attrs {
		id := table.Register(attr)
		assert.GreaterOrEqual(t, id, int64(1))
		assert.LessOrEqual(t, id, int64(len(attrs)))
		assert.False(t, seen[id])
		seen[id] = true
	}
}
