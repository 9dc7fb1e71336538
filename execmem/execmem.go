// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package execmem maintains a registry of the executable memory ranges of the
// host process. JIT compilation and code eviction events add and remove
// ranges of compiled method code from arbitrary threads, native library
// loading adds ranges of shared objects, and symbolization looks up sampled
// code addresses to classify them.
package execmem // import "github.com/jvmprof/jvmti-profiler/execmem"

import (
	"fmt"
	"sync"

	"github.com/jvmprof/jvmti-profiler/libjp"
)

// Kind distinguishes what an executable memory range holds.
type Kind uint8

const (
	// ManagedCode is JIT-compiled method code, owned by a JVM method.
	ManagedCode Kind = iota
	// NativeCode is code of a loaded native module.
	NativeCode
)

// String implements the Stringer interface.
func (kind Kind) String() string {
	switch kind {
	case ManagedCode:
		return "managed"
	case NativeCode:
		return "native"
	default:
		return fmt.Sprintf("<unknown range kind %d>", uint8(kind))
	}
}

// Interval is one registered executable memory range. The zero value acts as
// the "no range found" sentinel returned by Lookup.
type Interval struct {
	Start  libjp.Address
	Length uint64
	Kind   Kind

	// MethodID is the owning JVM method for ManagedCode ranges.
	MethodID libjp.MethodID
	// Name is the module name for NativeCode ranges.
	Name string
}

// Contains reports whether addr falls into [Start, Start+Length).
func (iv *Interval) Contains(addr libjp.Address) bool {
	return addr >= iv.Start && uint64(addr-iv.Start) < iv.Length
}

// Valid reports whether the interval is an actual registered range rather
// than the sentinel.
func (iv *Interval) Valid() bool {
	return *iv != Interval{}
}

// Index is the registry of executable memory ranges. Ranges are mutated by
// asynchronous code-load and code-unload events while sampling threads
// concurrently look up addresses, so every operation runs under one mutex.
// Registrations are kept in insertion order; overlapping ranges are not
// rejected and Lookup resolves overlap by insertion order, not spatial
// precedence.
type Index struct {
	mu        sync.Mutex
	intervals []Interval
}

// NewIndex returns an empty range registry.
func NewIndex() *Index {
	return &Index{}
}

// AddManagedRange registers a range of JIT-compiled code owned by method.
// Collisions with existing ranges are not checked.
func (x *Index) AddManagedRange(start libjp.Address, length uint64, method libjp.MethodID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.intervals = append(x.intervals, Interval{
		Start:    start,
		Length:   length,
		Kind:     ManagedCode,
		MethodID: method,
	})
}

// RemoveManagedRange removes the first registered range matching (start,
// method). Removing an unknown range is a no-op.
func (x *Index) RemoveManagedRange(start libjp.Address, method libjp.MethodID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for i := range x.intervals {
		iv := &x.intervals[i]
		if iv.Start == start && iv.MethodID == method {
			x.intervals = append(x.intervals[:i], x.intervals[i+1:]...)
			return
		}
	}
}

// AddNativeRange registers a code range of the named native module.
func (x *Index) AddNativeRange(start libjp.Address, length uint64, name string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.intervals = append(x.intervals, Interval{
		Start:  start,
		Length: length,
		Kind:   NativeCode,
		Name:   name,
	})
}

// Lookup returns the first registered range containing addr, scanning in
// insertion order. If no range contains addr the zero value Interval is
// returned.
func (x *Index) Lookup(addr libjp.Address) Interval {
	x.mu.Lock()
	defer x.mu.Unlock()
	for i := range x.intervals {
		if x.intervals[i].Contains(addr) {
			return x.intervals[i]
		}
	}
	return Interval{}
}

// Count returns the number of currently registered ranges.
func (x *Index) Count() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.intervals)
}
