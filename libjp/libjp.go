// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package libjp contains the fundamental types shared by the JVMTI profiling
// agent: code addresses, JVM method identifiers, stack frames and the
// aggregated trace container that feeds profile serialization.
package libjp // import "github.com/jvmprof/jvmti-profiler/libjp"

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Address represents a code address, or offset within a process.
type Address uint64

// Hash32 returns a 32 bits hash of the input.
// It's main purpose is to be used as key for caching.
func (addr Address) Hash32() uint32 {
	return uint32(addr.Hash())
}

// Hash returns a 64 bits hash of the input.
func (addr Address) Hash() uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(addr))
	return xxh3.Hash(buf[:])
}

// MethodID identifies a JVM method. The value is opaque to the profiler, it
// is only compared for equality and reported verbatim.
type MethodID uint64
