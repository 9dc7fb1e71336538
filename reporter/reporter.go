// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package reporter encodes the call stack samples of a collection interval
// into the compact pprof interchange format.
//
// The collection side aggregates sampled stacks into a trace multiset and
// hands it over together with the known executable mappings of the process.
// One ProfileBuilder per interval collapses the frames into deduplicated
// string, function and location tables and serializes the result, either to
// gzip compressed bytes or into a caller owned message for further
// conversion, e.g. to OTLP profiles.
package reporter // import "github.com/jvmprof/jvmti-profiler/reporter"

import (
	log "github.com/sirupsen/logrus"

	"github.com/jvmprof/jvmti-profiler/libjp"
)

// ArtificialSample describes one synthetic accounting bucket appended after
// the real traces of an interval, e.g. the number of samples that could not
// be walked.
type ArtificialSample struct {
	// Name labels the bucket and becomes the only frame of the sample.
	Name string
	// Count is the number of occurrences in the interval.
	Count int64
	// Value is the per-occurrence magnitude, scaled by the sampling period
	// into the sample weight.
	Value int64
}

// SerializeAndClearJavaCPUTraces encodes one collection interval into
// serialized profile bytes. It populates a fresh builder from traces,
// appends the artificial samples, logs the totals and clears the multiset.
// kind names the measured dimension of the interval, e.g. "cpu" or "wall".
func SerializeAndClearJavaCPUTraces(attrs *libjp.AttributeTable,
	nativeInfo MappingLister, kind string, extra []ArtificialSample,
	durationNanos, periodNanos int64, traces *libjp.TraceMultiset) ([]byte, error) {
	b := NewProfileBuilder(attrs, nativeInfo)
	b.Populate(kind, traces, durationNanos, periodNanos)
	for _, f := range extra {
		// TODO: track and report attributes for artificial samples.
		b.AddArtificialSample(f.Name, f.Count, f.Value*periodNanos, 0)
	}
	log.Infof("Collected a profile: total count=%d, weight=%d",
		b.TotalCount(), b.TotalWeight())

	// Release traces before binary encoding to reuse memory.
	traces.Clear()
	return b.Emit()
}
