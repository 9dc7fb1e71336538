// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package reporter // import "github.com/jvmprof/jvmti-profiler/reporter"

import (
	"bytes"
	"fmt"

	profilev1 "github.com/grafana/pyroscope/api/gen/proto/go/google/v1"
	"github.com/klauspost/compress/gzip"

	"github.com/jvmprof/jvmti-profiler/javasym"
	"github.com/jvmprof/jvmti-profiler/libjp"
	"github.com/jvmprof/jvmti-profiler/proc"
)

// attrLabelName is the label key under which samples carry their thread
// attribute id.
const attrLabelName = "attr"

// MappingLister provides the executable memory mappings of the process.
type MappingLister interface {
	Mappings() []proc.Mapping
}

var _ MappingLister = (*proc.ProcessInfo)(nil)

// functionKey identifies a function entry by its interned name fields. The
// start line is always 0 and not part of the key.
type functionKey struct {
	name       int64
	systemName int64
	fileName   int64
}

// lineKey identifies a symbolized location by function and source line.
type lineKey struct {
	functionID uint64
	line       int64
}

// ProfileBuilder assembles the pprof profile artifact of one collection
// interval. Frames are resolved into deduplicated location, function and
// string table entries, all three id spaces are dense and assigned in first
// use order. Address resolved and symbol resolved locations share one id
// space.
//
// A builder is driven by a single thread for its whole lifetime: construct,
// Populate, append artificial samples, then exactly one of Emit or Encode.
type ProfileBuilder struct {
	profile *profilev1.Profile

	stringIDs   map[string]int64
	functionIDs map[functionKey]uint64
	lineIDs     map[lineKey]uint64
	addressIDs  map[libjp.Address]uint64

	totalCount  int64
	totalWeight int64

	nativeInfo MappingLister
}

// NewProfileBuilder returns a builder for one collection interval.
//
// The attribute strings of attrs are interned into the string table first,
// right after the reserved empty string. An attribute id is thereby equal to
// the string table index of its text, which is what lets samples carry the
// attribute id as a string label. nativeInfo supplies the mapping records
// appended by Populate; both attrs and nativeInfo may be nil.
func NewProfileBuilder(attrs *libjp.AttributeTable, nativeInfo MappingLister) *ProfileBuilder {
	b := &ProfileBuilder{
		profile:     &profilev1.Profile{StringTable: []string{""}},
		stringIDs:   map[string]int64{"": 0},
		functionIDs: make(map[functionKey]uint64),
		lineIDs:     make(map[lineKey]uint64),
		addressIDs:  make(map[libjp.Address]uint64),
		nativeInfo:  nativeInfo,
	}
	if attrs != nil {
		for _, attr := range attrs.Strings() {
			b.stringID(attr)
		}
	}
	return b
}

// stringID interns s into the profile string table and returns its index.
func (b *ProfileBuilder) stringID(s string) int64 {
	if id, ok := b.stringIDs[s]; ok {
		return id
	}
	id := int64(len(b.profile.StringTable))
	b.profile.StringTable = append(b.profile.StringTable, s)
	b.stringIDs[s] = id
	return id
}

// functionID interns a function entry. Distinct display and raw name pairs
// produce distinct entries even when they share a file name.
func (b *ProfileBuilder) functionID(name, systemName, fileName string) uint64 {
	key := functionKey{
		name:       b.stringID(name),
		systemName: b.stringID(systemName),
		fileName:   b.stringID(fileName),
	}
	if id, ok := b.functionIDs[key]; ok {
		return id
	}
	id := uint64(len(b.profile.Function)) + 1
	b.functionIDs[key] = id
	b.profile.Function = append(b.profile.Function, &profilev1.Function{
		Id:         id,
		Name:       key.name,
		SystemName: key.systemName,
		Filename:   key.fileName,
	})
	return id
}

// frameLocationID resolves one sampled frame to a location id.
func (b *ProfileBuilder) frameLocationID(frame *libjp.Frame) uint64 {
	if frame.Kind == libjp.NativeFrame {
		return b.addressLocationID(frame.Addr)
	}
	signature := javasym.FixMethodParameters(frame.Signature)
	return b.symbolLocationID(frame.Class, frame.Method, signature,
		frame.SourceFile, frame.Line)
}

// addressLocationID resolves a raw code address to a location id,
// deduplicating on the address.
func (b *ProfileBuilder) addressLocationID(addr libjp.Address) uint64 {
	if id, ok := b.addressIDs[addr]; ok {
		return id
	}
	id := uint64(len(b.profile.Location)) + 1
	b.addressIDs[addr] = id
	b.profile.Location = append(b.profile.Location, &profilev1.Location{
		Id:      id,
		Address: uint64(addr),
	})
	return id
}

// symbolLocationID resolves a symbolized frame to a location id,
// deduplicating on (function, line).
func (b *ProfileBuilder) symbolLocationID(class, method, signature,
	fileName string, line int64) uint64 {
	frameName := method
	if class != "" {
		frameName = class + "." + method
	}
	if signature != "" {
		frameName += signature
	}
	displayName := javasym.SimplifyFunctionName(frameName)
	functionID := b.functionID(displayName, frameName, fileName)

	key := lineKey{functionID: functionID, line: line}
	if id, ok := b.lineIDs[key]; ok {
		return id
	}
	id := uint64(len(b.profile.Location)) + 1
	b.lineIDs[key] = id
	b.profile.Location = append(b.profile.Location, &profilev1.Location{
		Id: id,
		Line: []*profilev1.Line{{
			FunctionId: functionID,
			Line:       line,
		}},
	})
	return id
}

// addSample appends one sample record with values [count, weight] and
// accumulates the running totals. A nonzero attr is attached as a string
// label whose string table index is the attribute id itself, made valid by
// the attribute interning in NewProfileBuilder. Samples are never merged
// here, aggregation of equal stacks is the trace multiset's job.
func (b *ProfileBuilder) addSample(locations []uint64, count, weight, attr int64) {
	sample := &profilev1.Sample{
		LocationId: locations,
		Value:      []int64{count, weight},
	}
	b.totalCount += count
	b.totalWeight += weight

	if attr != 0 {
		sample.Label = []*profilev1.Label{{
			Key: b.stringID(attrLabelName),
			Str: attr,
		}}
	}
	b.profile.Sample = append(b.profile.Sample, sample)
}

// AddArtificialSample appends a synthetic sample that is not a real call
// stack, e.g. an accounting bucket for samples that could not be collected.
// Its single frame is symbol-only with the given name and line 0.
func (b *ProfileBuilder) AddArtificialSample(name string, count, weight, attr int64) {
	locations := []uint64{b.symbolLocationID("", name, "", "", 0)}
	b.addSample(locations, count, weight, attr)
}

// TotalCount returns the accumulated sample count of all added samples.
func (b *ProfileBuilder) TotalCount() int64 { return b.totalCount }

// TotalWeight returns the accumulated weight of all added samples.
func (b *ProfileBuilder) TotalWeight() int64 { return b.totalWeight }

// Populate fills the profile with the aggregated traces of one collection
// interval. kind names the measured dimension, e.g. "cpu" or "wall". The
// sample weight of a trace is its count times periodNanos. Entries with a
// zero count are skipped. Mapping records are appended after the samples
// with sequential ids in mapping list order.
func (b *ProfileBuilder) Populate(kind string, traces *libjp.TraceMultiset,
	durationNanos, periodNanos int64) {
	p := b.profile
	p.PeriodType = &profilev1.ValueType{
		Type: b.stringID(kind),
		Unit: b.stringID("nanoseconds"),
	}
	p.Period = periodNanos
	p.SampleType = append(p.SampleType,
		&profilev1.ValueType{
			Type: b.stringID("sample"),
			Unit: b.stringID("count"),
		},
		&profilev1.ValueType{
			Type: b.stringID(kind),
			Unit: b.stringID("nanoseconds"),
		})
	p.DurationNanos = durationNanos

	for _, entry := range traces.Entries() {
		if entry.Count == 0 {
			continue
		}
		locations := make([]uint64, 0, len(entry.Trace.Frames))
		for i := range entry.Trace.Frames {
			locations = append(locations, b.frameLocationID(&entry.Trace.Frames[i]))
		}
		b.addSample(locations, entry.Count, entry.Count*periodNanos, entry.Trace.Attr)
	}

	if b.nativeInfo == nil {
		return
	}
	for _, m := range b.nativeInfo.Mappings() {
		id := uint64(len(p.Mapping)) + 1
		p.Mapping = append(p.Mapping, &profilev1.Mapping{
			Id:          id,
			MemoryStart: uint64(m.Start),
			MemoryLimit: uint64(m.Limit),
			Filename:    b.stringID(m.Name),
		})
	}
}

// Emit serializes the profile and compresses it with gzip, the framing pprof
// consumers expect.
func (b *ProfileBuilder) Emit() ([]byte, error) {
	data, err := b.profile.MarshalVT()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize profile: %w", err)
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err = gz.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress profile: %w", err)
	}
	if err = gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress profile: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode moves the finished artifact into dst. The message struct carries
// internal protobuf state and must not be value copied, so the move goes
// field by field. The builder's own artifact is empty afterwards and its
// dedup tables are reset; the accumulated totals remain readable.
func (b *ProfileBuilder) Encode(dst *profilev1.Profile) {
	p := b.profile
	dst.SampleType = p.SampleType
	dst.Sample = p.Sample
	dst.Mapping = p.Mapping
	dst.Location = p.Location
	dst.Function = p.Function
	dst.StringTable = p.StringTable
	dst.DropFrames = p.DropFrames
	dst.KeepFrames = p.KeepFrames
	dst.TimeNanos = p.TimeNanos
	dst.DurationNanos = p.DurationNanos
	dst.PeriodType = p.PeriodType
	dst.Period = p.Period
	dst.Comment = p.Comment
	dst.DefaultSampleType = p.DefaultSampleType

	b.profile = &profilev1.Profile{StringTable: []string{""}}
	b.stringIDs = map[string]int64{"": 0}
	b.functionIDs = make(map[functionKey]uint64)
	b.lineIDs = make(map[lineKey]uint64)
	b.addressIDs = make(map[libjp.Address]uint64)
}
