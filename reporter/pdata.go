// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package reporter // import "github.com/jvmprof/jvmti-profiler/reporter"

import (
	profilev1 "github.com/grafana/pyroscope/api/gen/proto/go/google/v1"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/pprofile"
	"go.opentelemetry.io/otel/attribute"

	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"

	"github.com/jvmprof/jvmti-profiler/libjp"
)

// attrTableManager maintains index allocation and deduplication for the
// dictionary attribute table.
type attrTableManager struct {
	// indices maps compound keys to the indices in the attribute table.
	indices map[string]int32

	// attrTable being populated.
	attrTable pprofile.AttributeTableSlice
}

func newAttrTableManager(attrTable pprofile.AttributeTableSlice) *attrTableManager {
	return &attrTableManager{
		indices:   make(map[string]int32),
		attrTable: attrTable,
	}
}

// appendOptionalString adds the index for the given string attribute to an
// attribute index slice if it is non-empty.
func (m *attrTableManager) appendOptionalString(attrs pcommon.Int32Slice,
	key attribute.Key, value string) {
	if value == "" {
		return
	}

	compound := string(key) + "_" + value
	if attributeIndex, exists := m.indices[compound]; exists {
		attrs.Append(attributeIndex)
		return
	}

	newIndex := int32(m.attrTable.Len())
	a := m.attrTable.AppendEmpty()
	a.SetKey(string(key))
	a.Value().SetStr(value)
	m.indices[compound] = newIndex
	attrs.Append(newIndex)
}

// OTLPProfiles converts a finished profile artifact into an OTLP profiles
// request, translating the artifact tables into the profiles dictionary.
// The artifact must be well formed, i.e. produced by a ProfileBuilder; ids
// are expected to be dense and 1-based.
func OTLPProfiles(prof *profilev1.Profile, agentName, agentVersion string) pprofile.Profiles {
	profiles := pprofile.NewProfiles()
	dic := profiles.ProfilesDictionary()

	// By specification, the first element of the string and mapping tables
	// should be empty.
	stringIndices := map[string]int32{"": 0}
	dic.StringTable().Append("")
	dic.MappingTable().AppendEmpty()

	addString := func(s string) int32 {
		if idx, ok := stringIndices[s]; ok {
			return idx
		}
		idx := int32(dic.StringTable().Len())
		dic.StringTable().Append(s)
		stringIndices[s] = idx
		return idx
	}
	str := func(ref int64) string {
		return prof.StringTable[ref]
	}

	attrMgr := newAttrTableManager(dic.AttributeTable())

	// Mappings keep their artifact id as table index thanks to the reserved
	// empty entry. Functions and locations have no reserved entry, their
	// artifact id maps to table index id-1.
	for _, m := range prof.Mapping {
		mapping := dic.MappingTable().AppendEmpty()
		mapping.SetMemoryStart(m.MemoryStart)
		mapping.SetMemoryLimit(m.MemoryLimit)
		mapping.SetFilenameStrindex(addString(str(m.Filename)))
	}
	for _, fn := range prof.Function {
		function := dic.FunctionTable().AppendEmpty()
		function.SetNameStrindex(addString(str(fn.Name)))
		function.SetSystemNameStrindex(addString(str(fn.SystemName)))
		function.SetFilenameStrindex(addString(str(fn.Filename)))
	}
	for _, l := range prof.Location {
		loc := dic.LocationTable().AppendEmpty()
		loc.SetAddress(l.Address)
		frameKind := libjp.NativeFrame
		for _, line := range l.Line {
			ln := loc.Line().AppendEmpty()
			ln.SetLine(line.Line)
			ln.SetFunctionIndex(int32(line.FunctionId - 1))
			frameKind = libjp.JavaFrame
		}
		attrMgr.appendOptionalString(loc.AttributeIndices(),
			semconv.ProfileFrameTypeKey, frameKind.String())
	}

	rp := profiles.ResourceProfiles().AppendEmpty()
	rp.SetSchemaUrl(semconv.SchemaURL)

	sp := rp.ScopeProfiles().AppendEmpty()
	sp.Scope().SetName(agentName)
	sp.Scope().SetVersion(agentVersion)
	sp.SetSchemaUrl(semconv.SchemaURL)

	profile := sp.Profiles().AppendEmpty()
	for _, st := range prof.SampleType {
		sampleType := profile.SampleType().AppendEmpty()
		sampleType.SetTypeStrindex(addString(str(st.Type)))
		sampleType.SetUnitStrindex(addString(str(st.Unit)))
	}
	if pt := prof.PeriodType; pt != nil {
		profile.PeriodType().SetTypeStrindex(addString(str(pt.Type)))
		profile.PeriodType().SetUnitStrindex(addString(str(pt.Unit)))
	}
	profile.SetPeriod(prof.Period)
	profile.SetTime(pcommon.Timestamp(prof.TimeNanos))
	profile.SetDuration(pcommon.Timestamp(prof.DurationNanos))

	locationIndex := int32(0)
	for _, s := range prof.Sample {
		sample := profile.Sample().AppendEmpty()
		sample.SetLocationsStartIndex(locationIndex)
		for _, locID := range s.LocationId {
			profile.LocationIndices().Append(int32(locID - 1))
		}
		sample.Value().Append(s.Value...)

		for _, label := range s.Label {
			if str(label.Key) == attrLabelName && label.Str != 0 {
				attrMgr.appendOptionalString(sample.AttributeIndices(),
					attribute.Key(attrLabelName), str(label.Str))
			}
		}

		sample.SetLocationsLength(int32(len(s.LocationId)))
		locationIndex += sample.LocationsLength()
	}

	return profiles
}
