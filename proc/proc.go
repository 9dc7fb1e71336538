// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package proc extracts information from the /proc filesystem.
package proc // import "github.com/jvmprof/jvmti-profiler/proc"

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/jvmprof/jvmti-profiler/libjp"
)

const defaultMapsPath = "/proc/self/maps"

// Mapping is one executable memory mapping of the process.
type Mapping struct {
	// Start is the first address of the mapping.
	Start libjp.Address
	// Limit is the first address past the mapping.
	Limit libjp.Address
	// Name is the path of the backing file, or a pseudo name like [vdso].
	Name string
}

// ProcessInfo holds the executable memory mappings of the own process. It is
// refreshed at the start of a collection interval and read during profile
// serialization, both from the collecting thread, so access is not
// synchronized.
type ProcessInfo struct {
	mapsPath string
	mappings []Mapping
}

// NewProcessInfo returns a ProcessInfo reading from /proc/self/maps. The
// mapping list is empty until the first Refresh call.
func NewProcessInfo() *ProcessInfo {
	return &ProcessInfo{mapsPath: defaultMapsPath}
}

// Refresh re-reads the memory mappings of the process.
func (pi *ProcessInfo) Refresh() error {
	file, err := os.Open(pi.mapsPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", pi.mapsPath, err)
	}
	defer file.Close()

	pi.mappings = parseMappings(file)
	return nil
}

// Mappings returns the executable mappings found by the last Refresh, in
// /proc/self/maps order. The returned slice stays valid until the next
// Refresh call.
func (pi *ProcessInfo) Mappings() []Mapping {
	return pi.mappings
}

// parseMappings reads a /proc/PID/maps formatted stream and returns the
// executable mappings that have a name. Anonymous executable mappings (JIT
// areas) are skipped, they are reported through compiled-code ranges instead.
// Unparseable lines are skipped as well.
func parseMappings(mapsFile io.Reader) []Mapping {
	mappings := make([]Mapping, 0, 32)
	scanner := bufio.NewScanner(mapsFile)
	for scanner.Scan() {
		line := scanner.Text()

		var fields [6]string
		if fieldsN(line, fields[:]) < 6 {
			continue
		}

		flags := fields[1]
		if len(flags) < 3 || flags[2] != 'x' {
			continue
		}

		name := strings.TrimSuffix(fields[5], " (deleted)")
		if name == "" {
			continue
		}

		startStr, limitStr, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		start, err := strconv.ParseUint(startStr, 16, 64)
		if err != nil {
			log.Debugf("Failed to parse mapping start %q: %v", startStr, err)
			continue
		}
		limit, err := strconv.ParseUint(limitStr, 16, 64)
		if err != nil {
			log.Debugf("Failed to parse mapping limit %q: %v", limitStr, err)
			continue
		}

		mappings = append(mappings, Mapping{
			Start: libjp.Address(start),
			Limit: libjp.Address(limit),
			Name:  name,
		})
	}
	return mappings
}

// fieldsN splits s on whitespace into at most len(fields) fields, like the
// fields of a /proc/PID/maps line. The last field receives the trimmed
// remainder of the line, so a path containing spaces stays intact. The number
// of parsed fields is returned.
func fieldsN(s string, fields []string) int {
	n := 0
	for n < len(fields)-1 {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			return n
		}
		sep := strings.IndexAny(s, " \t")
		if sep < 0 {
			fields[n] = s
			return n + 1
		}
		fields[n] = s[:sep]
		s = s[sep+1:]
		n++
	}
	fields[n] = strings.Trim(s, " \t")
	return n + 1
}
