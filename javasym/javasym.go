// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package javasym converts JVM internal symbol encodings into the readable
// form used in reported profiles.
//
// Method descriptors are specified in the Java Virtual Machine Specification
// (JVMS) §4.3, https://docs.oracle.com/javase/specs/jvms/se14/jvms14.pdf.
package javasym // import "github.com/jvmprof/jvmti-profiler/javasym"

import (
	"strings"

	"github.com/elastic/go-freelru"
	"github.com/zeebo/xxh3"
)

// javaBaseTypes maps a basic type signature character to the full type name
var javaBaseTypes = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'V': "void",
	'Z': "boolean",
}

// Descriptors repeat heavily across the frames of a collection interval, the
// cache keeps the common ones from being re-parsed.
const descriptorCacheSize = 4096

var descriptorCache *freelru.SyncedLRU[string, string]

func init() {
	var err error
	descriptorCache, err = freelru.NewSynced[string, string](descriptorCacheSize, hashString)
	if err != nil {
		panic(err)
	}
}

// hashString is a helper function for LRUs that use string as a key.
func hashString(s string) uint32 {
	return uint32(xxh3.HashString(s))
}

// expandTypeSignature writes the readable form of the first type in sig to sb
// and returns the unconsumed remainder. ok is false if sig does not start
// with a valid type signature.
func expandTypeSignature(sig string, sb *strings.Builder) (rest string, ok bool) {
	var i, numArr int
	for i = 0; i < len(sig) && sig[i] == '['; i++ {
		numArr++
	}
	if i >= len(sig) {
		return "", false
	}

	typeChar := sig[i]
	i++

	if typeChar == 'L' {
		end := strings.IndexByte(sig, ';')
		if end < 0 {
			return "", false
		}
		sb.WriteString(strings.ReplaceAll(sig[i:end], "/", "."))
		i = end + 1
	} else if typeStr, found := javaBaseTypes[typeChar]; found {
		sb.WriteString(typeStr)
	} else {
		return "", false
	}

	for range numArr {
		sb.WriteString("[]")
	}
	return sig[i:], true
}

// FixMethodParameters rewrites a JVM method descriptor such as
// "(ILjava/lang/String;)V" into the readable parameter list
// "(int, java.lang.String)". The return type is dropped. Descriptors that do
// not parse are returned unchanged so the caller still has a best-effort
// name to report.
func FixMethodParameters(signature string) string {
	if signature == "" {
		return ""
	}
	if fixed, ok := descriptorCache.Get(signature); ok {
		return fixed
	}
	fixed, ok := fixMethodParameters(signature)
	if !ok {
		fixed = signature
	}
	descriptorCache.Add(signature, fixed)
	return fixed
}

func fixMethodParameters(signature string) (string, bool) {
	// Signature looks like "(argumentsSignatures)returnValueSignature".
	end := strings.IndexByte(signature, ')')
	if end < 0 || signature[0] != '(' {
		return "", false
	}

	var sb strings.Builder
	sb.WriteByte('(')
	left := signature[1:end]
	for left != "" {
		if sb.Len() > 1 {
			sb.WriteString(", ")
		}
		var ok bool
		left, ok = expandTypeSignature(left, &sb)
		if !ok {
			return "", false
		}
	}
	sb.WriteByte(')')
	return sb.String(), true
}

// SimplifyFunctionName derives the display form of a decorated frame name by
// cutting off the parameter list.
func SimplifyFunctionName(name string) string {
	if i := strings.IndexByte(name, '('); i >= 0 {
		return name[:i]
	}
	return name
}
