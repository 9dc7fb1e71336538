// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libjp // import "github.com/jvmprof/jvmti-profiler/libjp"

import "fmt"

// FrameKind distinguishes the two sources a sampled frame can come from.
type FrameKind uint8

const (
	// JavaFrame identifies frames resolved against JVM method metadata.
	JavaFrame FrameKind = iota
	// NativeFrame identifies frames captured as raw code addresses.
	NativeFrame
)

// String implements the Stringer interface.
func (kind FrameKind) String() string {
	switch kind {
	case JavaFrame:
		return "jvm"
	case NativeFrame:
		return "native"
	default:
		return fmt.Sprintf("<unknown frame kind %d>", uint8(kind))
	}
}

// Frame represents one frame of a sampled call stack.
//
// A JavaFrame carries the symbol information obtained from the JVM: class and
// method name, the raw JVM type signature of the method, the source file and
// the line number of the sampled bytecode index. A NativeFrame carries only
// the sampled code address in Addr; its symbol fields are empty.
type Frame struct {
	// Kind discriminates which of the remaining fields are meaningful.
	Kind FrameKind

	// Class is the dotted class name, may be empty for VM internal methods.
	Class string
	// Method is the plain method name.
	Method string
	// Signature is the raw JVM method descriptor, e.g. "(ILjava/lang/String;)V".
	Signature string
	// SourceFile is the file name the method was compiled from.
	SourceFile string
	// Line is the source line of the sampled bytecode index, 0 if unknown.
	Line int64

	// Addr is the sampled code address of a NativeFrame.
	Addr Address
}
