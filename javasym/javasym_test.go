// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package javasym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixMethodParameters(t *testing.T) {
	cases := []struct {
		signature, fixed string
	}{
		{"()V", "()"},
		{"(I)I", "(int)"},
		{"([B[B)Z", "(byte[], byte[])"},
		{"([BI)J", "(byte[], int)"},
		{"(Ljava/util/regex/Matcher;ILjava/lang/CharSequence;)Z",
			"(java.util.regex.Matcher, int, java.lang.CharSequence)"},
		{"(Ljava/lang/String;II)V", "(java.lang.String, int, int)"},
		{"([[D)V", "(double[][])"},
		{"([Ljava/lang/String;)V", "(java.lang.String[])"},
		// Malformed descriptors come back unchanged.
		{"([)J", "([)J"},
		{"(Q)V", "(Q)V"},
		{"(Ljava/lang/String)V", "(Ljava/lang/String)V"},
		{"I", "I"},
		{"", ""},
	}

	for _, c := range cases {
		assert.Equal(t, c.fixed, FixMethodParameters(c.signature), "signature %q", c.signature)
	}
}

func TestFixMethodParametersCached(t *testing.T) {
	// Two lookups of the same descriptor go through the cache and stay stable.
	first := FixMethodParameters("(JLjava/lang/Object;)V")
	second := FixMethodParameters("(JLjava/lang/Object;)V")
	assert.Equal(t, "(long, java.lang.Object)", first)
	assert.Equal(t, first, second)
}

func TestSimplifyFunctionName(t *testing.T) {
	cases := []struct {
		name, simplified string
	}{
		{"java.lang.String.indexOf(java.lang.String, int)", "java.lang.String.indexOf"},
		{"com.example.Main.run()", "com.example.Main.run"},
		{"call_stub", "call_stub"},
		{"", ""},
	}

	for _, c := range cases {
		assert.Equal(t, c.simplified, SimplifyFunctionName(c.name))
	}
}
