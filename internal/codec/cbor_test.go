// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicEncoding(t *testing.T) {
	a := map[string]int{"zeta": 1, "alpha": 2, "mid": 3}
	b := map[string]int{"mid": 3, "alpha": 2, "zeta": 1}

	ea, err := Marshal(a)
	require.NoError(t, err)
	eb, err := Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, ea, eb, "map key order must not affect encoding")
}

func TestAnyMapsDecodeWithStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"op": "startTv", "ints": []int{1}})
	require.NoError(t, err)

	var out any
	require.NoError(t, Unmarshal(data, &out))
	m, ok := out.(map[string]any)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "startTv", m["op"])
}

func TestUnknownFieldsIgnored(t *testing.T) {
	type v2 struct {
		Op    string `cbor:"op"`
		Extra string `cbor:"extra"`
	}
	type v1 struct {
		Op string `cbor:"op"`
	}
	data, err := Marshal(v2{Op: "stopTv", Extra: "x"})
	require.NoError(t, err)

	var got v1
	require.NoError(t, Unmarshal(data, &got))
	assert.Equal(t, "stopTv", got.Op)
}

func TestStreamFraming(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(map[string]int{"n": 1}))
	require.NoError(t, enc.Encode(map[string]int{"n": 2}))

	dec := NewDecoder(&buf)
	for want := 1; want <= 2; want++ {
		var got map[string]int
		require.NoError(t, dec.Decode(&got))
		assert.Equal(t, want, got["n"])
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]int{"a": 1})
	require.NoError(t, err)
	diag, err := Diagnose(data)
	require.NoError(t, err)
	assert.Contains(t, diag, `"a"`)
}

type level int

func (l level) MarshalText() ([]byte, error) {
	return []byte([]string{"low", "high"}[l]), nil
}

func (l *level) UnmarshalText(b []byte) error {
	switch string(b) {
	case "low":
		*l = 0
	case "high":
		*l = 1
	default:
		return assert.AnError
	}
	return nil
}

func TestTextMarshalersTravelAsStrings(t *testing.T) {
	data, err := Marshal(map[string]level{"volume": 1})
	require.NoError(t, err)

	diag, err := Diagnose(data)
	require.NoError(t, err)
	assert.Equal(t, `{"volume": "high"}`, diag)

	var got map[string]level
	require.NoError(t, Unmarshal(data, &got))
	assert.Equal(t, level(1), got["volume"])

	bad, err := Marshal(map[string]string{"volume": "loud"})
	require.NoError(t, err)
	assert.Error(t, Unmarshal(bad, &got))
}
