// ABOUTME: Tests for payload decoding from mappings and JSON
// ABOUTME: Verifies field type checks and the InvalidInputError contract

package roster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHostInfo(t *testing.T) {
	info, err := DecodeHostInfo(map[string]any{
		"public_ip":     "1.2.3.4",
		"mac_address":   "AA:BB:CC:DD:EE:FF",
		"administrator": 1,
		"latitude":      51.5,
		"longitude":     "-0.12",
		"owner":         nil,
		"unknown":       []any{1, 2},
	})
	require.NoError(t, err)

	assert.Empty(t, info.UID)
	require.NotNil(t, info.Attributes.PublicIP)
	assert.Equal(t, "1.2.3.4", *info.Attributes.PublicIP)
	require.NotNil(t, info.Attributes.Administrator)
	assert.True(t, *info.Attributes.Administrator)
	require.NotNil(t, info.Attributes.Latitude)
	assert.InDelta(t, 51.5, *info.Attributes.Latitude, 1e-9)
	require.NotNil(t, info.Attributes.Longitude)
	assert.InDelta(t, -0.12, *info.Attributes.Longitude, 1e-9)
	assert.Nil(t, info.Attributes.Owner)
	assert.Nil(t, info.Attributes.Platform)
}

func TestDecodeHostInfo_WrongTypes(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		field   string
	}{
		{"uid not string", map[string]any{"uid": 12}, "uid"},
		{"ip not string", map[string]any{"public_ip": true}, "public_ip"},
		{"administrator not boolean", map[string]any{"administrator": "yes"}, "administrator"},
		{"administrator out of range", map[string]any{"administrator": 2}, "administrator"},
		{"latitude not number", map[string]any{"latitude": "north"}, "latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeHostInfo(tt.payload)
			var invalid *InvalidInputError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tt.field, invalid.Field)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestDecodeHostInfo_Nil(t *testing.T) {
	_, err := DecodeHostInfo(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseHostInfo(t *testing.T) {
	info, err := ParseHostInfo([]byte(`{"uid": "agent-1", "latitude": 12, "administrator": false}`))
	require.NoError(t, err)
	assert.Equal(t, "agent-1", info.UID)
	assert.InDelta(t, 12.0, *info.Attributes.Latitude, 1e-9)
	assert.False(t, *info.Attributes.Administrator)

	_, err = ParseHostInfo([]byte(`["not", "an", "object"]`))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseHostInfo([]byte(`{broken`))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDecodeTaskPayload(t *testing.T) {
	issue, err := DecodeTaskPayload(map[string]any{"session": "abc", "task": "whoami"})
	require.NoError(t, err)
	assert.False(t, issue.Completion())

	complete, err := DecodeTaskPayload(map[string]any{"uid": "t1", "result": "root"})
	require.NoError(t, err)
	assert.True(t, complete.Completion())
	assert.Equal(t, "root", *complete.Result)

	_, err = DecodeTaskPayload(map[string]any{"session": "abc"})
	var invalid *InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "task", invalid.Field)

	_, err = DecodeTaskPayload(map[string]any{"uid": "t1", "result": 5})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseTaskPayload(t *testing.T) {
	p, err := ParseTaskPayload([]byte(`{"session": "abc", "task": "ls -la"}`))
	require.NoError(t, err)
	assert.Equal(t, "ls -la", p.Task)

	_, err = ParseTaskPayload([]byte(`"just a string"`))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInvalidInputError_Message(t *testing.T) {
	err := &InvalidInputError{Field: "uid", Reason: "must be a string"}
	assert.Equal(t, `invalid input: field "uid" must be a string`, err.Error())

	err = &InvalidInputError{Reason: "host description must be a mapping"}
	assert.Equal(t, "invalid input: host description must be a mapping", err.Error())
}
