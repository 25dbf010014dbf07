package recordings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calldoc/backend/internal/models"
)

func TestEncodeSegments_NilBecomesEmptyArray(t *testing.T) {
	raw, err := encodeSegments(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestSegmentsCodec(t *testing.T) {
	in := []models.PausedRange{{StartMs: 60000, EndMs: 90000}, {StartMs: 120000, EndMs: 125000}}
	raw, err := encodeSegments(in)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"start_ms":60000,"end_ms":90000},{"start_ms":120000,"end_ms":125000}]`, string(raw))

	out, err := decodeSegments(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeSegments_EmptyAndInvalid(t *testing.T) {
	out, err := decodeSegments(nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = decodeSegments([]byte("null"))
	require.NoError(t, err)
	assert.NotNil(t, out)

	_, err = decodeSegments([]byte("{"))
	assert.Error(t, err)
}
