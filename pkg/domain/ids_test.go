package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "archgate/pkg/domain-errors"
)

// TestParseID_Invariants validates the parsing invariant:
// "IDs must be positive decimal integers"
//
// Justification: pure function enforcing a domain invariant at trust boundaries.
func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseObjectID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero", func(t *testing.T) {
		_, err := ParseUserID("0")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects negative", func(t *testing.T) {
		_, err := ParseObjectID("-4")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts positive integer", func(t *testing.T) {
		id, err := ParseObjectID("4211")
		require.NoError(t, err)
		assert.Equal(t, ObjectID(4211), id)
	})
}

func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "1; DROP TABLE objects;--", true},
		{"Null byte injection", "12\x0034", true},
		{"Oversized input", strings.Repeat("9", 40), true},
		{"Overflow", "9223372036854775808", true},
		{"Leading whitespace", " 12", true},
		{"Hex", "0x1f", true},
		{"Max int64", "9223372036854775807", false},
		{"Plain", "17", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUserID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestUserID_Anonymous(t *testing.T) {
	assert.True(t, AnonymousUser.IsAnonymous())
	assert.Nil(t, AnonymousUser.Ptr())
	assert.Equal(t, "anonymous", AnonymousUser.String())

	u := UserID(42)
	assert.False(t, u.IsAnonymous())
	require.NotNil(t, u.Ptr())
	assert.Equal(t, int64(42), *u.Ptr())
}

func TestObjectID_Validity(t *testing.T) {
	assert.False(t, ObjectID(0).IsValid())
	assert.False(t, ObjectID(-1).IsValid())
	assert.True(t, ObjectID(1).IsValid())
	assert.Equal(t, "1", ObjectID(1).String())
}
