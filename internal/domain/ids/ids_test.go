package ids

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testULID = "01HYX3KQW7ERTV9XNBM2P8QJZF"

func TestNewULIDReturnsValid(t *testing.T) {
	value, err := NewULID()

	require.NoError(t, err)
	require.NoError(t, ValidateULID(value))
}

func TestNewULIDMonotonic(t *testing.T) {
	generated := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		value, err := NewULID()
		require.NoError(t, err)
		generated = append(generated, value)
	}

	require.True(t, sort.StringsAreSorted(generated))
}

func TestIsULIDAndValidateULID(t *testing.T) {
	require.True(t, IsULID(testULID))
	require.True(t, IsULID(" "+testULID+" "))
	require.NoError(t, ValidateULID(testULID))

	require.False(t, IsULID("not-a-ulid"))
	require.False(t, IsULID("507f1f77bcf86cd799439011"))
	require.ErrorIs(t, ValidateULID("not-a-ulid"), ErrInvalidULID)
}

func TestNormalize(t *testing.T) {
	value, err := Normalize(" " + strings.ToLower(testULID))
	require.NoError(t, err)
	require.Equal(t, testULID, value)

	_, err = Normalize("bad")
	require.ErrorIs(t, err, ErrInvalidULID)
}
