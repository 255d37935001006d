package fingerprint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/checker/fingerprint"
)

type point struct {
	X, Y int
}

func TestOfIsDeterministic(t *testing.T) {
	a, err := fingerprint.Of(point{1, 2})
	require.NoError(t, err)

	b, err := fingerprint.Of(point{1, 2})
	require.NoError(t, err)

	require.Equal(t, a, b)
}

func TestOfDistinguishesStates(t *testing.T) {
	a := fingerprint.MustOf(point{1, 2})
	b := fingerprint.MustOf(point{2, 1})
	require.NotEqual(t, a, b)
}

func TestOfRejectsUnencodableState(t *testing.T) {
	_, err := fingerprint.Of(func() {})
	require.Error(t, err)

	var serErr *fingerprint.SerializationError
	require.ErrorAs(t, err, &serErr)
}

func TestZeroIsNotAnOrdinaryFingerprint(t *testing.T) {
	// Not a hard guarantee (a real state could theoretically hash to zero),
	// but for the fixtures used across this module's tests it never does,
	// which is what lets callers treat Zero as the "no parent" sentinel.
	require.NotEqual(t, fingerprint.Zero, fingerprint.MustOf(point{0, 0}))
}
