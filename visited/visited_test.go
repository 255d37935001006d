package visited_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/checker/fingerprint"
	"github.com/luxfi/checker/visited"
)

func TestInsertIfAbsent(t *testing.T) {
	s := visited.New[string](4)

	fp := fingerprint.Fingerprint(42)
	require.True(t, s.InsertIfAbsent(fp, visited.Ancestry[string]{Action: "flip"}))
	require.False(t, s.InsertIfAbsent(fp, visited.Ancestry[string]{Action: "other"}))

	anc, ok := s.Ancestry(fp)
	require.True(t, ok)
	require.Equal(t, "flip", anc.Action, "first writer wins")
}

func TestContainsAndLen(t *testing.T) {
	s := visited.New[string](1)
	require.False(t, s.Contains(fingerprint.Fingerprint(1)))
	s.InsertIfAbsent(fingerprint.Fingerprint(1), visited.Ancestry[string]{})
	require.True(t, s.Contains(fingerprint.Fingerprint(1)))
	require.Equal(t, 1, s.Len())
}

func TestConcurrentInsertsAreDeduplicated(t *testing.T) {
	s := visited.New[int](8)
	const n = 2000
	var wg sync.WaitGroup
	var inserted [n]bool
	for i := 0; i < n; i++ {
		wg.Add(2)
		fp := fingerprint.Fingerprint(i % 200) // force collisions across goroutines
		go func(i int, fp fingerprint.Fingerprint) {
			defer wg.Done()
			if s.InsertIfAbsent(fp, visited.Ancestry[int]{Action: i}) {
				inserted[i] = true
			}
		}(i, fp)
		go func(fp fingerprint.Fingerprint) {
			defer wg.Done()
			s.Contains(fp)
		}(fp)
	}
	wg.Wait()
	require.Equal(t, 200, s.Len())
}
