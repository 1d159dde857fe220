package hasher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coho-storage/blobwarden/core"
)

func TestDigestMandatoryAlgorithms(t *testing.T) {
	sums := Digest([]byte("hello blob"))

	require.Contains(t, sums, core.AlgoSha256)
	require.Contains(t, sums, core.AlgoSha512)

	require.Len(t, sums[core.AlgoSha256], 64)
	require.Len(t, sums[core.AlgoSha512], 128)

	for algo, digest := range sums {
		require.Equalf(t, strings.ToLower(digest), digest, "digest for %s not lowercase", algo)
	}
}

func TestDigestDeterministic(t *testing.T) {
	payload := []byte("same payload")
	require.Equal(t, Digest(payload), Digest(payload))
}

func TestDigestDistinguishesPayloads(t *testing.T) {
	a := Digest([]byte("payload a"))
	b := Digest([]byte("payload b"))

	require.False(t, a.Equal(b))
	require.NotEmpty(t, a.Diff(b))
}

func TestChecksumComparisonSymmetric(t *testing.T) {
	a := Digest([]byte("left"))
	b := Digest([]byte("right"))

	require.Equal(t, a.Equal(b), b.Equal(a))
	require.Equal(t, len(a.Diff(b)), len(b.Diff(a)))

	c := Digest([]byte("left"))
	require.True(t, a.Equal(c))
	require.True(t, c.Equal(a))
}

func TestDiffIgnoresMissingOptionalAlgo(t *testing.T) {
	a := Digest([]byte("payload"))

	b := core.ChecksumSet{}
	for algo, digest := range a {
		b[algo] = digest
	}
	delete(b, core.AlgoBlake2b256)

	require.True(t, a.Equal(b))

	delete(b, core.AlgoSha512)
	require.False(t, a.Equal(b))
}
