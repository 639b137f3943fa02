package trixel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trixelnet/contributor/pkg/errors"
)

var locations = []struct {
	name string
	lat  float64
	lon  float64
}{
	{"hamburg", 53.5511, 9.9937},
	{"nairobi", -1.2921, 36.8219},
	{"sydney", -33.8688, 151.2093},
	{"quito", -0.1807, -78.4678},
	{"reykjavik", 64.1466, -21.9426},
	{"mcmurdo", -77.8419, 166.6863},
}

func TestLocateDeterministic(t *testing.T) {
	for _, loc := range locations {
		t.Run(loc.name, func(t *testing.T) {
			for depth := 0; depth <= 12; depth++ {
				first, err := Locate(loc.lat, loc.lon, depth)
				require.NoError(t, err)

				for range 5 {
					again, err := Locate(loc.lat, loc.lon, depth)
					require.NoError(t, err)
					assert.Equal(t, first, again)
				}
			}
		})
	}
}

func TestLocateRoots(t *testing.T) {
	for _, loc := range locations {
		id, err := Locate(loc.lat, loc.lon, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, id, ID(8), "root trixel for %s", loc.name)
		assert.LessOrEqual(t, id, ID(15), "root trixel for %s", loc.name)

		if loc.lat > 0 {
			assert.GreaterOrEqual(t, id, ID(12), "%s is in the northern hemisphere", loc.name)
		} else {
			assert.LessOrEqual(t, id, ID(11), "%s is in the southern hemisphere", loc.name)
		}
	}
}

func TestLocateParentChain(t *testing.T) {
	for _, loc := range locations {
		for depth := 1; depth <= 12; depth++ {
			child, err := Locate(loc.lat, loc.lon, depth)
			require.NoError(t, err)
			parent, err := Locate(loc.lat, loc.lon, depth-1)
			require.NoError(t, err)

			assert.Equal(t, parent, Parent(child),
				"trixel at depth %d must be contained in the depth %d trixel for %s", depth, depth-1, loc.name)
		}
	}
}

func TestLocateInvalidDepth(t *testing.T) {
	cases := []int{-1, -10, MaxSupportedDepth + 1, 100}
	for _, depth := range cases {
		_, err := Locate(53.5511, 9.9937, depth)
		assert.ErrorIs(t, err, errors.ErrInvalidDepth)
	}
}

func TestDepth(t *testing.T) {
	id, err := Locate(53.5511, 9.9937, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, Depth(id))

	for depth := 1; depth <= MaxSupportedDepth; depth++ {
		id, err := Locate(53.5511, 9.9937, depth)
		require.NoError(t, err)
		assert.Equal(t, depth, Depth(id))
	}
}

func TestParentOfRoot(t *testing.T) {
	assert.Equal(t, ID(9), Parent(ID(9)))
}

func TestDistinctLocationsDiverge(t *testing.T) {
	hamburg, err := Locate(53.5511, 9.9937, 10)
	require.NoError(t, err)
	sydney, err := Locate(-33.8688, 151.2093, 10)
	require.NoError(t, err)

	assert.NotEqual(t, hamburg, sydney)
}
