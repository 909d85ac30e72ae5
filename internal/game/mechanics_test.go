package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoyageMetrics_HongKongToShanghai(t *testing.T) {
	u := mustUniverse(t)

	v, err := u.VoyageMetrics("hong_kong", "shanghai")
	require.NoError(t, err)

	assert.Equal(t, 1229, v.DistanceKm)
	assert.Equal(t, 664, v.DistanceNm)
	// round(20 * 1.10) + round(1229 * 0.1)
	assert.Equal(t, 22+123, v.Fee)
}

func TestVoyageMetrics_DeterministicAndSymmetric(t *testing.T) {
	u := mustUniverse(t)

	for _, a := range u.Ports {
		for _, b := range u.Ports {
			ab, err := u.VoyageMetrics(a.Key, b.Key)
			require.NoError(t, err)
			again, err := u.VoyageMetrics(a.Key, b.Key)
			require.NoError(t, err)
			ba, err := u.VoyageMetrics(b.Key, a.Key)
			require.NoError(t, err)

			assert.Equal(t, ab, again, "%s -> %s", a.Key, b.Key)
			assert.Equal(t, ab.DistanceKm, ba.DistanceKm, "%s <-> %s", a.Key, b.Key)
			assert.Equal(t, ab.DistanceNm, ba.DistanceNm)
		}
	}

	// Fees depend on the destination.
	toBatavia, _ := u.VoyageMetrics("singapore", "batavia")
	toSingapore, _ := u.VoyageMetrics("batavia", "singapore")
	assert.Equal(t, toBatavia.DistanceKm, toSingapore.DistanceKm)
	assert.Greater(t, toBatavia.Fee, toSingapore.Fee)
}

func TestVoyageMetrics_UnknownPort(t *testing.T) {
	u := mustUniverse(t)
	_, err := u.VoyageMetrics("hong_kong", "atlantis")
	assert.ErrorIs(t, err, ErrInvalidDestination)
}

func TestWearLoss(t *testing.T) {
	u := mustUniverse(t)

	assert.Equal(t, 2, u.WearLoss(1229, script(nil, 0)))
	assert.Equal(t, 5, u.WearLoss(1229, script(nil, 3)))
	assert.Equal(t, 0, u.WearLoss(0, script(nil, 0)))
	assert.Equal(t, 5, u.WearLoss(3266, script(nil, 0)))
}

func TestPirateChance(t *testing.T) {
	u := mustUniverse(t)
	assert.InDelta(t, 0.28, u.PirateChance(false), 1e-9)
	assert.InDelta(t, 0.28*0.33, u.PirateChance(true), 1e-9)
}

func TestProtectionFee(t *testing.T) {
	u := mustUniverse(t)
	assert.Equal(t, 510, u.ProtectionFee(1))
	assert.Equal(t, 600, u.ProtectionFee(10))
}
