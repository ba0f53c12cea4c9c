package fleet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/fleet-engine/fleet"
)

func TestBasketTier_Boundaries(t *testing.T) {
	// Each boundary of the tier table, both sides.
	cases := []struct {
		count       int
		basket      string
		basketShare string
	}{
		{85, "0", "0"},
		{86, "300", "200"},
		{90, "300", "200"},
		{91, "600", "400"},
		{100, "600", "400"},
		{101, "1000", "700"},
		{250, "1000", "700"},
		{0, "0", "0"},
	}

	for _, tc := range cases {
		basket, share := fleet.BasketTier(tc.count)
		assert.Equal(t, tc.basket, basket.String(), "count=%d basket", tc.count)
		assert.Equal(t, tc.basketShare, share.String(), "count=%d share", tc.count)
	}
}
