package sholl

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLUT(t *testing.T) {
	assert.Equal(t, []string{"fire", "grays", "ice"}, LUTNames())

	for _, name := range LUTNames() {
		pal, err := LUT(name)
		require.NoError(t, err, name)
		require.Len(t, pal, 256)
		assert.Equal(t, color.RGBA{0, 0, 0, 255}, pal[0], name)
		assert.Equal(t, color.RGBA{255, 255, 255, 255}, pal[255], name)
	}

	grays, err := LUT("GRAYS")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{128, 128, 128, 255}, grays[128])

	_, err = LUT("viridis")
	assert.Error(t, err)
}
