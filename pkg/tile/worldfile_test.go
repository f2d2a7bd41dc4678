package tile_test

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/EddyBeaupre/MapTileDownloader/pkg/tile"
	"github.com/stretchr/testify/require"
)

func TestWorldFilePath(t *testing.T) {
	tests := []struct {
		image string
		want  string
	}{
		{"map.png", "map.pgw"},
		{"map.tif", "map.tfw"},
		{"map.jpeg", "map.jgw"},
		{"map.bmp", "map.bpw"},
		{"dir/map.v2.png", "dir/map.v2.pgw"},
		{"map", "map.wld"},
		{"map.io", "map.io.wld"},
	}

	for _, tc := range tests {
		require.Equalf(t, tc.want, tile.WorldFilePath(tc.image), "image %q", tc.image)
	}
}

func TestWriteWorldFile(t *testing.T) {
	imagePath := filepath.Join(t.TempDir(), "out.png")

	path, err := tile.WriteWorldFile(imagePath, 9.554, 9.554, -7437597.25, 6445535.5)
	require.NoError(t, err)
	require.Equal(t, tile.WorldFilePath(imagePath), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 6)

	values := make([]float64, 6)
	for i, line := range lines {
		values[i], err = strconv.ParseFloat(strings.TrimSpace(line), 64)
		require.NoError(t, err)
	}

	require.InDelta(t, 9.554, values[0], 1e-9)
	require.Zero(t, values[1])
	require.Zero(t, values[2])
	require.InDelta(t, -9.554, values[3], 1e-9)
	require.InDelta(t, -7437597.25, values[4], 1e-9)
	require.InDelta(t, 6445535.5, values[5], 1e-9)
}

func TestWriteWorldFileNeedsPath(t *testing.T) {
	_, err := tile.WriteWorldFile("", 1, 1, 0, 0)
	require.Error(t, err)
}
