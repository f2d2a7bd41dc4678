package tile

import (
	"fmt"
	"os"
	"strings"
)

// WorldFilePath derives the georeferencing sidecar path for an image:
// the extension's first and last letters plus 'w', so image.png maps
// to image.pgw and image.tif to image.tfw.
func WorldFilePath(imagePath string) string {
	idx := strings.LastIndex(imagePath, ".")
	if idx == -1 || len(imagePath)-idx-1 < 3 {
		return imagePath + ".wld"
	}
	ext := imagePath[idx+1:]
	return imagePath[:idx+1] + string(ext[0]) + string(ext[len(ext)-1]) + "w"
}

// WriteWorldFile writes the world file next to imagePath and returns
// the path it wrote. Arguments are EPSG:3857 meters: the per-pixel
// ground resolution and the top-left corner of the raster.
func WriteWorldFile(imagePath string, pixelSizeX, pixelSizeY, originX, originY float64) (string, error) {
	if imagePath == "" {
		return "", fmt.Errorf("tile: world file needs an image path")
	}

	path := WorldFilePath(imagePath)
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	// Line order: x pixel size, rotation, rotation, negated y pixel
	// size, x of the top-left pixel, y of the top-left pixel.
	fmt.Fprintf(file, "%24.10f\n", pixelSizeX)
	fmt.Fprintf(file, "%24.10f\n", 0.0)
	fmt.Fprintf(file, "%24.10f\n", 0.0)
	fmt.Fprintf(file, "%24.10f\n", -pixelSizeY)
	fmt.Fprintf(file, "%24.10f\n", originX)
	fmt.Fprintf(file, "%24.10f\n", originY)

	return path, nil
}
