package output

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nfnt/resize"
)

// DefaultFrameDelay is how long every month stays on screen.
const DefaultFrameDelay = 500 * time.Millisecond

// frame palette: web-safe colors plus a transparent entry for pixels outside the region.
var framePalette = append(color.Palette{color.Transparent}, palette.WebSafe...)

// CreateTimelapse animates the thumbnails in the given order, looping forever. Images are
// scaled to the size of the first one.
func CreateTimelapse(imagePaths []string, outputPath string, delay time.Duration) error {
	if len(imagePaths) == 0 {
		return fmt.Errorf("no images for timelapse")
	}
	if !strings.HasSuffix(outputPath, ".gif") {
		outputPath += ".gif"
	}
	if delay <= 0 {
		delay = DefaultFrameDelay
	}
	hundredths := int(delay / (10 * time.Millisecond))

	anim := &gif.GIF{}
	var bounds image.Rectangle
	for i, path := range imagePaths {
		img, err := decodeImage(path)
		if err != nil {
			return err
		}
		if i == 0 {
			bounds = img.Bounds()
		} else if img.Bounds().Size() != bounds.Size() {
			img = resize.Resize(uint(bounds.Dx()), uint(bounds.Dy()), img, resize.NearestNeighbor)
		}

		frame := image.NewPaletted(image.Rect(0, 0, bounds.Dx(), bounds.Dy()), framePalette)
		draw.Draw(frame, frame.Bounds(), img, img.Bounds().Min, draw.Src)
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, hundredths)
		anim.Disposal = append(anim.Disposal, gif.DisposalBackground)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create timelapse folder: %w", err)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := gif.EncodeAll(file, anim); err != nil {
		return fmt.Errorf("failed to encode timelapse: %w", err)
	}
	slog.Info("timelapse saved", "path", outputPath, "frames", len(anim.Image))
	return nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}
