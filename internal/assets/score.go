package assets

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	fullBodyBonus    = 0.15
	faceOnlyPenalty  = 0.10
	autoNamePenalty  = 0.05
	brightnessWeight = 0.4
	sharpnessWeight  = 0.6
)

var (
	fullBodyNameRE = regexp.MustCompile(`(?i)(full[_-]?body|standing|wide)`)
	faceOnlyNameRE = regexp.MustCompile(`(?i)(face|closeup|close[_-]?up|portrait|head)`)
	autoNameRE     = regexp.MustCompile(`(?i)^(img|image|gen|output|untitled|comfyui|screenshot)?[_-]?\d{2,}[_-]?$`)
)

// ImageScore breaks down why an image ranked where it did.
type ImageScore struct {
	Path       string
	Brightness float64
	Sharpness  float64
	FullBody   bool
	FaceOnly   bool
	AutoNamed  bool
	Total      float64
}

// ScoreImage decodes the image at path and scores it for use as a generation
// reference given the shot's framing (wide, medium, closeup). Scores are in
// roughly [0, 1.15]; higher is better.
func ScoreImage(path, shotType string) (ImageScore, error) {
	file, err := os.Open(path)
	if err != nil {
		return ImageScore{}, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return ImageScore{}, err
	}

	score := ImageScore{Path: path}
	score.Brightness = brightnessScore(img)
	score.Sharpness = sharpnessScore(img)
	score.Total = brightnessWeight*score.Brightness + sharpnessWeight*score.Sharpness

	stem := fileStem(path)
	score.FullBody = fullBodyNameRE.MatchString(stem)
	score.FaceOnly = !score.FullBody && faceOnlyNameRE.MatchString(stem)
	score.AutoNamed = IsAutoGeneratedName(path)

	// The full-body bonus is framing-conditional; the face-only penalty is not.
	if score.FullBody && wantsFullBody(shotType) {
		score.Total += fullBodyBonus
	}
	if score.FaceOnly {
		score.Total -= faceOnlyPenalty
	}
	if score.AutoNamed {
		score.Total -= autoNamePenalty
	}
	if score.Total < 0 {
		score.Total = 0
	}
	return score, nil
}

// IsAutoGeneratedName reports whether the filename looks machine-produced
// (batch counters, bare numbers). Curated pool images carry descriptive names;
// an auto-generated name suggests the file skipped review.
func IsAutoGeneratedName(path string) bool {
	return autoNameRE.MatchString(fileStem(path))
}

func wantsFullBody(shotType string) bool {
	switch strings.ToLower(strings.TrimSpace(shotType)) {
	case "closeup", "close-up", "close_up", "insert":
		return false
	default:
		return true
	}
}

func fileStem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// brightnessScore rewards mid-range exposure. A mean luma of 0.5 scores 1.0,
// falling off linearly toward pure black or white.
func brightnessScore(img image.Image) float64 {
	mean := meanLuma(img)
	return 1 - 2*math.Abs(mean-0.5)
}

// sharpnessScore approximates focus with mean absolute luma gradient across
// neighboring pixels, scaled so typical in-focus renders land near 1.0.
func sharpnessScore(img image.Image) float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width < 2 || height < 2 {
		return 0
	}

	stepX := sampleStep(width)
	stepY := sampleStep(height)

	var total float64
	var count int
	for y := bounds.Min.Y; y < bounds.Max.Y-1; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X-1; x += stepX {
			here := luma(img, x, y)
			total += math.Abs(luma(img, x+1, y)-here) + math.Abs(luma(img, x, y+1)-here)
			count += 2
		}
	}
	if count == 0 {
		return 0
	}
	// Mean gradients above ~0.08 are as sharp as renders get.
	score := (total / float64(count)) / 0.08
	if score > 1 {
		score = 1
	}
	return score
}

func meanLuma(img image.Image) float64 {
	bounds := img.Bounds()
	stepX := sampleStep(bounds.Dx())
	stepY := sampleStep(bounds.Dy())

	var total float64
	var count int
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			total += luma(img, x, y)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func luma(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	return (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)) / 65535
}

// sampleStep keeps per-image work bounded to roughly 256 samples per axis.
func sampleStep(extent int) int {
	step := extent / 256
	if step < 1 {
		return 1
	}
	return step
}
