package assets_test

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/assets"
)

// writePNG renders a checkerboard with the given tile size; smaller tiles mean
// more edges and a sharper image.
func writePNG(t *testing.T, path string, light, dark color.Gray, tile int) {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if ((x/tile)+(y/tile))%2 == 0 {
				img.SetGray(x, y, light)
			} else {
				img.SetGray(x, y, dark)
			}
		}
	}

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestScoreImagePrefersBalancedExposure(t *testing.T) {
	dir := t.TempDir()

	balanced := filepath.Join(dir, "mira-standing.png")
	writePNG(t, balanced, color.Gray{Y: 180}, color.Gray{Y: 80}, 2)

	dark := filepath.Join(dir, "mira-dark.png")
	writePNG(t, dark, color.Gray{Y: 30}, color.Gray{Y: 10}, 2)

	balancedScore, err := assets.ScoreImage(balanced, "wide")
	if err != nil {
		t.Fatalf("ScoreImage: %v", err)
	}
	darkScore, err := assets.ScoreImage(dark, "wide")
	if err != nil {
		t.Fatalf("ScoreImage: %v", err)
	}
	if balancedScore.Total <= darkScore.Total {
		t.Fatalf("balanced %.3f should beat dark %.3f", balancedScore.Total, darkScore.Total)
	}
}

func TestScoreImageFramingModifiers(t *testing.T) {
	dir := t.TempDir()

	fullBody := filepath.Join(dir, "mira-full_body.png")
	writePNG(t, fullBody, color.Gray{Y: 180}, color.Gray{Y: 80}, 2)

	faceOnly := filepath.Join(dir, "mira-closeup.png")
	writePNG(t, faceOnly, color.Gray{Y: 180}, color.Gray{Y: 80}, 2)

	plain := filepath.Join(dir, "mira.png")
	writePNG(t, plain, color.Gray{Y: 180}, color.Gray{Y: 80}, 2)

	fullScore, err := assets.ScoreImage(fullBody, "wide")
	if err != nil {
		t.Fatalf("ScoreImage: %v", err)
	}
	faceScore, err := assets.ScoreImage(faceOnly, "wide")
	if err != nil {
		t.Fatalf("ScoreImage: %v", err)
	}
	plainScore, err := assets.ScoreImage(plain, "wide")
	if err != nil {
		t.Fatalf("ScoreImage: %v", err)
	}

	if !fullScore.FullBody {
		t.Fatal("full_body name should be detected")
	}
	if !faceScore.FaceOnly {
		t.Fatal("closeup name should be detected")
	}
	if fullScore.Total <= plainScore.Total {
		t.Fatalf("full body %.3f should beat plain %.3f for a wide shot", fullScore.Total, plainScore.Total)
	}
	if faceScore.Total >= plainScore.Total {
		t.Fatalf("face only %.3f should trail plain %.3f for a wide shot", faceScore.Total, plainScore.Total)
	}

	// A closeup shot withholds the full-body bonus, but a face-only crop is
	// penalized whatever the framing.
	fullForCloseup, err := assets.ScoreImage(fullBody, "closeup")
	if err != nil {
		t.Fatalf("ScoreImage: %v", err)
	}
	faceForCloseup, err := assets.ScoreImage(faceOnly, "closeup")
	if err != nil {
		t.Fatalf("ScoreImage: %v", err)
	}
	plainForCloseup, err := assets.ScoreImage(plain, "closeup")
	if err != nil {
		t.Fatalf("ScoreImage: %v", err)
	}
	if fullForCloseup.Total != plainForCloseup.Total {
		t.Fatalf("closeup framing should withhold the bonus: %.3f vs %.3f", fullForCloseup.Total, plainForCloseup.Total)
	}
	if faceForCloseup.Total >= plainForCloseup.Total {
		t.Fatalf("face only %.3f should trail plain %.3f even for a closeup", faceForCloseup.Total, plainForCloseup.Total)
	}
}

func TestIsAutoGeneratedName(t *testing.T) {
	auto := []string{"IMG_0042.png", "output-123.jpg", "00123.png", "comfyui_00017_.png"}
	for _, name := range auto {
		if !assets.IsAutoGeneratedName(name) {
			t.Fatalf("%q should look auto-generated", name)
		}
	}
	curated := []string{"mira-full_body.png", "jex-portrait.jpg", "rooftop-wide.png"}
	for _, name := range curated {
		if assets.IsAutoGeneratedName(name) {
			t.Fatalf("%q should look curated", name)
		}
	}
}

func TestScoreImageAutoNamePenalty(t *testing.T) {
	dir := t.TempDir()

	named := filepath.Join(dir, "mira-rooftop.png")
	writePNG(t, named, color.Gray{Y: 180}, color.Gray{Y: 80}, 2)

	auto := filepath.Join(dir, "IMG_0042.png")
	writePNG(t, auto, color.Gray{Y: 180}, color.Gray{Y: 80}, 2)

	namedScore, err := assets.ScoreImage(named, "wide")
	if err != nil {
		t.Fatalf("ScoreImage: %v", err)
	}
	autoScore, err := assets.ScoreImage(auto, "wide")
	if err != nil {
		t.Fatalf("ScoreImage: %v", err)
	}
	if autoScore.Total >= namedScore.Total {
		t.Fatalf("auto-named %.3f should trail curated %.3f", autoScore.Total, namedScore.Total)
	}
}
