package story_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/story"
)

const sampleManifest = `title: "Night Run"
language: en
scenes:
  - title: "Rooftop chase"
    location: rooftop
    mood: tense
    time_of_day: night
    target_duration: 12
    character_state:
      mira:
        clothing: rain jacket
        emotion: determined
        energy: high
    shots:
      - type: wide
        duration: 4
        motion: slow pan left
        characters: [mira, jex]
      - type: closeup
        duration: 3
        characters: [mira]
        dialogue:
          from: mira
          text: "We go now."
        seed: 42
  - title: "Alley landing"
    location: alley
    mood: calm
    time_of_day: night
    shots:
      - type: medium
        duration: 5
        characters: [jex]
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "episode.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	manifest, err := story.LoadManifest(writeManifest(t, sampleManifest))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	if manifest.Title != "Night Run" || len(manifest.Scenes) != 2 {
		t.Fatalf("manifest = %+v", manifest)
	}
	first := manifest.Scenes[0]
	if first.Location != "rooftop" || first.TimeOfDay != "night" || len(first.Shots) != 2 {
		t.Fatalf("scene = %+v", first)
	}
	if state, ok := first.CharacterState["mira"]; !ok || state.Clothing != "rain jacket" {
		t.Fatalf("character state = %+v", first.CharacterState)
	}
	dialogue := first.Shots[1].Dialogue
	if dialogue == nil || dialogue.From != "mira" || dialogue.Text != "We go now." {
		t.Fatalf("dialogue = %+v", dialogue)
	}
	if first.Shots[1].Seed != 42 {
		t.Fatalf("seed = %d", first.Shots[1].Seed)
	}
}

func TestManifestValidate(t *testing.T) {
	cases := []struct {
		name     string
		manifest story.Manifest
		fragment string
	}{
		{
			name:     "missing title",
			manifest: story.Manifest{Scenes: []story.SceneSpec{{Shots: []story.ShotSpec{{Duration: 1}}}}},
			fragment: "title",
		},
		{
			name:     "no scenes",
			manifest: story.Manifest{Title: "x"},
			fragment: "no scenes",
		},
		{
			name:     "scene without shots",
			manifest: story.Manifest{Title: "x", Scenes: []story.SceneSpec{{Title: "empty"}}},
			fragment: "no shots",
		},
		{
			name: "non-positive duration",
			manifest: story.Manifest{Title: "x", Scenes: []story.SceneSpec{
				{Shots: []story.ShotSpec{{Duration: 0}}},
			}},
			fragment: "duration",
		},
		{
			name: "empty dialogue",
			manifest: story.Manifest{Title: "x", Scenes: []story.SceneSpec{
				{Shots: []story.ShotSpec{{Duration: 2, Dialogue: &story.Dialogue{From: "mira", Text: "  "}}}},
			}},
			fragment: "dialogue",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.manifest.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.fragment) {
				t.Fatalf("error %q missing %q", err.Error(), tc.fragment)
			}
		})
	}
}
