package story

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dialogue is one spoken line attached to a shot.
type Dialogue struct {
	From string `yaml:"from"`
	Text string `yaml:"text"`
}

// ShotSpec describes one planned shot.
type ShotSpec struct {
	Type       string    `yaml:"type"`
	Duration   float64   `yaml:"duration"`
	Motion     string    `yaml:"motion"`
	Characters []string  `yaml:"characters"`
	Dialogue   *Dialogue `yaml:"dialogue"`
	Seed       int64     `yaml:"seed"`
	Steps      int       `yaml:"steps"`
}

// CharacterState is the optional narrative overlay for one character within a
// scene.
type CharacterState struct {
	Clothing string `yaml:"clothing"`
	Injuries string `yaml:"injuries"`
	Emotion  string `yaml:"emotion"`
	Energy   string `yaml:"energy"`
}

// SceneSpec describes one scene and its shots.
type SceneSpec struct {
	Title          string                    `yaml:"title"`
	Location       string                    `yaml:"location"`
	Mood           string                    `yaml:"mood"`
	TimeOfDay      string                    `yaml:"time_of_day"`
	TargetDuration float64                   `yaml:"target_duration"`
	Shots          []ShotSpec                `yaml:"shots"`
	CharacterState map[string]CharacterState `yaml:"character_state"`
}

// Manifest is the root of an episode manifest file.
type Manifest struct {
	Title    string      `yaml:"title"`
	Language string      `yaml:"language"`
	Scenes   []SceneSpec `yaml:"scenes"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// Validate checks the manifest for structural problems before anything is
// written to the queue.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("manifest needs a title")
	}
	if len(m.Scenes) == 0 {
		return fmt.Errorf("manifest %q has no scenes", m.Title)
	}
	for si, scene := range m.Scenes {
		if len(scene.Shots) == 0 {
			return fmt.Errorf("scene %d (%s) has no shots", si+1, scene.Title)
		}
		for hi, shot := range scene.Shots {
			if shot.Duration <= 0 {
				return fmt.Errorf("scene %d shot %d: duration must be positive", si+1, hi+1)
			}
			if shot.Dialogue != nil && strings.TrimSpace(shot.Dialogue.Text) == "" {
				return fmt.Errorf("scene %d shot %d: dialogue present but empty", si+1, hi+1)
			}
		}
	}
	return nil
}
