package characters

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

// VoicePreference names one synthesis option for a character, ordered by
// fidelity: a trained voice model, a cloning sample, or nothing (generic
// fallback synthesizer).
type VoicePreference struct {
	TrainedModel string   `toml:"trained_model"`
	CloneSample  string   `toml:"clone_sample"`
	Languages    []string `toml:"languages"`
}

// Profile describes one character as authored in the profiles directory.
type Profile struct {
	Name        string          `toml:"name"`
	DisplayName string          `toml:"display_name"`
	LoraModel   string          `toml:"lora_model"`
	Voice       VoicePreference `toml:"voice"`

	languageTags []language.Tag
}

// HasLora reports whether a trained character-specific model adapter exists.
func (p *Profile) HasLora() bool {
	return strings.TrimSpace(p.LoraModel) != ""
}

// LanguageTags returns the parsed BCP-47 tags of the character's voice
// languages. Unparseable entries are dropped at load time.
func (p *Profile) LanguageTags() []language.Tag {
	return p.languageTags
}

// Registry holds the loaded character profiles.
type Registry struct {
	profiles map[string]*Profile
	poolDir  string
}

// Load reads every *.toml profile from dir. A missing directory yields an
// empty registry rather than an error so projects without characters still run.
func Load(dir, assetPoolDir string) (*Registry, error) {
	registry := &Registry{
		profiles: make(map[string]*Profile),
		poolDir:  assetPoolDir,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return registry, nil
		}
		return nil, fmt.Errorf("read profiles directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read profile %s: %w", entry.Name(), err)
		}
		var profile Profile
		if err := toml.Unmarshal(raw, &profile); err != nil {
			return nil, fmt.Errorf("parse profile %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(profile.Name) == "" {
			profile.Name = strings.TrimSuffix(entry.Name(), ".toml")
		}
		profile.Name = normalizeName(profile.Name)
		for _, lang := range profile.Voice.Languages {
			tag, err := language.Parse(strings.TrimSpace(lang))
			if err != nil {
				continue
			}
			profile.languageTags = append(profile.languageTags, tag)
		}
		registry.profiles[profile.Name] = &profile
	}

	return registry, nil
}

// Get returns the profile for a character, or nil when unknown. Unknown
// characters are legal: they simply have no trained model or voice prefs.
func (r *Registry) Get(name string) *Profile {
	if r == nil {
		return nil
	}
	return r.profiles[normalizeName(name)]
}

// HasLora reports whether the named character has a trained model adapter.
func (r *Registry) HasLora(name string) bool {
	profile := r.Get(name)
	return profile != nil && profile.HasLora()
}

// Names returns the sorted list of known characters.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApprovedPool returns the approved reference image paths for a character,
// sorted by name. An absent pool directory is normal and returns nil.
func (r *Registry) ApprovedPool(name string) ([]string, error) {
	if r == nil || strings.TrimSpace(r.poolDir) == "" {
		return nil, nil
	}
	dir := filepath.Join(r.poolDir, normalizeName(name))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read approved pool for %s: %w", name, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
