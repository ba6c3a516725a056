// Package library defines the on-disk layout of rendered artifacts under the
// library directory. Every stage derives its output paths from here so the
// tree stays navigable by hand.
package library

import (
	"fmt"
	"path/filepath"
)

// Layout resolves artifact paths beneath a library root.
type Layout struct {
	root string
}

// NewLayout creates a layout rooted at dir.
func NewLayout(dir string) Layout {
	return Layout{root: dir}
}

// Root returns the library root directory.
func (l Layout) Root() string {
	return l.root
}

// EpisodeDir returns the directory holding one episode's scenes and output.
func (l Layout) EpisodeDir(episodeID int64) string {
	return filepath.Join(l.root, fmt.Sprintf("episode-%03d", episodeID))
}

// SceneDir returns the directory holding one scene's shots and mixes.
func (l Layout) SceneDir(episodeID, sceneID int64) string {
	return filepath.Join(l.EpisodeDir(episodeID), fmt.Sprintf("scene-%03d", sceneID))
}

// ShotRawClip is the engine output before post-processing.
func (l Layout) ShotRawClip(episodeID, sceneID, shotID int64) string {
	return filepath.Join(l.SceneDir(episodeID, sceneID), fmt.Sprintf("shot-%03d.raw.mp4", shotID))
}

// ShotClip is the current best clip for a shot. Refinement and
// post-processing replace it in place on the queue record, not on disk.
func (l Layout) ShotClip(episodeID, sceneID, shotID int64) string {
	return filepath.Join(l.SceneDir(episodeID, sceneID), fmt.Sprintf("shot-%03d.mp4", shotID))
}

// ShotVoice is the synthesized dialogue audio for a shot.
func (l Layout) ShotVoice(episodeID, sceneID, shotID int64) string {
	return filepath.Join(l.SceneDir(episodeID, sceneID), fmt.Sprintf("shot-%03d.voice.wav", shotID))
}

// SceneMusic is where generated backing music lands.
func (l Layout) SceneMusic(episodeID, sceneID int64) string {
	return filepath.Join(l.SceneDir(episodeID, sceneID), "music.wav")
}

// SceneAudio is the mixed dialogue-plus-music bed for a scene.
func (l Layout) SceneAudio(episodeID, sceneID int64) string {
	return filepath.Join(l.SceneDir(episodeID, sceneID), "audio.wav")
}

// SceneVideo is the assembled scene with its audio bed.
func (l Layout) SceneVideo(episodeID, sceneID int64) string {
	return filepath.Join(l.SceneDir(episodeID, sceneID), "scene.mp4")
}

// EpisodeVideo is the final assembled episode.
func (l Layout) EpisodeVideo(episodeID int64) string {
	return filepath.Join(l.EpisodeDir(episodeID), "episode.mp4")
}

// EpisodeThumbnail is the poster frame extracted from the episode.
func (l Layout) EpisodeThumbnail(episodeID int64, format string) string {
	if format == "" {
		format = "jpg"
	}
	return filepath.Join(l.EpisodeDir(episodeID), "thumbnail."+format)
}

// FramesDir holds extracted continuity frames.
func (l Layout) FramesDir() string {
	return filepath.Join(l.root, "frames")
}
