package generation

import (
	"context"
	"fmt"
	"strings"

	"reelsmith/internal/queue"
)

// BuildPrompt composes the generation prompt for a shot: scene setting, shot
// framing and motion, then any per-character narrative overlay (clothing,
// injuries, emotion, energy) recorded for the scene.
func BuildPrompt(ctx context.Context, store *queue.Store, scene *queue.Scene, shot *queue.Shot) (string, error) {
	var parts []string

	if scene != nil {
		var setting []string
		if scene.Location != "" {
			setting = append(setting, scene.Location)
		}
		if scene.TimeOfDay != "" {
			setting = append(setting, scene.TimeOfDay)
		}
		if scene.Mood != "" {
			setting = append(setting, scene.Mood+" mood")
		}
		if len(setting) > 0 {
			parts = append(parts, strings.Join(setting, ", "))
		}
	}

	if shot.ShotType != "" {
		parts = append(parts, shot.ShotType+" shot")
	}
	if shot.Motion != "" {
		parts = append(parts, shot.Motion)
	}

	for _, character := range shot.Characters {
		character = strings.TrimSpace(character)
		if character == "" {
			continue
		}
		descriptor := character
		if store != nil {
			state, err := store.GetCharacterSceneState(ctx, shot.SceneID, character)
			if err != nil {
				return "", err
			}
			if overlay := describeState(state); overlay != "" {
				descriptor = fmt.Sprintf("%s (%s)", character, overlay)
			}
		}
		parts = append(parts, descriptor)
	}

	if shot.HasDialogue() {
		speaker := strings.TrimSpace(shot.DialogueFrom)
		if speaker == "" {
			speaker = "character"
		}
		parts = append(parts, speaker+" speaking")
	}

	return strings.Join(parts, ". "), nil
}

func describeState(state *queue.CharacterSceneState) string {
	if state == nil {
		return ""
	}
	var overlay []string
	if state.Clothing != "" {
		overlay = append(overlay, "wearing "+state.Clothing)
	}
	if state.Injuries != "" {
		overlay = append(overlay, state.Injuries)
	}
	if state.Emotion != "" {
		overlay = append(overlay, state.Emotion)
	}
	if state.Energy != "" {
		overlay = append(overlay, state.Energy+" energy")
	}
	return strings.Join(overlay, ", ")
}
