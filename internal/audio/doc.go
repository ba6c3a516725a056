// Package audio builds a scene's audio bed: dialogue cues placed at their
// shot offsets over the backing track, with the music ducked under speech by
// sidechain compression.
package audio
