// Package assembly stitches accepted shots into scenes and completed scenes
// into episodes. Shots within a scene are hard cuts; scenes join with a short
// cross-fade and the episode audio is loudness-normalized at the end.
package assembly
