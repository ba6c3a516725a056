// Package continuity maintains the single live reference frame per character.
// After a shot is accepted, the final frame of its clip replaces each featured
// character's entry so the next generation starts from the freshest look.
package continuity
