// Package quality scores finished clips and decides their fate: accept,
// reject with a fresh seed, or hold for manual review. Scoring combines
// structural integrity, motion, and visual checks into one weighted number.
package quality
