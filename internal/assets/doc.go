// Package assets chooses the source reference image for image-conditioned
// generation. The live continuity frame for a character always wins; otherwise
// the approved pool is scored on exposure, sharpness, and composition fit.
package assets
