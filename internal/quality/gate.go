package quality

import "reelsmith/internal/config"

// Verdict is the gate's ruling on a scored clip.
type Verdict string

const (
	// VerdictAccept passes the clip through to assembly.
	VerdictAccept Verdict = "accept"
	// VerdictRegenerate rejects the clip and queues a re-render with a new seed.
	VerdictRegenerate Verdict = "regenerate"
	// VerdictReview parks the shot for a human decision.
	VerdictReview Verdict = "review"
)

// Decide applies the configured thresholds to a report. Scores at or above
// the accept threshold pass; scores below the reject threshold (or with
// motion under the floor) trigger regeneration while budget remains, then
// review; the band between the thresholds always goes to review.
func Decide(report Report, cfg config.Quality, regenerations int) Verdict {
	rejected := report.Total < cfg.RejectThreshold || report.Motion < cfg.MotionFloor

	switch {
	case rejected:
		if regenerations >= cfg.MaxRegenerate {
			return VerdictReview
		}
		return VerdictRegenerate
	case report.Total >= cfg.AcceptThreshold:
		return VerdictAccept
	default:
		return VerdictReview
	}
}
