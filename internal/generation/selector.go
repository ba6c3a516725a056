package generation

import (
	"reelsmith/internal/services"
	"reelsmith/internal/services/videogen"
)

// Capabilities is everything engine selection is allowed to look at. Building
// it is the caller's job; ChooseEngine itself touches no external state.
type Capabilities struct {
	LoraAvailable bool
	SourceImage   bool
	LoraEnabled   bool
	I2VEnabled    bool
	T2VEnabled    bool
}

// ChooseEngine picks the engine for a shot. A trained character adapter wins
// over image conditioning, which wins over plain text-to-video. A shot with
// no usable engine is unselectable and needs operator attention.
func ChooseEngine(caps Capabilities) (videogen.Kind, error) {
	switch {
	case caps.LoraAvailable && caps.LoraEnabled:
		return videogen.KindLora, nil
	case caps.SourceImage && caps.I2VEnabled:
		return videogen.KindI2V, nil
	case caps.T2VEnabled:
		return videogen.KindT2V, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "select", "choose engine",
			"no generation engine can serve this shot", nil)
	}
}
