package assembly

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

func runFFmpeg(ctx context.Context, binary string, args ...string) error {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	full := append([]string{"-hide_banner", "-loglevel", "error", "-y"}, args...)
	cmd := exec.CommandContext(ctx, binary, full...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
