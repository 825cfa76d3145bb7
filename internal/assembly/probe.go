package assembly

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ProbeDuration returns the duration of an audio file as "m:ss" using
// ffprobe. It returns "" when ffprobe is missing or the file is unreadable.
func ProbeDuration(ctx context.Context, bin, path string) string {
	if bin == "" {
		bin = "ffprobe"
	}
	out, err := exec.CommandContext(ctx, bin,
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return ""
	}
	return formatDuration(string(out))
}

func formatDuration(raw string) string {
	var secs float64
	if _, err := fmt.Sscanf(strings.TrimSpace(raw), "%f", &secs); err != nil {
		return ""
	}
	return fmt.Sprintf("%d:%02d", int(secs)/60, int(secs)%60)
}
