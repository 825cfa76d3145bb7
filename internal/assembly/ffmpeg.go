package assembly

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Audio quality constants for the concatenated output.
const (
	AudioBitrate = "192k"
	AudioCodec   = "libmp3lame"
)

// Encoder joins the files named in a concat manifest into one output file.
type Encoder interface {
	Concatenate(ctx context.Context, manifestPath, outputPath string) error
}

// FFmpegEncoder runs the ffmpeg concat demuxer and re-encodes to MP3.
type FFmpegEncoder struct {
	bin string
}

// NewFFmpegEncoder returns an encoder that runs bin, or "ffmpeg" from PATH
// when bin is empty.
func NewFFmpegEncoder(bin string) *FFmpegEncoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegEncoder{bin: bin}
}

func (e *FFmpegEncoder) Concatenate(ctx context.Context, manifestPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, e.bin, concatArgs(manifestPath, outputPath)...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	cmd.Stdout = nil

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w\n%s", err, stderr.String())
	}
	return nil
}

func concatArgs(manifestPath, outputPath string) []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-y",
		outputPath,
	}
}

// verifyOutput checks the encoder left a non-empty file behind.
func verifyOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output file not created: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output file is empty")
	}
	return nil
}
