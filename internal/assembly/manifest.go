package assembly

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Manifest is an ordered list of audio files in ffmpeg concat-demuxer form.
type Manifest []string

// Write emits one "file '<path>'" line per entry.
func (m Manifest) Write(w io.Writer) error {
	for _, p := range m {
		if _, err := fmt.Fprintf(w, "file '%s'\n", quote(p)); err != nil {
			return fmt.Errorf("write manifest entry: %w", err)
		}
	}
	return nil
}

func (m Manifest) String() string {
	var b strings.Builder
	_ = m.Write(&b)
	return b.String()
}

// ParseManifest reads back what Write produced.
func ParseManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rest, ok := strings.CutPrefix(line, "file ")
		if !ok {
			return nil, fmt.Errorf("parse manifest: unexpected line %q", line)
		}
		rest = strings.TrimSpace(rest)
		if len(rest) < 2 || rest[0] != '\'' || rest[len(rest)-1] != '\'' {
			return nil, fmt.Errorf("parse manifest: unquoted path %q", rest)
		}
		m = append(m, unquote(rest[1:len(rest)-1]))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// ffmpeg closes the quote, emits an escaped quote, and reopens.
func quote(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}

func unquote(p string) string {
	return strings.ReplaceAll(p, `'\''`, "'")
}
