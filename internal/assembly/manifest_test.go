package assembly

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestRoundTrip(t *testing.T) {
	m := Manifest{"/work/run_part0.mp3", "/work/it's here/run_part2.mp3"}

	parsed, err := ParseManifest(strings.NewReader(m.String()))
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
}

func TestManifestFormat(t *testing.T) {
	m := Manifest{"/a/b.mp3", "/a/c.mp3"}
	assert.Equal(t, "file '/a/b.mp3'\nfile '/a/c.mp3'\n", m.String())
}

func TestParseManifestRejectsGarbage(t *testing.T) {
	_, err := ParseManifest(strings.NewReader("duration 3\n"))
	assert.Error(t, err)

	_, err = ParseManifest(strings.NewReader("file /no/quotes.mp3\n"))
	assert.Error(t, err)
}

func TestParseManifestSkipsCommentsAndBlanks(t *testing.T) {
	m, err := ParseManifest(strings.NewReader("# generated\n\nfile '/x.mp3'\n"))
	require.NoError(t, err)
	assert.Equal(t, Manifest{"/x.mp3"}, m)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1:05", formatDuration("65.4\n"))
	assert.Equal(t, "0:00", formatDuration("0.2"))
	assert.Equal(t, "", formatDuration("N/A"))
}
