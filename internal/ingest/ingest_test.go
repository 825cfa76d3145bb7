package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectKind(t *testing.T) {
	assert.Equal(t, KindURL, DetectKind("https://example.com/post"))
	assert.Equal(t, KindURL, DetectKind("http://example.com"))
	assert.Equal(t, KindPDF, DetectKind("paper.PDF"))
	assert.Equal(t, KindText, DetectKind("notes.md"))
}

func TestLoadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("  Tidal power\nThe moon pulls the sea.\n"), 0644))

	doc, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, KindText, doc.Kind)
	assert.Equal(t, "notes.txt", doc.Origin)
	assert.Equal(t, "Tidal power", doc.Title)
	assert.Equal(t, 7, doc.Words)
}

func TestLoadTextErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0644))

	_, err := Load(context.Background(), empty)
	assert.ErrorContains(t, err, "empty")

	_, err = Load(context.Background(), dir)
	assert.ErrorContains(t, err, "directory")

	_, err = Load(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.ErrorContains(t, err, "cannot access")
}

func TestLoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Ocean Tides</title></head><body><article>
<h1>Ocean Tides</h1>
<p>The moon and the sun both pull on the oceans, and the combined pull raises two bulges of water that travel around the planet every day.</p>
<p>Coastal engineers have learned to harvest the energy of those bulges with barrages and underwater turbines placed in narrow channels.</p>
<p>Because the orbit of the moon is predictable, tidal output can be forecast years ahead, which makes it easier to plan around than wind or solar generation on the same grid.</p>
<p>The largest plants in France and Korea have run for decades, although the cost of building in salt water and the effect on estuary wildlife still limit how many new sites are approved.</p>
</article></body></html>`))
	}))
	defer srv.Close()

	doc, err := Load(context.Background(), srv.URL+"/tides")
	require.NoError(t, err)
	assert.Equal(t, KindURL, doc.Kind)
	assert.Contains(t, doc.Text, "underwater turbines")
	assert.NotEmpty(t, doc.Title)

	_, err = Load(context.Background(), srv.URL+"/gone")
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestExcerpt(t *testing.T) {
	doc := &Document{Text: "alpha beta gamma delta"}
	assert.Equal(t, "alpha beta", doc.Excerpt(12))
	assert.Equal(t, doc.Text, doc.Excerpt(100))
	assert.Equal(t, "abc", (&Document{Text: "abcdef"}).Excerpt(3))
}
