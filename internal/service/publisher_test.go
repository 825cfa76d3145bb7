package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/polycast/internal/pipeline"
	"github.com/apresai/polycast/internal/store"
	"github.com/apresai/polycast/internal/tts"
)

type fakeRunner struct {
	req pipeline.Request
	res *pipeline.Result
	err error
}

func (f *fakeRunner) Run(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.req = req
	return f.res, f.err
}

type fakeUploader struct {
	fail     map[string]bool
	uploaded []string
}

func (f *fakeUploader) Upload(_ context.Context, id, lang, path string) (string, string, error) {
	if f.fail[lang] {
		return "", "", errors.New("AccessDenied")
	}
	f.uploaded = append(f.uploaded, lang)
	key := "audio/" + id + "/" + lang + ".mp3"
	return key, "https://cdn/" + key, nil
}

type fakeRecorder struct {
	created     *store.NewJob
	statuses    []store.JobStatus
	completed   map[string]store.LanguageAudio
	failed      map[string]string
	failMsg     string
	errComplete error
}

func (f *fakeRecorder) CreateJob(_ context.Context, job store.NewJob) error {
	f.created = &job
	return nil
}

func (f *fakeRecorder) UpdateProgress(_ context.Context, _ string, status store.JobStatus, _ float64, _ string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeRecorder) CompleteJob(_ context.Context, _ string, langs map[string]store.LanguageAudio, failed map[string]string) error {
	if f.errComplete != nil {
		return f.errComplete
	}
	f.completed = langs
	f.failed = failed
	return nil
}

func (f *fakeRecorder) FailJob(_ context.Context, _ string, msg string) error {
	f.failMsg = msg
	return nil
}

func writeAudio(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("mp3"), 0644))
	return p
}

func TestPublishUploadsRecordsAndDeletes(t *testing.T) {
	en := writeAudio(t, "idenglish_final.mp3")
	fr := writeAudio(t, "idfrench_final.mp3")
	runner := &fakeRunner{res: &pipeline.Result{
		RunID: "id",
		Languages: map[string]pipeline.LanguageResult{
			"english": {Language: "english", Path: en, SizeBytes: 3},
			"french":  {Language: "french", Path: fr, Dropped: []tts.Dropped{{Order: 2, Reason: "timeout"}}},
		},
		Failed: map[string]error{"hindi": errors.New("translate failed")},
	}}
	up := &fakeUploader{}
	rec := &fakeRecorder{}
	p := NewPublisher(runner, up, rec, nil)

	ep := Episode{
		Owner:  "ana",
		Script: "Alice: Hi.",
		Names:  []string{"Alice"},
		Voices: map[string][]string{"french": {"v2"}, "english": {"v1"}, "hindi": {"v3"}},
	}
	require.NoError(t, p.Submit(context.Background(), &ep))
	require.NotEmpty(t, ep.ID)
	assert.Equal(t, []string{"english", "french", "hindi"}, rec.created.Languages)

	out, err := p.Publish(context.Background(), ep)
	require.NoError(t, err)

	assert.Equal(t, ep.ID, runner.req.RunID)
	assert.Equal(t, []string{"english", "french"}, up.uploaded)
	assert.Equal(t, 1, out.Languages["french"].Dropped)
	assert.Equal(t, "translate failed", out.Failed["hindi"])
	assert.Equal(t, out.Languages, rec.completed)
	assert.Equal(t, []store.JobStatus{store.JobStatusSynthesizing, store.JobStatusUploading}, rec.statuses)
	assert.NoFileExists(t, en)
	assert.NoFileExists(t, fr)
}

func TestPublishRejectedRun(t *testing.T) {
	rec := &fakeRecorder{}
	p := NewPublisher(&fakeRunner{err: errors.New("no playable language")}, &fakeUploader{}, rec, nil)

	_, err := p.Publish(context.Background(), Episode{ID: "id"})
	assert.ErrorContains(t, err, "no playable language")
	assert.Equal(t, "no playable language", rec.failMsg)
}

func TestPublishAllUploadsFail(t *testing.T) {
	en := writeAudio(t, "en.mp3")
	runner := &fakeRunner{res: &pipeline.Result{
		Languages: map[string]pipeline.LanguageResult{"english": {Path: en}},
		Failed:    map[string]error{},
	}}
	rec := &fakeRecorder{}
	p := NewPublisher(runner, &fakeUploader{fail: map[string]bool{"english": true}}, rec, nil)

	out, err := p.Publish(context.Background(), Episode{ID: "id"})
	assert.Error(t, err)
	assert.Equal(t, "AccessDenied", out.Failed["english"])
	assert.Equal(t, "no language could be published", rec.failMsg)
	assert.NoFileExists(t, en)
}

func TestPublishRecordFailureFailsJob(t *testing.T) {
	en := writeAudio(t, "en.mp3")
	runner := &fakeRunner{res: &pipeline.Result{
		Languages: map[string]pipeline.LanguageResult{"english": {Path: en}},
		Failed:    map[string]error{},
	}}
	up := &fakeUploader{}
	rec := &fakeRecorder{errComplete: errors.New("conditional check failed")}
	p := NewPublisher(runner, up, rec, nil)

	_, err := p.Publish(context.Background(), Episode{ID: "id"})
	require.ErrorContains(t, err, "record podcast")
	assert.Equal(t, []string{"english"}, up.uploaded)
	assert.Equal(t, "record podcast: conditional check failed", rec.failMsg)
}
