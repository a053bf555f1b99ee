package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"hls-compositor/internal/segment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"
)

const exampleEvents = `[
  {"time": 10.0, "type": "seek", "delta": 0},
  {"playbackRate": 1, "type": "playbackrate", "delta": 0},
  {"url": "https://domain/playlist.m3u8", "type": "videochangesource", "delta": 1},
  {"type": "cursormove", "delta": 1, "x": 0.5, "y": 0.5},
  {"type": "pause", "delta": 1},
  {"type": "play", "delta": 30000}
]`

const exampleYAML = `durationMs: 4000
events:
  - type: videochangesource
    delta: 0
    url: https://domain/playlist.m3u8
  - type: play
    delta: 0
  - type: pause
    delta: 2000
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCompose(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCompose_singleFile(t *testing.T) {
	path := writeFile(t, "events.json", exampleEvents)

	stdout, _, err := runCompose(t, "--duration-ms", "60000", path)
	require.NoError(t, err)

	var segs []segment.Segment
	require.NoError(t, json.Unmarshal([]byte(stdout), &segs))
	assert.Equal(t, []segment.Segment{
		{Kind: segment.KindFrozen, LengthMs: 29999, SourceMs: 10000, SourceURL: "https://domain/playlist.m3u8", TimelineMs: 30000},
		{Kind: segment.KindPlayed, LengthMs: 30000, SourceMs: 10000, SourceURL: "https://domain/playlist.m3u8", TimelineMs: 60000},
	}, segs)
}

func TestCompose_missingDuration(t *testing.T) {
	path := writeFile(t, "events.json", exampleEvents)

	_, _, err := runCompose(t, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--duration-ms")
}

func TestCompose_multipleFilesKeepOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	jsonPath := writeFile(t, "a.json", `{"durationMs":60000,"events":`+exampleEvents+`}`)
	yamlPath := writeFile(t, "b.yaml", exampleYAML)

	stdout, _, err := runCompose(t, "--summary", "--workers", "2", jsonPath, yamlPath)
	require.NoError(t, err)

	var results []fileResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 2)

	assert.Equal(t, jsonPath, results[0].File)
	assert.Len(t, results[0].Segments, 2)
	require.NotNil(t, results[0].Summary)
	assert.Equal(t, 29999.0, results[0].Summary.FrozenMs)

	assert.Equal(t, yamlPath, results[1].File)
	assert.Equal(t, []segment.Segment{
		{Kind: segment.KindPlayed, SourceURL: "https://domain/playlist.m3u8", SourceMs: 0, TimelineMs: 2000, LengthMs: 2000},
		{Kind: segment.KindFrozen, SourceURL: "https://domain/playlist.m3u8", SourceMs: 2000, TimelineMs: 4000, LengthMs: 2000},
	}, results[1].Segments)
}

func TestCompose_yamlOutput(t *testing.T) {
	path := writeFile(t, "b.yml", exampleYAML)

	stdout, _, err := runCompose(t, "-o", "yaml", path)
	require.NoError(t, err)

	var segs []segment.Segment
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &segs))
	require.Len(t, segs, 2)
	assert.Equal(t, segment.KindPlayed, segs[0].Kind)
	assert.Contains(t, stdout, "sourceUrl: https://domain/playlist.m3u8")
}

func TestCompose_malformedTimeline(t *testing.T) {
	defer goleak.VerifyNone(t)

	good := writeFile(t, "good.json", `{"durationMs":60000,"events":`+exampleEvents+`}`)
	bad := writeFile(t, "bad.json", `{"durationMs":1000,"events":[{"type":"bogus"}]}`)

	stdout, stderr, err := runCompose(t, good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
	assert.Contains(t, err.Error(), "bogus")
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Error:")
}

func TestCompose_flagValidation(t *testing.T) {
	path := writeFile(t, "events.json", exampleEvents)

	_, _, err := runCompose(t, "-o", "xml", "--duration-ms", "1", path)
	assert.Error(t, err)

	_, _, err = runCompose(t, "--workers", "0", "--duration-ms", "1", path)
	assert.Error(t, err)

	_, _, err = runCompose(t)
	assert.Error(t, err, "at least one file is required")
}

func TestCompose_missingFile(t *testing.T) {
	_, _, err := runCompose(t, filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
