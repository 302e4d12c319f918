package main

import (
	"bytes"
	"errors"
	"testing"

	"imgshrink/internal/compressor"
	"imgshrink/internal/statistics"
	"imgshrink/internal/watcher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProbeReport(t *testing.T) {
	p := newProbeReport("a.jpg", compressor.Dimensions{Width: 4000, Height: 3000}, compressor.DefaultOptions())

	assert.Equal(t, 2, p.Factor)
	assert.Equal(t, 2000, p.OutputWidth)
	assert.Equal(t, 1500, p.OutputHeight)
}

func TestNewWatchReport(t *testing.T) {
	r := newWatchReport(watcher.Event{Source: "a.png", Err: errors.New("boom")})
	assert.Equal(t, "boom", r.Error)
	assert.Empty(t, r.Output)
}

func TestWriteResultsJSON(t *testing.T) {
	jsonOutput = true
	t.Cleanup(func() { jsonOutput = false })

	stats := statistics.NewStatistics()
	stats.IncrementFilesProcessed()
	stats.IncrementFilesCompressed()
	stats.AddBytes(1000, 400)
	stats.Finalize()

	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, []compressor.Result{
		{InputPath: "a.png", OutputPath: "/out/x.jpg", Success: true, Factor: 2},
	}, stats))

	var report map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, float64(1), report["compressed"])
	assert.InDelta(t, 60.0, report["percent_saved"], 0.001)

	results := report["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, "/out/x.jpg", first["output_path"])
	assert.Equal(t, float64(2), first["factor"])
}

func TestWriteResultsPlain(t *testing.T) {
	quiet = true
	t.Cleanup(func() { quiet = false })

	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, []compressor.Result{
		{InputPath: "a.png", OutputPath: "/out/a.jpg", Success: true},
		{InputPath: "b.png", Message: "failed"},
	}, statistics.NewStatistics()))

	assert.Equal(t, "/out/a.jpg\n", buf.String())
}
