package main

import (
	"fmt"
	"io"
	"os"

	"imgshrink/internal/compressor"
	"imgshrink/internal/statistics"
	"imgshrink/internal/watcher"
)

type batchReport struct {
	Results      []compressor.Result `json:"results"`
	Processed    int64               `json:"processed"`
	Compressed   int64               `json:"compressed"`
	Failed       int64               `json:"failed"`
	BytesIn      int64               `json:"bytes_in"`
	BytesOut     int64               `json:"bytes_out"`
	PercentSaved float64             `json:"percent_saved"`
}

type probeReport struct {
	Path         string `json:"path"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Factor       int    `json:"factor"`
	OutputWidth  int    `json:"output_width"`
	OutputHeight int    `json:"output_height"`
}

type watchReport struct {
	Source string `json:"source"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

func newProbeReport(path string, dims compressor.Dimensions, opts *compressor.Options) probeReport {
	factor := compressor.PlanReduction(dims, int(opts.MaxWidth()), int(opts.MaxHeight()))
	return probeReport{
		Path:         path,
		Width:        dims.Width,
		Height:       dims.Height,
		Factor:       factor,
		OutputWidth:  max(dims.Width/factor, 1),
		OutputHeight: max(dims.Height/factor, 1),
	}
}

func newWatchReport(ev watcher.Event) watchReport {
	r := watchReport{Source: ev.Source, Output: ev.Output}
	if ev.Err != nil {
		r.Error = ev.Err.Error()
	}
	return r
}

// writeResults prints output paths (or a JSON report) to out and the
// summary to stderr.
func writeResults(out io.Writer, results []compressor.Result, stats *statistics.Statistics) error {
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(batchReport{
			Results:      results,
			Processed:    stats.FilesProcessed,
			Compressed:   stats.FilesCompressed,
			Failed:       stats.FilesWithErrors,
			BytesIn:      stats.BytesIn,
			BytesOut:     stats.BytesOut,
			PercentSaved: stats.PercentSaved,
		})
	}

	for _, r := range results {
		if r.Success {
			if _, err := fmt.Fprintln(out, r.OutputPath); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(os.Stderr, "%s: %s\n", r.InputPath, r.Message)
		}
	}
	if !quiet {
		fmt.Fprintln(os.Stderr, "\n"+stats.GetSummary())
		if stats.GetErrorCount() > 0 {
			fmt.Fprintln(os.Stderr, stats.GetErrorSummary())
		}
	}
	return nil
}
