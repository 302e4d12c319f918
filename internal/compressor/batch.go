package compressor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"imgshrink/internal/logger"
)

// Result reports the outcome of one file in a batch.
type Result struct {
	InputPath       string        `json:"input_path"`
	OutputPath      string        `json:"output_path,omitempty"`
	OriginalSize    int64         `json:"original_size"`
	CompressedSize  int64         `json:"compressed_size"`
	PercentageSaved float64       `json:"percentage_saved"`
	Factor          int           `json:"factor,omitempty"`
	Quality         int           `json:"quality,omitempty"`
	Success         bool          `json:"success"`
	Message         string        `json:"message,omitempty"`
	ErrorKind       string        `json:"error_kind,omitempty"`
	Error           error         `json:"-"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	Duration        time.Duration `json:"duration"`
}

// CompressBatch compresses every path with the same options on a pool of
// workers and returns one Result per path in input order. Once ctx is done no
// further files are started; their results carry the context error.
//
// When several inputs should not collide in the destination, leave
// FileName unset so each output gets a unique name.
func (c *Compressor) CompressBatch(ctx context.Context, paths []string, opts *Options) []Result {
	if len(paths) == 0 {
		return nil
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	numWorkers := c.workers
	if numWorkers <= 0 {
		numWorkers = max(runtime.NumCPU(), 2)
	}
	numWorkers = min(numWorkers, len(paths))
	type job struct {
		index int
		path  string
	}

	jobs := make(chan job, len(paths))
	results := make([]Result, len(paths))

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results[j.index] = c.cancelledResult(j.path, err)
					continue
				}
				results[j.index] = c.compressOne(j.path, opts)
			}
		}()
	}

	for i, path := range paths {
		jobs <- job{index: i, path: path}
	}
	close(jobs)
	wg.Wait()

	return results
}

// compressOne runs CompressToFile for a single path and fills a Result.
func (c *Compressor) compressOne(inputPath string, opts *Options) Result {
	start := time.Now()
	res := Result{
		InputPath: inputPath,
		StartedAt: start,
	}
	if info, err := os.Stat(inputPath); err == nil {
		res.OriginalSize = info.Size()
	}

	log := logger.WithFileOperation(c.log, inputPath, "compress_batch")
	c.countProcessed()

	out, err := c.compressToFile(inputPath, opts, log)
	res.FinishedAt = time.Now()
	res.Duration = res.FinishedAt.Sub(start)
	if err != nil {
		c.recordError(inputPath, err)
		log.WithError(err).Warn("compression failed")
		res.Error = err
		res.ErrorKind = KindOf(err).String()
		res.Message = err.Error()
		return res
	}

	res.Success = true
	res.OutputPath = out.path
	res.CompressedSize = out.bytes
	res.Factor = out.factor
	res.Quality = out.quality
	res.Message = "Image compressed"
	if res.OriginalSize > 0 {
		res.PercentageSaved = float64(res.OriginalSize-res.CompressedSize) * 100 / float64(res.OriginalSize)
	}
	return res
}

// KindCancelled is the Result.ErrorKind of files skipped after cancellation.
const KindCancelled = "cancelled"

// cancelledResult reports a file skipped because ctx ended. It counts as a
// processed file with an error so statistics agree with the results.
func (c *Compressor) cancelledResult(path string, err error) Result {
	c.countProcessed()
	if c.stats != nil {
		c.stats.AddError(path, KindCancelled, err.Error())
	}
	now := time.Now()
	return Result{
		InputPath:  path,
		Message:    "not started: " + err.Error(),
		ErrorKind:  KindCancelled,
		Error:      err,
		StartedAt:  now,
		FinishedAt: now,
	}
}

// CollectImageFiles expands inputs into the image files they name. Directories
// are walked recursively; unreadable entries are skipped. Only files whose
// extension is in exts (".jpg", ".png", ...) are returned.
func CollectImageFiles(inputs []string, exts []string) []string {
	extSet := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		extSet[e] = struct{}{}
	}
	match := func(name string) bool {
		_, ok := extSet[strings.ToLower(filepath.Ext(name))]
		return ok
	}

	var files []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			if match(info.Name()) {
				files = append(files, in)
			}
			continue
		}
		_ = filepath.WalkDir(in, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if match(d.Name()) {
				files = append(files, path)
			}
			return nil
		})
	}
	return files
}
