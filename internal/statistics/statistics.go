package statistics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Statistics contains counters for a compression run.
type Statistics struct {
	FilesProcessed  int64
	FilesCompressed int64
	FilesDecoded    int64
	FilesWithErrors int64
	QualityRetries  int64

	BytesIn  int64
	BytesOut int64

	DirectoriesCreated int64

	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	FilesPerSecond float64
	PercentSaved   float64

	Errors []StatError

	// ReductionFactors counts how often each downsampling factor was used.
	ReductionFactors map[int]int64

	mutex sync.RWMutex
}

// StatError represents an error that occurred during processing.
type StatError struct {
	FilePath  string
	Operation string
	Error     string
	Timestamp time.Time
}

// NewStatistics returns a new Statistics instance.
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime:        time.Now(),
		ReductionFactors: make(map[int]int64),
		Errors:           make([]StatError, 0),
	}
}

// IncrementFilesProcessed increases the count of processed files by 1.
func (s *Statistics) IncrementFilesProcessed() {
	atomic.AddInt64(&s.FilesProcessed, 1)
}

// IncrementFilesCompressed increases the count of files written to disk by 1.
func (s *Statistics) IncrementFilesCompressed() {
	atomic.AddInt64(&s.FilesCompressed, 1)
}

// IncrementFilesDecoded increases the count of in-memory reductions by 1.
func (s *Statistics) IncrementFilesDecoded() {
	atomic.AddInt64(&s.FilesDecoded, 1)
}

// IncrementQualityRetries increases the count of size-driven re-encodes by 1.
func (s *Statistics) IncrementQualityRetries() {
	atomic.AddInt64(&s.QualityRetries, 1)
}

// IncrementDirectoriesCreated increases the count of created directories by 1.
func (s *Statistics) IncrementDirectoriesCreated() {
	atomic.AddInt64(&s.DirectoriesCreated, 1)
}

// AddBytes records the source and encoded size of one file.
func (s *Statistics) AddBytes(in, out int64) {
	atomic.AddInt64(&s.BytesIn, in)
	atomic.AddInt64(&s.BytesOut, out)
}

// RecordFactor counts one use of a reduction factor.
func (s *Statistics) RecordFactor(factor int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.ReductionFactors[factor]++
}

// AddError records an error that occurred during processing.
func (s *Statistics) AddError(filePath, operation, errorMsg string) {
	atomic.AddInt64(&s.FilesWithErrors, 1)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Errors = append(s.Errors, StatError{
		FilePath:  filePath,
		Operation: operation,
		Error:     errorMsg,
		Timestamp: time.Now(),
	})
}

// Finalize calculates duration, throughput and overall savings.
func (s *Statistics) Finalize() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)

	processed := atomic.LoadInt64(&s.FilesProcessed)
	if s.Duration.Seconds() > 0 {
		s.FilesPerSecond = float64(processed) / s.Duration.Seconds()
	}

	in := atomic.LoadInt64(&s.BytesIn)
	out := atomic.LoadInt64(&s.BytesOut)
	if in > 0 {
		s.PercentSaved = float64(in-out) * 100 / float64(in)
	}
}

// GetSummary returns a formatted summary of all statistics.
func (s *Statistics) GetSummary() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return fmt.Sprintf(`Compression Statistics Summary:

Files:
		Processed: %d
		Compressed: %d
		Decoded In Memory: %d
		Errors: %d
		Quality Retries: %d

Size:
		Bytes In: %s
		Bytes Out: %s
		Saved: %.2f%%

Performance:
		Duration: %v
		Files/Second: %.2f

Reduction Factors:
%s
Directories:
		Created: %d`,
		atomic.LoadInt64(&s.FilesProcessed),
		atomic.LoadInt64(&s.FilesCompressed),
		atomic.LoadInt64(&s.FilesDecoded),
		atomic.LoadInt64(&s.FilesWithErrors),
		atomic.LoadInt64(&s.QualityRetries),
		formatBytes(atomic.LoadInt64(&s.BytesIn)),
		formatBytes(atomic.LoadInt64(&s.BytesOut)),
		s.PercentSaved,
		s.Duration,
		s.FilesPerSecond,
		s.factorBreakdown(),
		atomic.LoadInt64(&s.DirectoriesCreated))
}

// factorBreakdown lists factor counts in ascending factor order.
// Caller holds the read lock.
func (s *Statistics) factorBreakdown() string {
	if len(s.ReductionFactors) == 0 {
		return "\t\tnone\n"
	}
	factors := make([]int, 0, len(s.ReductionFactors))
	for f := range s.ReductionFactors {
		factors = append(factors, f)
	}
	sort.Ints(factors)

	var b strings.Builder
	for _, f := range factors {
		fmt.Fprintf(&b, "\t\t1/%d: %d\n", f, s.ReductionFactors[f])
	}
	return b.String()
}

// GetErrorSummary returns a summary of errors that occurred during processing.
func (s *Statistics) GetErrorSummary() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.Errors) == 0 {
		return "No errors occurred during processing"
	}

	result := fmt.Sprintf("Errors (%d total):\n", len(s.Errors))
	for i, err := range s.Errors {
		if i >= 10 {
			result += fmt.Sprintf("  ... and %d more errors\n", len(s.Errors)-10)
			break
		}
		result += fmt.Sprintf("  [%s] %s: %s - %s\n",
			err.Timestamp.Format("15:04:05"),
			err.Operation,
			err.FilePath,
			err.Error)
	}
	return result
}

// GetFactorCount returns how many times factor was used.
func (s *Statistics) GetFactorCount(factor int) int64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.ReductionFactors[factor]
}

// GetErrorCount returns the number of recorded errors.
func (s *Statistics) GetErrorCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.Errors)
}

// formatBytes returns a human-readable string for a byte count.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
