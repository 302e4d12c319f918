package statistics

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersAreSafeForConcurrentUse(t *testing.T) {
	s := NewStatistics()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.IncrementFilesProcessed()
			s.RecordFactor(1 << (i % 3))
			if i%5 == 0 {
				s.AddError(fmt.Sprintf("f%d.jpg", i), "invalid_input", "missing")
				return
			}
			s.IncrementFilesCompressed()
			s.AddBytes(1000, 250)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(50), s.FilesProcessed)
	assert.Equal(t, int64(40), s.FilesCompressed)
	assert.Equal(t, int64(10), s.FilesWithErrors)
	assert.Equal(t, 10, s.GetErrorCount())
	assert.Equal(t, int64(40000), s.BytesIn)
	assert.Equal(t, int64(10000), s.BytesOut)
	assert.Equal(t, int64(17), s.GetFactorCount(1))
	assert.Equal(t, int64(17), s.GetFactorCount(2))
	assert.Equal(t, int64(16), s.GetFactorCount(4))
	assert.Zero(t, s.GetFactorCount(8))
}

func TestFinalizeComputesSavings(t *testing.T) {
	s := NewStatistics()
	s.IncrementFilesProcessed()
	s.AddBytes(2048, 512)
	s.Finalize()

	assert.InDelta(t, 75.0, s.PercentSaved, 0.001)
	assert.False(t, s.EndTime.Before(s.StartTime))
}

func TestGetSummary(t *testing.T) {
	s := NewStatistics()
	s.IncrementFilesProcessed()
	s.IncrementFilesCompressed()
	s.AddBytes(3*1024*1024, 1536)
	s.RecordFactor(4)
	s.RecordFactor(2)
	s.Finalize()

	summary := s.GetSummary()
	assert.Contains(t, summary, "Processed: 1")
	assert.Contains(t, summary, "Bytes In: 3.0 MB")
	assert.Contains(t, summary, "Bytes Out: 1.5 KB")
	assert.Regexp(t, `(?s)1/2: 1\n.*1/4: 1\n`, summary)
}

func TestGetSummaryWithoutFactors(t *testing.T) {
	assert.Contains(t, NewStatistics().GetSummary(), "none")
}

func TestGetErrorSummary(t *testing.T) {
	s := NewStatistics()
	assert.Equal(t, "No errors occurred during processing", s.GetErrorSummary())

	for i := 0; i < 12; i++ {
		s.AddError(fmt.Sprintf("f%d.png", i), "decode_failure", "bad data")
	}
	summary := s.GetErrorSummary()
	assert.Contains(t, summary, "Errors (12 total)")
	assert.Contains(t, summary, "decode_failure: f0.png - bad data")
	assert.Contains(t, summary, "... and 2 more errors")
	assert.NotContains(t, summary, "f11.png")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
	assert.Equal(t, "2.5 MB", formatBytes(5*1024*1024/2))
}
