package compressor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanReduction(t *testing.T) {
	square := Dimensions{Width: 800, Height: 800}

	tests := []struct {
		name   string
		src    Dimensions
		width  int
		height int
		want   int
	}{
		{"half resolution", square, 400, 400, 2},
		{"box larger than source", square, 1000, 1000, 1},
		{"box partially larger than source", square, 1000, 500, 1},
		{"box between half and full", square, 500, 500, 1},
		{"quarter resolution", square, 200, 200, 4},
		{"width quarter height half", square, 200, 400, 2},
		{"landscape photo into default box", Dimensions{Width: 4000, Height: 3000}, 612, 816, 2},
		{"small source into default box", Dimensions{Width: 500, Height: 500}, 612, 816, 1},
		{"exact fit", Dimensions{Width: 612, Height: 816}, 612, 816, 1},
		{"zero width box", square, 0, 400, 1},
		{"negative height box", square, 400, -1, 1},
		{"one pixel box", Dimensions{Width: 1024, Height: 1024}, 1, 1, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanReduction(tt.src, tt.width, tt.height))
		})
	}
}

func TestPlanReductionProperties(t *testing.T) {
	sizes := []int{1, 2, 3, 7, 100, 333, 612, 816, 999, 1000, 1024, 2048, 3000, 4000, 4999}
	boxes := []int{1, 5, 64, 200, 400, 612, 816, 1000}

	for _, w := range sizes {
		for _, h := range sizes {
			for _, tw := range boxes {
				for _, th := range boxes {
					src := Dimensions{Width: w, Height: h}
					f := PlanReduction(src, tw, th)

					if !assert.GreaterOrEqual(t, f, 1) {
						return
					}
					assert.Zero(t, f&(f-1), "factor %d is not a power of two", f)
					assert.Equal(t, f, PlanReduction(src, tw, th), "not deterministic")

					if h <= th && w <= tw {
						assert.Equal(t, 1, f, "%dx%d fits %dx%d", w, h, tw, th)
						continue
					}
					// f > 1 iff both halves reach the box.
					fitsHalf := h/2 >= th && w/2 >= tw
					assert.Equal(t, fitsHalf, f > 1, "%dx%d into %dx%d", w, h, tw, th)
					if f > 1 {
						assert.GreaterOrEqual(t, h/2/(f/2), th)
						assert.GreaterOrEqual(t, w/2/(f/2), tw)
					}
					// Maximality.
					assert.False(t, h/2/f >= th && w/2/f >= tw, "%dx%d into %dx%d: %d not maximal", w, h, tw, th, f)
				}
			}
		}
	}
}
