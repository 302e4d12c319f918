package compressor

// PlanReduction returns the largest power-of-two factor that keeps both
// halved source dimensions at or above the target box. It returns 1 when the
// source already fits or the target box is degenerate.
func PlanReduction(src Dimensions, targetWidth, targetHeight int) int {
	factor := 1
	if targetWidth <= 0 || targetHeight <= 0 {
		return factor
	}
	if src.Height <= targetHeight && src.Width <= targetWidth {
		return factor
	}

	halfHeight := src.Height / 2
	halfWidth := src.Width / 2
	for halfHeight/factor >= targetHeight && halfWidth/factor >= targetWidth {
		factor *= 2
	}
	return factor
}
