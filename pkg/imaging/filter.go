package imaging

// FilterThresholds controls the size/shape heuristics separating
// plausible figures from decorative artifacts (bullets, rules,
// hairlines). The filtering is intentionally permissive: final
// accept/reject belongs to human review and the generation step's own
// validity judgment.
type FilterThresholds struct {
	// Embedded-object path (PDF): reject undersized images whose area
	// is also tiny, and anything with an extreme aspect ratio.
	MinSide   int
	MinArea   int
	MinAspect float64
	MaxAspect float64

	// Slide path (PPTX): plain floor on either dimension.
	SlideMinSide int

	// Largest allowed dimension before lossless downscale. Zero
	// disables downscaling.
	MaxDimension int
}

// DefaultThresholds is the documented, uniformly applied set.
func DefaultThresholds() FilterThresholds {
	return FilterThresholds{
		MinSide:      20,
		MinArea:      200,
		MinAspect:    0.02,
		MaxAspect:    50,
		SlideMinSide: 15,
		MaxDimension: 1024,
	}
}

// KeepEmbedded reports whether a recovered PDF raster survives the
// noise filter.
func (t FilterThresholds) KeepEmbedded(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	if (width < t.MinSide || height < t.MinSide) && width*height < t.MinArea {
		return false
	}
	aspect := float64(width) / float64(height)
	if aspect < t.MinAspect || aspect > t.MaxAspect {
		return false
	}
	return true
}

// KeepSlide reports whether a slide media image survives the floor.
func (t FilterThresholds) KeepSlide(width, height int) bool {
	return width > t.SlideMinSide && height > t.SlideMinSide
}
