package dto

// DetectionResult is a single detector hit in pixel coordinates of the source frame.
type DetectionResult struct {
	ClassID    int
	Confidence float64
	X1         int
	Y1         int
	X2         int
	Y2         int
}

// Box returns the detection corners as a Box.
func (d DetectionResult) Box() Box {
	return Box{d.X1, d.Y1, d.X2, d.Y2}
}
