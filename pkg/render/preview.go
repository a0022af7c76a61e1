package render

// Preview is a best-effort low-resolution placeholder shown while the full
// asset loads: the document's inline thumbnail vector path plus the scale
// needed to draw it at the target render size.
type Preview struct {
	// PathData is the thumbnail's vector path outline.
	PathData string

	// Scale maps the thumbnail's native coordinate space to the target
	// render size.
	Scale float64
}

// Empty reports whether no preview is available.
func (p Preview) Empty() bool {
	return p.PathData == ""
}
