package render

// SizeTag names a render size class. The same document rendered under two
// different tags occupies two disk cache slots.
type SizeTag uint8

const (
	// SizeNormal is the inline message history size.
	SizeNormal SizeTag = iota
	// SizeLarge is the enlarged interaction size.
	SizeLarge
)

func (t SizeTag) String() string {
	switch t {
	case SizeNormal:
		return "normal"
	case SizeLarge:
		return "large"
	default:
		return "unknown"
	}
}

// CacheIndex returns the size-tag sub-index combined into cache keys.
func (t SizeTag) CacheIndex() int {
	return int(t)
}

// Sizing computes pixel sizes per tag for a render surface.
type Sizing struct {
	// NormalPx and LargePx are logical emoji sizes in pixels.
	NormalPx int
	// LargePx see NormalPx.
	LargePx int
	// PixelRatio is the device pixel density multiplier. Zero or
	// negative values are treated as 1.
	PixelRatio float64
}

// DefaultSizing matches the usual message-history emoji sizes.
func DefaultSizing() Sizing {
	return Sizing{
		NormalPx:   36,
		LargePx:    72,
		PixelRatio: 1,
	}
}

// Ratio returns the effective pixel ratio.
func (s Sizing) Ratio() float64 {
	if s.PixelRatio <= 0 {
		return 1
	}
	return s.PixelRatio
}

// SizeFor returns the physical square size in pixels for a tag.
func (s Sizing) SizeFor(tag SizeTag) int {
	logical := s.NormalPx
	if tag == SizeLarge {
		logical = s.LargePx
	}
	if logical <= 0 {
		logical = DefaultSizing().NormalPx
	}
	return int(float64(logical) * s.Ratio())
}
