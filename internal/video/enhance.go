package video

import (
	"fmt"
	"image"

	"github.com/disintegration/gift"
	"gocv.io/x/gocv"

	"github.com/banshee-data/trackcam/internal/monitoring"
)

// EnhanceConfig tunes the optional preprocessing applied before tracking.
type EnhanceConfig struct {
	Contrast float32 // Percentage in [-100, 100]
	Gamma    float32 // 1 leaves the image unchanged
	Sharpen  float32 // Unsharp mask amount; 0 disables sharpening
}

// DefaultEnhanceConfig returns a mild contrast and sharpening boost for
// low-contrast footage.
func DefaultEnhanceConfig() EnhanceConfig {
	return EnhanceConfig{Contrast: 20, Gamma: 1.1, Sharpen: 1}
}

// Enhancer applies a fixed gift filter chain to frames.
type Enhancer struct {
	g *gift.GIFT
}

// NewEnhancer builds the filter chain for cfg.
func NewEnhancer(cfg EnhanceConfig) *Enhancer {
	var filters []gift.Filter
	if cfg.Contrast != 0 {
		filters = append(filters, gift.Contrast(cfg.Contrast))
	}
	if cfg.Gamma != 0 && cfg.Gamma != 1 {
		filters = append(filters, gift.Gamma(cfg.Gamma))
	}
	if cfg.Sharpen > 0 {
		filters = append(filters, gift.UnsharpMask(1, cfg.Sharpen, 0))
	}
	return &Enhancer{g: gift.New(filters...)}
}

// Apply returns the enhanced copy of img.
func (e *Enhancer) Apply(img image.Image) *image.RGBA {
	dst := image.NewRGBA(e.g.Bounds(img.Bounds()))
	e.g.Draw(dst, img)
	return dst
}

// EnhancedSource wraps a Source and enhances every frame it reads. Frames
// that cannot be converted are passed through unchanged.
type EnhancedSource struct {
	src      *Source
	enhancer *Enhancer
	out      gocv.Mat
	warned   bool
}

// NewEnhancedSource wraps src.
func NewEnhancedSource(src *Source, enhancer *Enhancer) *EnhancedSource {
	return &EnhancedSource{src: src, enhancer: enhancer, out: gocv.NewMat()}
}

// Read returns the next enhanced frame.
func (s *EnhancedSource) Read() (gocv.Mat, bool) {
	frame, ok := s.src.Read()
	if !ok {
		return frame, false
	}
	out, err := s.enhance(frame)
	if err != nil {
		if !s.warned {
			monitoring.Logf("frame enhancement disabled for this frame: %v", err)
			s.warned = true
		}
		return frame, true
	}
	s.out.Close()
	s.out = out
	return s.out, true
}

func (s *EnhancedSource) enhance(frame gocv.Mat) (gocv.Mat, error) {
	img, err := frame.ToImage()
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("mat to image: %w", err)
	}
	mat, err := gocv.ImageToMatRGB(s.enhancer.Apply(img))
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("image to mat: %w", err)
	}
	return mat, nil
}

// Close releases the enhanced frame buffer and the wrapped source.
func (s *EnhancedSource) Close() error {
	s.out.Close()
	return s.src.Close()
}
