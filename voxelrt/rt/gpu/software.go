package gpu

import (
	"image"
	"image/draw"

	"github.com/dustin/go-humanize"
)

// Software runs frames on the CPU. Sessions without a GPU adapter fall back
// to it, and it is the reference the shaders are checked against.
type Software struct {
	cfg   Config
	log   Logger
	accum AccumulationTargets
	fb    *Framebuffer
	frame *image.RGBA
	drawn bool
}

func NewSoftware(cfg Config, log Logger) *Software {
	if log == nil {
		log = nopLogger{}
	}
	return &Software{cfg: cfg, log: log}
}

func (s *Software) Accumulation() *AccumulationTargets { return &s.accum }

func (s *Software) Resize(width, height int) error {
	if !s.accum.Resize(width, height) {
		return nil
	}
	s.drawn = false
	if !s.accum.Valid() {
		s.fb, s.frame = nil, nil
		s.log.Debugf("software targets released")
		return nil
	}
	s.fb = NewFramebuffer(width, height)
	s.frame = image.NewRGBA(image.Rect(0, 0, width, height))
	total := s.accum.Bytes() + s.fb.Color.Bytes() + 4*len(s.fb.Depth) + len(s.frame.Pix)
	s.log.Debugf("software targets %dx%d: %s", width, height, humanize.Bytes(uint64(total)))
	return nil
}

func (s *Software) Draw(f *Frame) error {
	if s.frame == nil {
		return ErrNoFrame
	}
	switch f.Path {
	case PathEditor, PathPreview:
		s.fb.Clear(f.Background)
		for i := range f.Batches {
			s.fb.DrawBatch(f.ViewProjection, &f.Batches[i])
		}
		s.fb.Color.CopyTo(s.frame)
	case PathTrace:
		traceCPU(&f.Trace, f.Volume, s.accum.Front(), s.accum.Back(), s.cfg.Workers)
		s.accum.Swap()
		s.accum.Front().CopyTo(s.frame)
	}
	if f.HUD != nil {
		draw.Draw(s.frame, f.HUD.Bounds(), f.HUD, image.Point{}, draw.Over)
	}
	s.drawn = true
	return nil
}

// Capture returns the frame image itself; it is overwritten by the next Draw.
func (s *Software) Capture() (*image.RGBA, error) {
	if !s.drawn {
		return nil, ErrNoFrame
	}
	return s.frame, nil
}

func (s *Software) Release() {
	s.accum.Resize(0, 0)
	s.fb, s.frame, s.drawn = nil, nil, false
}
