package fetch

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// EscalatingFetcher tries a plain HTTP fetch first and promotes to the
// renderer when the detector decides the page needs JavaScript. With no
// renderer it degrades to the plain fetch alone.
type EscalatingFetcher struct {
	plain    Fetcher
	renderer Fetcher
	detector Detector
	logger   *zap.Logger
}

// NewEscalatingFetcher wires the probe-then-render flow.
func NewEscalatingFetcher(plain, renderer Fetcher, detector Detector, logger *zap.Logger) *EscalatingFetcher {
	return &EscalatingFetcher{
		plain:    plain,
		renderer: renderer,
		detector: detector,
		logger:   logger,
	}
}

// Fetch implements Fetcher.
func (f *EscalatingFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	page, err := f.plain.Fetch(ctx, rawURL)
	if err != nil {
		// Robots denials are final; everything else may still succeed rendered.
		if errors.Is(err, ErrRobotsDisallowed) || f.renderer == nil {
			return Page{}, err
		}
		f.logger.Warn("Plain fetch failed; escalating to renderer", zap.String("url", rawURL), zap.Error(err))
		return f.renderer.Fetch(ctx, rawURL)
	}

	if f.renderer == nil || f.detector == nil || !f.detector.NeedsJS(ctx, page) {
		return page, nil
	}

	f.logger.Info("Page needs JS; escalating to renderer", zap.String("url", rawURL))
	rendered, err := f.renderer.Fetch(ctx, rawURL)
	if err != nil {
		f.logger.Warn("Render failed; keeping plain fetch result", zap.String("url", rawURL), zap.Error(err))
		return page, nil
	}
	return rendered, nil
}
