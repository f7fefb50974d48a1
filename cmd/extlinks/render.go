package main

import (
	"fmt"
	"io"

	"github.com/nao1215/extlinks/internal/config"
	"github.com/nao1215/extlinks/internal/report"
	"github.com/nao1215/extlinks/internal/view"
)

// fileRenderer renders each projection to the configured output. When the
// output is a file it is truncated first, so it always holds only the
// latest list.
type fileRenderer struct {
	cfg    *config.Config
	stdout io.Writer
}

var _ view.Renderer = (*fileRenderer)(nil)

// Render implements view.Renderer.
func (r *fileRenderer) Render(p view.Projection) (err error) {
	out, closeOut, err := openOutput(r.cfg, r.stdout)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
	}()

	renderer, err := report.NewRenderer(r.cfg.Format, out)
	if err != nil {
		return err
	}
	return renderer.Render(p)
}
