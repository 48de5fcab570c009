package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/solk8s/internal/config"
	"github.com/imamik/solk8s/internal/manifest"
)

// RenderOptions are the inputs of Render.
type RenderOptions struct {
	Params  config.Params
	WorkDir string
	OutPath string
}

// Render builds the genesis and the manifests and writes them as YAML to
// OutPath or stdout. The cluster is not contacted and the namespace is not
// checked.
func Render(ctx context.Context, opts RenderOptions) error {
	spec, err := config.ResolveWithTimeouts(opts.Params, config.LoadTimeouts())
	if err != nil {
		return err
	}
	if err := checkGenesisPrereqs().Error(); err != nil {
		return err
	}

	bundle, err := newGenesisBuilder(opts.WorkDir).Build(ctx, spec)
	if err != nil {
		return err
	}
	plan, err := manifest.Build(spec, bundle)
	if err != nil {
		return err
	}

	data, err := manifest.Render(plan)
	if err != nil {
		return err
	}

	if opts.OutPath == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := writeFile(opts.OutPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifests to %s: %w", opts.OutPath, err)
	}
	return nil
}
