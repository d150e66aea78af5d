// Package build packages the UI assets for production: it copies the source
// tree, bundles and minifies it, content-hashes static files, rewrites the
// references and the bootstrap module paths, and renders the Apache virtual
// host configuration.
package build

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Output layout below the target directory
const (
	OriginalDir  = "original"
	OptimizedDir = "optimized"
	ManifestFile = "hashes.json"
)

// BootstrapPath is the logical path of the module that carries the module
// paths table read by the browser loader
const BootstrapPath = "/shared/gh/api/gh.bootstrap.js"

// Options configures a pipeline run
type Options struct {
	// Source is the root of the UI source tree
	Source string
	// Target receives original/ and optimized/
	Target string
	// Entry is the root module of the bundle
	Entry string
	// Apps lists the apps with Apache templates. Empty means every
	// directory below apps/.
	Apps []string
	// Minify disables minification when false. Bundling still happens.
	Minify bool
}

// Stage is one step of the pipeline
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pipeline runs the build stages in order, stopping at the first failure
type Pipeline struct {
	opts     Options
	logger   *logrus.Logger
	manifest Manifest
}

// NewPipeline creates a pipeline
func NewPipeline(opts Options, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.Source == "" {
		opts.Source = "."
	}
	if opts.Target == "" {
		opts.Target = "target"
	}
	if opts.Entry == "" {
		opts.Entry = "gh.core"
	}

	return &Pipeline{opts: opts, logger: logger}
}

// Options returns the effective options
func (p *Pipeline) Options() Options {
	return p.opts
}

func (p *Pipeline) originalDir() string {
	return filepath.Join(p.opts.Target, OriginalDir)
}

func (p *Pipeline) optimizedDir() string {
	return filepath.Join(p.opts.Target, OptimizedDir)
}

// Stages returns the default production build
func (p *Pipeline) Stages() []Stage {
	return []Stage{
		{Name: "clean", Run: p.Clean},
		{Name: "copy", Run: p.Copy},
		{Name: "optimize", Run: p.Optimize},
		{Name: "hash", Run: p.Hash},
		{Name: "bootstrap", Run: p.UpdateBootstrapPaths},
		{Name: "apache", Run: p.ConfigApache},
	}
}

// Run executes the default production build
func (p *Pipeline) Run(ctx context.Context) error {
	return p.run(ctx, p.Stages())
}

// Release runs the production build into the target directory and points
// the rendered app configuration at it
func (p *Pipeline) Release(ctx context.Context) error {
	stages := append(p.Stages(), Stage{Name: "changePaths", Run: p.ChangePaths})
	return p.run(ctx, stages)
}

func (p *Pipeline) run(ctx context.Context, stages []Stage) error {
	start := time.Now()

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		stageStart := time.Now()
		if err := stage.Run(ctx); err != nil {
			p.logger.WithError(err).WithField("stage", stage.Name).Error("Build stage failed")
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}

		p.logger.WithFields(logrus.Fields{
			"stage":    stage.Name,
			"duration": time.Since(stageStart).String(),
		}).Info("Build stage completed")
	}

	p.logger.WithFields(logrus.Fields{
		"target":   p.opts.Target,
		"duration": time.Since(start).String(),
	}).Info("Build completed")
	return nil
}
