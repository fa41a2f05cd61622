// Package pipeline sequences one generation: eligibility check,
// product analysis, prompt building, four concurrent renders, album
// delivery, then quota commit. Consumption happens strictly after
// successful delivery, so a mid-pipeline failure never burns quota.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"snapsell-bot/internal/analysis"
	"snapsell-bot/internal/render"
	"snapsell-bot/internal/scene"
	"snapsell-bot/internal/store"
)

// ErrQuotaExhausted is the paywall terminal state: not a failure, the
// caller answers with the plans menu. No external call was made and
// nothing was consumed.
var ErrQuotaExhausted = errors.New("generation quota exhausted")

type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (analysis.ProductDescription, error)
}

type Renderer interface {
	Render(ctx context.Context, prompt string, seed, width, height int) ([]byte, error)
}

type Quota interface {
	CanGenerate(userID int64) (bool, error)
	RecordUse(userID int64) (store.Usage, error)
	LogGeneration(userID int64, product string) error
}

type Stage int

const (
	StageAnalyzing Stage = iota
	StageRendering
)

type SceneImage struct {
	Scene scene.Scene
	Data  []byte
}

type Request struct {
	UserID   int64
	Image    []byte
	MimeType string

	// OnStage, when set, is called as the pipeline enters each
	// long-running stage so the caller can update a status message.
	OnStage func(Stage)

	// Deliver sends the finished album to the user. It runs before the
	// quota commit: if it fails, nothing is consumed.
	Deliver func(ctx context.Context, images []SceneImage, desc analysis.ProductDescription) error
}

type Result struct {
	Description analysis.ProductDescription
	Usage       store.Usage
}

type Options struct {
	Quota    Quota
	Analyzer Analyzer
	Renderer Renderer
	Logger   *slog.Logger
	Width    int
	Height   int
}

type Generator struct {
	quota    Quota
	analyzer Analyzer
	renderer Renderer
	logger   *slog.Logger
	width    int
	height   int
}

func New(opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	width := opts.Width
	if width <= 0 {
		width = 1024
	}
	height := opts.Height
	if height <= 0 {
		height = 1024
	}

	return &Generator{
		quota:    opts.Quota,
		analyzer: opts.Analyzer,
		renderer: opts.Renderer,
		logger:   logger,
		width:    width,
		height:   height,
	}
}

func (g *Generator) Run(ctx context.Context, req Request) (Result, error) {
	logger := g.logger.With("request_id", uuid.NewString(), "user_id", req.UserID)

	ok, err := g.quota.CanGenerate(req.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("eligibility check: %w", err)
	}
	if !ok {
		logger.Info("generation refused, quota exhausted")
		return Result{}, ErrQuotaExhausted
	}

	if req.OnStage != nil {
		req.OnStage(StageAnalyzing)
	}
	desc, err := g.analyzer.Analyze(ctx, req.Image, req.MimeType)
	if err != nil {
		return Result{}, fmt.Errorf("analyze product: %w", err)
	}
	logger.Info("product analyzed", "product", desc.ProductEN, "category", desc.Category)

	scenes := scene.Catalog()
	prompts := make([]string, len(scenes))
	for i, sc := range scenes {
		prompts[i] = scene.BuildPrompt(desc, sc)
	}

	if req.OnStage != nil {
		req.OnStage(StageRendering)
	}

	// Fan-out/fan-in barrier: all four renders must succeed before
	// anything is delivered. No partial albums.
	images := make([]SceneImage, len(scenes))
	eg, egCtx := errgroup.WithContext(ctx)
	for i := range scenes {
		i := i
		eg.Go(func() error {
			data, err := g.renderer.Render(egCtx, prompts[i], render.Seed(req.UserID, i), g.width, g.height)
			if err != nil {
				return fmt.Errorf("render %s: %w", scenes[i].Key, err)
			}
			images[i] = SceneImage{Scene: scenes[i], Data: data}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, err
	}

	if req.Deliver != nil {
		if err := req.Deliver(ctx, images, desc); err != nil {
			return Result{}, fmt.Errorf("deliver album: %w", err)
		}
	}

	usage, err := g.quota.RecordUse(req.UserID)
	if err != nil {
		// Delivery already happened; surface the fault but the user
		// keeps the album.
		return Result{Description: desc}, fmt.Errorf("record use: %w", err)
	}

	if err := g.quota.LogGeneration(req.UserID, desc.ProductEN); err != nil {
		logger.Warn("generation audit log failed", "err", err)
	}

	logger.Info("generation completed", "plan", usage.Plan)
	return Result{Description: desc, Usage: usage}, nil
}
