// Package app assembles the analysis components from configuration, for use
// by both the server and the CLI.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/acheong08/credscore/internal/analysis"
	"github.com/acheong08/credscore/internal/config"
	"github.com/acheong08/credscore/internal/extract"
	"github.com/acheong08/credscore/internal/history"
)

// App holds the wired components
type App struct {
	Config    *config.Config
	Analyzer  *analysis.Analyzer
	Extractor *extract.Extractor
	History   *history.Store
	Logger    *zap.Logger

	closeSlot func() error
}

// Open wires every component described by cfg. Image extraction is enabled
// only when a vision API key is configured.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	slot, closeSlot, err := history.OpenSlot(ctx, cfg.HistoryBackend, cfg.HistoryLocation())
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	analyzer := analysis.New(cfg.AnalyzeEndpoint,
		analysis.WithTimeout(cfg.AnalyzeTimeout),
		analysis.WithStatusPolicy(cfg.StatusPolicy),
		analysis.WithLogger(logger.Named("analysis")),
	)

	var recognizer extract.Recognizer
	if cfg.VisionAPIKey != "" {
		vision, err := extract.NewVisionRecognizer(ctx, cfg.VisionAPIKey, cfg.VisionBaseURL, cfg.VisionModel)
		if err != nil {
			_ = closeSlot()
			return nil, err
		}
		recognizer = vision
	} else {
		logger.Info("VISION_API_KEY not set, image uploads disabled")
	}

	return &App{
		Config:    cfg,
		Analyzer:  analyzer,
		Extractor: extract.NewExtractor(recognizer, cfg.MaxImageBytes),
		History:   history.NewStore(slot, history.WithLogger(logger.Named("history"))),
		Logger:    logger,
		closeSlot: closeSlot,
	}, nil
}

// Close releases the history backend
func (a *App) Close() error {
	return a.closeSlot()
}
