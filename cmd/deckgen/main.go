package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deckgen/deckgen/internal/config"
	"github.com/deckgen/deckgen/internal/deck"
	"github.com/deckgen/deckgen/internal/document"
	"github.com/deckgen/deckgen/internal/extraction"
	"github.com/deckgen/deckgen/internal/generation"
	"github.com/deckgen/deckgen/internal/pdf"
	"github.com/deckgen/deckgen/internal/pptx"
	"github.com/deckgen/deckgen/pkg/imaging"
	"github.com/deckgen/deckgen/pkg/logger"
	"github.com/deckgen/deckgen/pkg/models"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	filePath := flag.String("file", "", "single PDF or PPTX to process")
	dirPath := flag.String("dir", "", "directory of documents to process (overrides -file)")
	userID := flag.String("user", "local", "user id owning the decks")
	language := flag.String("language", "", "target language for card names (overrides config)")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	debug := flag.Bool("debug", false, "enable debug mode with trace logging")
	flag.Parse()

	log := logger.New(logger.WithPrefix("[deckgen] "))
	log.SetVerbose(*verbose)
	if *debug {
		log.SetLevel(logger.LevelTrace)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatal("Error loading config: %v", err)
		}
		log.Debug("No config file at %s, using defaults", *configPath)
		cfg = config.Default()
	}
	if *language != "" {
		cfg.TargetLanguage = *language
	}

	if *filePath == "" && *dirPath == "" {
		log.Fatal("Provide -file or -dir")
	}

	ctx := context.Background()

	thresholds := imaging.FilterThresholds{
		MinSide:      cfg.Extraction.MinSide,
		MinArea:      cfg.Extraction.MinArea,
		MinAspect:    cfg.Extraction.MinAspect,
		MaxAspect:    cfg.Extraction.MaxAspect,
		SlideMinSide: cfg.Extraction.SlideMinSide,
		MaxDimension: cfg.Extraction.MaxDimension,
	}

	orchestrator := extraction.NewOrchestrator(
		pdf.NewExtractor(thresholds, log),
		pptx.NewExtractor(thresholds, log),
		log,
	)

	provider, err := generation.NewProvider(ctx, cfg.AI, log)
	if err != nil {
		log.Fatal("Error creating provider: %v", err)
	}

	store, err := deck.NewStore(cfg.StorageDir, log)
	if err != nil {
		log.Fatal("Error opening deck store: %v", err)
	}

	var inputs []extraction.DocumentFile
	if *dirPath != "" {
		scanner := extraction.NewScanner(log)
		inputs, err = scanner.FindDocuments(ctx, *dirPath)
		if err != nil {
			log.Fatal("Error finding documents: %v", err)
		}
	} else {
		inputs = []extraction.DocumentFile{{AbsolutePath: *filePath, RelativePath: filepath.Base(*filePath)}}
	}

	decks, err := store.LoadDecks(*userID)
	if err != nil {
		log.Fatal("Error loading decks: %v", err)
	}

	pipeline := generation.NewPipeline(provider, cfg.TargetLanguage, log)

	processed, failed := 0, 0
	for _, input := range inputs {
		log.Info("Processing %s", input.RelativePath)

		d, err := processDocument(ctx, input, orchestrator, pipeline, log)
		if err != nil {
			if errors.Is(err, extraction.ErrNoCandidates) {
				log.Info("No candidate images in %s, skipping", input.RelativePath)
			} else {
				log.Warn("Error processing %s: %v", input.RelativePath, err)
			}
			failed++
			continue
		}

		decks = append(decks, *d)
		processed++
	}

	if processed > 0 {
		if err := store.SaveDecks(*userID, decks); err != nil {
			log.Fatal("Error saving decks: %v", err)
		}
	}

	log.Info("Processing complete:")
	log.Info("- Documents processed: %d", processed)
	log.Info("- Documents skipped/failed: %d", failed)
	log.Info("- Decks saved to: %s", cfg.StorageDir)
}

// processDocument extracts candidates, approves them all (the CLI has
// no review screen; curation happens in the presentation layer) and
// runs generation. Nothing is persisted when extraction fails or
// yields no candidates.
func processDocument(ctx context.Context, input extraction.DocumentFile, orchestrator *extraction.Orchestrator, pipeline *generation.Pipeline, log *logger.Logger) (*models.Deck, error) {
	data, err := os.ReadFile(input.AbsolutePath)
	if err != nil {
		return nil, err
	}

	candidates, err := orchestrator.ExtractCandidates(ctx, data, func(current, total int) {
		log.Trace("extracting page %d/%d", current, total)
	})
	if err != nil {
		return nil, err
	}

	title := strings.TrimSuffix(input.RelativePath, filepath.Ext(input.RelativePath))
	if kind, kerr := document.DetectKind(data); kerr == nil {
		log.Debug("Building %s deck %q with %d candidates", kind, title, len(candidates))
	}

	now := time.Now()
	d := models.NewDeck(title, now)
	generation.ApproveCandidates(&d, candidates, now)

	if err := pipeline.Run(ctx, &d, func(current, total int) {
		log.Info("Generated card %d/%d", current, total)
	}); err != nil {
		return nil, err
	}

	completed := 0
	for _, c := range d.Cards {
		if c.Status == models.StatusCompleted {
			completed++
		}
	}
	log.Info("Deck %q: %d completed cards, %d ignored images", title, completed, len(d.IgnoredImages))

	return &d, nil
}
