package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/custodia-labs/ragindex/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/config/file"
	registryfile "github.com/custodia-labs/ragindex/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragindex/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/core/services"
	"github.com/custodia-labs/ragindex/internal/extractors/antiword"
	"github.com/custodia-labs/ragindex/internal/extractors/docx"
	"github.com/custodia-labs/ragindex/internal/extractors/exec"
	"github.com/custodia-labs/ragindex/internal/extractors/layout"
	"github.com/custodia-labs/ragindex/internal/extractors/pdftext"
	"github.com/custodia-labs/ragindex/internal/extractors/plaintext"
	"github.com/custodia-labs/ragindex/internal/extractors/tesseract"
	"github.com/custodia-labs/ragindex/internal/extractors/transcription"
	"github.com/custodia-labs/ragindex/internal/logger"
	"github.com/custodia-labs/ragindex/internal/postprocessors/chunker"
)

// bootstrap loads settings and wires every service the commands use.
func bootstrap(ctx context.Context, configPath string) (cli.Services, func(), error) {
	store, err := openConfig(configPath)
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("loading config: %w", err)
	}

	settingsService := services.NewSettingsService(store, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return cli.Services{}, nil, err
	}
	if err := settings.Validate(); err != nil {
		return cli.Services{}, nil, fmt.Errorf("invalid configuration in %s: %w", store.Path(), err)
	}
	if settings.DataDir == "" {
		return cli.Services{}, nil, fmt.Errorf("%w: data_dir must be set (%s) when running without a config file",
			domain.ErrInvalidInput, file.EnvName("data_dir"))
	}

	var closers []io.Closer
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("close: %v", err)
			}
		}
	}
	fail := func(err error) (cli.Services, func(), error) {
		cleanup()
		return cli.Services{}, nil, err
	}

	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return fail(fmt.Errorf("embedding: %w", err))
	}

	stores, err := openStores(ctx, settings, embedder.Dimensions())
	if err != nil {
		return fail(err)
	}
	closers = append(closers, stores.closers...)

	registry := services.NewFileRegistry(stores.fingerprints)
	gateway := services.NewIndexGateway(embedder, stores.vectors, settings.Embedding.BatchSize)
	closers = append(closers, gateway)

	extractor := services.NewContentExtractor(newExtractors(settings.Extraction), settings.Extraction)
	chunks := chunker.New(
		chunker.WithChunkSize(settings.Ingest.ChunkSize),
		chunker.WithOverlap(settings.Ingest.ChunkOverlap),
		chunker.WithBoundary(settings.Ingest.ChunkBoundary),
	)
	pipeline := services.NewPipeline(registry, extractor, chunks, gateway, settings.Ingest)
	scheduler := services.NewScheduler(settings.Ingest, pipeline, registry, stores.history)

	logger.Debug("wired %s embeddings (%d dims), %s vectors, %s registry",
		settings.Embedding.Provider, embedder.Dimensions(), settings.Vector.Backend, settings.Registry.Backend)

	return cli.Services{
		Settings:  settingsService,
		Retrieval: services.NewRetrievalService(gateway),
		Index:     services.NewIndexService(gateway, registry),
		Scheduler: scheduler,
	}, cleanup, nil
}

// openConfig picks the config store: the in-memory store for memory.ConfigPath,
// otherwise the TOML file at configPath or ~/.ragindex/config.toml.
func openConfig(configPath string) (driven.ConfigStore, error) {
	switch configPath {
	case memory.ConfigPath:
		return memory.NewEnvConfigStore(file.EnvName, os.LookupEnv), nil
	case "":
		return file.NewConfigStore("")
	default:
		return file.NewConfigStoreAt(configPath)
	}
}

// storeSet is the persistence chosen by settings.
type storeSet struct {
	fingerprints driven.FingerprintStore
	history      driven.ScanHistoryStore
	vectors      driven.VectorStore
	closers      []io.Closer
}

func openStores(ctx context.Context, settings *domain.Settings, dims int) (*storeSet, error) {
	set := &storeSet{}

	// The sqlite database is opened once and shared by every backend that uses it.
	var db *sqlite.Store
	needSQLite := settings.Vector.Backend == domain.VectorBackendSQLite ||
		settings.Registry.Backend == domain.RegistryBackendSQLite ||
		settings.Registry.Backend == domain.RegistryBackendJSON
	if needSQLite {
		var err error
		db, err = sqlite.NewStore(settings.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		set.closers = append(set.closers, db)
		set.history = db.ScanHistoryStore()
	} else {
		set.history = memory.NewScanHistoryStore()
	}

	switch settings.Registry.Backend {
	case domain.RegistryBackendJSON:
		path := settings.Registry.Path
		if path == "" {
			path = filepath.Join(settings.DataDir, "registry.json")
		}
		set.fingerprints = registryfile.NewRegistryStore(path)
	case domain.RegistryBackendSQLite:
		set.fingerprints = db.FingerprintStore()
	case domain.RegistryBackendMemory:
		set.fingerprints = memory.NewFingerprintStore()
	}

	switch settings.Vector.Backend {
	case domain.VectorBackendSQLite:
		set.vectors = db.VectorStore(settings.Vector.Collection, dims)
	case domain.VectorBackendQdrant:
		vs, err := qdrant.New(ctx, qdrant.Config{
			Addr:       settings.Vector.QdrantAddr,
			APIKey:     settings.Vector.QdrantAPIKey,
			Collection: settings.Vector.Collection,
			Dimensions: dims,
		})
		if err != nil {
			for _, c := range set.closers {
				_ = c.Close()
			}
			return nil, fmt.Errorf("connecting to qdrant: %w", err)
		}
		set.vectors = vs
	case domain.VectorBackendMemory:
		set.vectors = memory.NewVectorStore(dims)
	}

	if set.fingerprints == nil || set.vectors == nil {
		for _, c := range set.closers {
			_ = c.Close()
		}
		return nil, errors.New("unsupported storage backend")
	}
	return set, nil
}

// newExtractors builds one collaborator per extraction path. Services
// without a configured URL are left nil, which routes to the fallbacks.
func newExtractors(cfg domain.ExtractionSettings) services.Extractors {
	runner := exec.NewRunner()
	ocr := tesseract.New(runner, cfg.TesseractLang)

	ex := services.Extractors{
		PDFFallback:   pdftext.New(runner, ocr),
		ImageFallback: ocr,
		DOCX:          docx.New(),
		LegacyDOC:     antiword.New(runner),
		Text:          plaintext.New(),
	}
	if cfg.LayoutURL != "" {
		ex.Layout = layout.New(cfg.LayoutURL)
	}
	if cfg.TranscriptionURL != "" {
		ex.Transcription = transcription.New(cfg.TranscriptionURL, "")
	}
	return ex
}
