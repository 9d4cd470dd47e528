package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// Pipeline indexes one source file at a time:
// extract, chunk, replace the file's vectors, commit, then finalise.
type Pipeline struct {
	registry  *FileRegistry
	extractor driven.Extractor
	chunker   driven.Chunker
	index     *IndexGateway

	maxFileSize int64
	archiveDir  string
	now         func() time.Time
}

// NewPipeline creates a pipeline.
func NewPipeline(
	registry *FileRegistry,
	extractor driven.Extractor,
	chunker driven.Chunker,
	index *IndexGateway,
	cfg domain.IngestSettings,
) *Pipeline {
	return &Pipeline{
		registry:    registry,
		extractor:   extractor,
		chunker:     chunker,
		index:       index,
		maxFileSize: cfg.MaxFileSizeBytes(),
		archiveDir:  cfg.ArchiveDirectory,
		now:         time.Now,
	}
}

// ProcessFile indexes file if its content is new or changed.
// It returns the outcome and the number of chunks written.
//
// On error the file is left in place and the registry is untouched,
// so the next cycle retries it.
func (p *Pipeline) ProcessFile(ctx context.Context, file *domain.SourceFile) (domain.FileOutcome, int, error) {
	if p.maxFileSize > 0 && file.SizeBytes > p.maxFileSize {
		return domain.OutcomeFailed, 0, fmt.Errorf("%w: %s is %d bytes, limit is %d",
			domain.ErrFileTooLarge, file.Name, file.SizeBytes, p.maxFileSize)
	}

	indexed, err := p.registry.IsAlreadyIndexed(ctx, file)
	if err != nil {
		return domain.OutcomeFailed, 0, err
	}
	if indexed {
		logger.Debug("%s unchanged, skipping", file.Name)
		p.finalise(file)
		return domain.OutcomeSkipped, 0, nil
	}

	// Hash before extracting so the fingerprint describes the bytes that were read.
	if _, err := p.registry.EnsureHash(file); err != nil {
		return domain.OutcomeFailed, 0, fmt.Errorf("hash %s: %w", file.Name, err)
	}

	doc, err := p.extractor.Extract(ctx, file)
	if err != nil {
		return domain.OutcomeFailed, 0, err
	}

	chunks, err := p.chunker.Chunk(doc, file.Name)
	if err != nil {
		return domain.OutcomeFailed, 0, fmt.Errorf("chunk %s: %w", file.Name, err)
	}

	// Always clear old vectors: a previous attempt may have upserted
	// without committing, and a shorter revision leaves stale tail chunks.
	if err := p.index.DeleteByFilename(ctx, file.Name); err != nil {
		return domain.OutcomeFailed, 0, err
	}
	if err := p.index.Upsert(ctx, chunks); err != nil {
		return domain.OutcomeFailed, 0, err
	}

	fp := file.Fingerprint(p.now())
	fp.ChunkCount = len(chunks)
	fp.Extractor = doc.ExtractorUsed

	// The commit must not be interrupted half way by Stop.
	if err := p.registry.Commit(context.WithoutCancel(ctx), file, fp); err != nil {
		return domain.OutcomeFailed, 0, err
	}

	logger.Info("indexed %s: %d chunks via %s", file.Name, len(chunks), doc.ExtractorUsed)
	p.finalise(file)
	return domain.OutcomeIndexed, len(chunks), nil
}

// finalise removes or archives a file whose content is indexed.
// Failures are logged; the next cycle sees the file as unchanged and retries.
func (p *Pipeline) finalise(file *domain.SourceFile) {
	var err error
	if p.archiveDir != "" {
		err = moveFile(file.Path, filepath.Join(p.archiveDir, filepath.FromSlash(file.Name)))
	} else {
		err = os.Remove(file.Path)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("finalise %s: %v", file.Name, err)
	}
}

// moveFile renames src to dst, copying when they are on different devices.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies src to dst through a temporary file in dst's directory.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + partSuffix
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
