// Command reindex re-runs the ingestion pipeline over stored documents, for example
// after switching the embedding model or the vector backend.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"jurisrag/internal/bootstrap"
	"jurisrag/internal/model"
	"jurisrag/internal/repository"
)

const pageSize = 200

func main() {
	reset := flag.Bool("reset", false, "delete every vector before reindexing")
	docType := flag.String("type", "", "only reindex documents of this type")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	logger := app.Logger
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error().Err(err).Msg("close resources failed")
		}
	}()

	if *reset {
		if err := app.Vectors.DeleteAll(ctx); err != nil {
			logger.Error().Err(err).Msg("reset vector index failed")
			return
		}
		logger.Info().Str("backend", app.Vectors.Backend()).Msg("vector index cleared")
	}

	// a processing document untouched this long has no live worker
	staleBefore := time.Now().Add(-app.Config.StaleAfter())
	var ids []string
	for offset := 0; ; offset += pageSize {
		docs, total, err := app.Ingest.List(ctx, repository.DocumentFilter{DocumentType: *docType, Offset: offset, Limit: pageSize})
		if err != nil {
			logger.Error().Err(err).Msg("list documents failed")
			return
		}
		for _, d := range docs {
			if d.Status != model.StatusProcessing || d.UpdatedAt.Before(staleBefore) {
				ids = append(ids, d.ID)
			}
		}
		if len(docs) == 0 || int64(offset+len(docs)) >= total {
			break
		}
	}

	logger.Info().Int("documents", len(ids)).Msg("reindex started")
	errs := app.Ingest.ProcessBatch(ctx, ids)
	for id, err := range errs {
		logger.Warn().Err(err).Str("document_id", id).Msg("reindex failed")
	}
	logger.Info().Int("documents", len(ids)).Int("failed", len(errs)).Msg("reindex finished")
}
