// Package posting implements the document completion engine: the one
// place where document lifecycle transitions and ledger writes are
// combined atomically, followed by retroactive reprocessing of any
// history the transition invalidated.
package posting

import (
	"context"
	"fmt"
	"time"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/tx"
	"kardex/internal/domain/ledger"
	"kardex/pkg/logger"
)

// Postable is implemented by every stock-moving document kind.
type Postable interface {
	GetID() id.ID
	GetDocumentType() string
	GetDate() time.Time
	GetStatus() entity.Status
	MarkCompleted() error
	MarkCancelled() error

	// GenerateApplications produces the ledger apply requests for this
	// document, in the order they must be recorded.
	GenerateApplications(ctx context.Context) ([]ledger.ApplyRequest, error)
}

// Engine completes and cancels documents against the valuation ledger.
type Engine struct {
	writer    *ledger.Writer
	guard     *ledger.Guard
	processor *ledger.Engine
	txm       tx.Manager
}

// NewEngine creates a posting engine.
func NewEngine(writer *ledger.Writer, guard *ledger.Guard, processor *ledger.Engine, txm tx.Manager) *Engine {
	return &Engine{writer: writer, guard: guard, processor: processor, txm: txm}
}

// Complete records the document's movements and flips it to completed,
// atomically. If the document is dated before already-recorded history,
// that history is reprocessed after the commit.
func (e *Engine) Complete(ctx context.Context, doc Postable, updateDoc func(ctx context.Context) error) error {
	var keys []ledger.ReprocessKey

	err := e.txm.RunSerializable(ctx, func(ctx context.Context) error {
		if err := doc.MarkCompleted(); err != nil {
			return err
		}

		reqs, err := doc.GenerateApplications(ctx)
		if err != nil {
			return fmt.Errorf("generate applications: %w", err)
		}

		keys = keys[:0]
		for _, req := range reqs {
			if _, err := e.writer.Apply(ctx, req); err != nil {
				return err
			}
			for _, item := range req.Items {
				keys = append(keys, ledger.ReprocessKey{
					StoreID:   item.StoreID,
					ProductID: item.ProductID,
					From:      req.Period,
				})
			}
		}

		return updateDoc(ctx)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "document completed",
		"document_id", doc.GetID(),
		"document_type", doc.GetDocumentType(),
	)

	e.reprocessKeys(ctx, doc, keys)
	return nil
}

// Cancel reverts the document's movements and flips it to cancelled,
// atomically. The revert guard runs first; a revert that would produce
// negative stock or negative valuation is rejected whole.
func (e *Engine) Cancel(ctx context.Context, doc Postable, updateDoc func(ctx context.Context) error) error {
	causationID := id.New()
	var keys []ledger.ReprocessKey

	err := e.txm.RunSerializable(ctx, func(ctx context.Context) error {
		if err := doc.MarkCancelled(); err != nil {
			return err
		}

		byStore, err := e.guard.RevertItemsForBatch(ctx, doc.GetID())
		if err != nil {
			return err
		}
		for storeID, items := range byStore {
			if err := e.guard.ValidateRevert(ctx, storeID, items); err != nil {
				return err
			}
		}

		keys, err = e.writer.Revert(ctx, doc.GetID(), causationID)
		if err != nil {
			return err
		}

		return updateDoc(ctx)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "document cancelled",
		"document_id", doc.GetID(),
		"document_type", doc.GetDocumentType(),
		"causation_id", causationID,
	)

	e.reprocessKeys(ctx, doc, keys)
	return nil
}

// reprocessKeys heals affected keys after the lifecycle transaction has
// committed. Failures here leave the aggregates eventually consistent,
// not the document transition; they are surfaced in the log and can be
// retried through the reprocess endpoint.
func (e *Engine) reprocessKeys(ctx context.Context, doc Postable, keys []ledger.ReprocessKey) {
	for _, key := range dedupKeys(keys) {
		if err := e.processor.ReprocessIfNeeded(ctx, key, doc.GetID()); err != nil {
			logger.Warn(ctx, "reprocessing after lifecycle change failed",
				"document_id", doc.GetID(),
				"store_id", key.StoreID,
				"product_id", key.ProductID,
				"from", key.From,
				"error", err,
			)
		}
	}
}

// dedupKeys collapses duplicate (store, product) keys, keeping the
// earliest from-date for each.
func dedupKeys(keys []ledger.ReprocessKey) []ledger.ReprocessKey {
	seen := make(map[[2]id.ID]int, len(keys))
	out := make([]ledger.ReprocessKey, 0, len(keys))
	for _, key := range keys {
		k := [2]id.ID{key.StoreID, key.ProductID}
		if i, ok := seen[k]; ok {
			if key.From.Before(out[i].From) {
				out[i].From = key.From
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, key)
	}
	return out
}
