// Package worker mirrors the mutation feed into the remote
// collection. It runs out of process so the server never blocks on
// cloud latency, in deployments where the worker owns the cloud
// credentials.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"spendtrack/internal/amqp"
	"spendtrack/internal/remote"
)

type MirrorWorker struct {
	collection remote.Collection
}

func NewMirrorWorker(collection remote.Collection) *MirrorWorker {
	return &MirrorWorker{collection: collection}
}

// HandleMutation applies one feed message to the remote collection.
// Returning an error requeues the message.
func (w *MirrorWorker) HandleMutation(ctx context.Context, msg *amqp.MutationMessage) error {
	switch msg.Op {
	case amqp.OpCreate:
		id, err := w.collection.Add(ctx, msg.UID, remote.FromTransaction(msg.Transaction))
		if err != nil {
			return fmt.Errorf("mirror create: %w", err)
		}
		slog.InfoContext(ctx, "mirrored transaction to remote",
			"uid", msg.UID,
			"local_id", msg.Transaction.ID,
			"remote_id", id)
		return nil
	case amqp.OpDelete:
		if err := w.collection.Delete(ctx, msg.UID, msg.Transaction.ID); err != nil {
			return fmt.Errorf("mirror delete: %w", err)
		}
		slog.InfoContext(ctx, "mirrored deletion to remote",
			"uid", msg.UID,
			"id", msg.Transaction.ID)
		return nil
	default:
		// Don't requeue messages no handler will ever understand.
		slog.WarnContext(ctx, "dropping mutation with unknown op", "op", msg.Op)
		return nil
	}
}
