package service

import (
	"context"

	"riddlen/riddle-service/internal/errs"
	"riddlen/riddle-service/internal/pubsub"
)

// rejected publishes the op_rejected audit event for a failed operation and
// hands the error back unchanged, so every rejection is observable on the
// stream as well as in the error return. Infrastructure failures pass
// through without an event; only domain rejections are auditable outcomes.
func rejected(ctx context.Context, pub pubsub.AuditPublisher, account, sessionID string, err error) error {
	if errs.IsDomain(err) {
		pub.Publish(ctx, pubsub.Event{
			Kind:      pubsub.KindOpRejected,
			Account:   account,
			SessionID: sessionID,
			Detail:    err.Error(),
		})
	}
	return err
}
