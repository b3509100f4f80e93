package controllers

import (
	"context"
	"net/http"

	"github.com/hirelanka/marketplace-backend/api/responses"
	"github.com/hirelanka/marketplace-backend/api/validators"
	"github.com/hirelanka/marketplace-backend/internal/payments"
	pkgerrors "github.com/hirelanka/marketplace-backend/pkg/errors"
	"github.com/hirelanka/marketplace-backend/pkg/logger"
	"github.com/hirelanka/marketplace-backend/pkg/payhere"
)

type notificationHandler interface {
	HandleNotification(ctx context.Context, n payhere.Notification) (*payments.WebhookResult, error)
}

type notificationVerifier interface {
	Verify(n payhere.Notification) bool
}

type deliveryGuard interface {
	Seen(ctx context.Context, n payhere.Notification) (bool, error)
	Mark(ctx context.Context, n payhere.Notification) error
}

type webhookAck struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}

// PaymentWebhook receives the gateway's server-to-server notification.
// Only deliveries with a valid signature consult the replay guard, and a
// delivery is marked only after the service applied it. Replays are
// acknowledged with 200 so the gateway stops retrying.
func PaymentWebhook(svc notificationHandler, verifier notificationVerifier, guard deliveryGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		n, err := validators.DecodeNotificationForm(w, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		guarded := guard != nil && verifier != nil && verifier.Verify(n)
		if guarded {
			seen, err := guard.Seen(ctx, n)
			if err != nil {
				// degrade to the service's own conditional update
				logError(ctx, logg, "payment webhook guard unavailable", err)
			} else if seen {
				responses.WriteSuccess(w, webhookAck{Received: true, Outcome: payments.WebhookDuplicate})
				return
			}
		}

		result, err := svc.HandleNotification(ctx, n)
		if err != nil && !pkgerrors.Is(err, pkgerrors.CodeAlreadyProcessed) {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if guarded {
			// the outcome is committed; a dropped connection must not skip the mark
			if err := guard.Mark(context.WithoutCancel(ctx), n); err != nil {
				logError(ctx, logg, "failed to mark payment webhook delivery", err)
			}
		}

		outcome := payments.WebhookDuplicate
		if err == nil {
			outcome = result.Outcome
		}
		responses.WriteSuccess(w, webhookAck{Received: true, Outcome: outcome})
	}
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg != nil {
		logg.Error(ctx, msg, err)
	}
}
