package webhooks

import (
	"io"
	"net/http"
	"strings"

	"github.com/kachabazaar/kachabazaar-backend/api/responses"
	"github.com/kachabazaar/kachabazaar-backend/internal/webhooks"
	pkgerrors "github.com/kachabazaar/kachabazaar-backend/pkg/errors"
	"github.com/kachabazaar/kachabazaar-backend/pkg/logger"
)

const maxWebhookBodyBytes = 1 << 20

// Razorpay ingests gateway deliveries. The raw body is handed to the
// webhook service untouched because the signature covers the exact bytes.
func Razorpay(svc webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := strings.TrimSpace(r.Header.Get("X-Razorpay-Signature"))
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "webhook signature missing"))
			return
		}
		eventID := strings.TrimSpace(r.Header.Get("X-Razorpay-Event-Id"))

		outcome, err := svc.Process(ctx, body, signature, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(outcome)})
	}
}
