package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/hirelanka/marketplace-backend/internal/payments"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hirelanka/marketplace-backend/pkg/errors"
	"github.com/hirelanka/marketplace-backend/pkg/logger"
	"github.com/hirelanka/marketplace-backend/pkg/payhere"
)

type stubNotificationHandler struct {
	calls int
	err   error
}

func (s *stubNotificationHandler) HandleNotification(ctx context.Context, n payhere.Notification) (*payments.WebhookResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply notification")
	}
	return &payments.WebhookResult{PaymentID: uuid.New(), Status: enums.PaymentStatusCompleted, Outcome: payments.WebhookSucceeded}, nil
}

// stubGuard fails on a cancelled context the way the redis client does.
type stubGuard struct {
	seen map[string]bool
}

func (g *stubGuard) Seen(ctx context.Context, n payhere.Notification) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return g.seen[n.OrderID+":"+string(n.StatusCode)], nil
}

func (g *stubGuard) Mark(ctx context.Context, n payhere.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.seen[n.OrderID+":"+string(n.StatusCode)] = true
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func signedForm(signer payhere.Signer, orderID string) url.Values {
	n := payhere.Notification{
		MerchantID: signer.MerchantID(),
		OrderID:    orderID,
		Amount:     "2000.00",
		Currency:   "LKR",
		StatusCode: payhere.StatusSuccess,
	}
	return url.Values{
		"merchant_id":      {n.MerchantID},
		"order_id":         {n.OrderID},
		"payhere_amount":   {n.Amount},
		"payhere_currency": {n.Currency},
		"status_code":      {string(n.StatusCode)},
		"md5sig":           {signer.ExpectedSignature(n)},
	}
}

func postForm(handler http.HandlerFunc, values url.Values) *httptest.ResponseRecorder {
	return postFormContext(context.Background(), handler, values)
}

func postFormContext(ctx context.Context, handler http.HandlerFunc, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequestWithContext(ctx, http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	handler(resp, req)
	return resp
}

func decodeAck(t *testing.T, resp *httptest.ResponseRecorder) webhookAck {
	t.Helper()
	var envelope struct {
		Data webhookAck `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestPaymentWebhookAppliesThenAcksReplay(t *testing.T) {
	signer := payhere.NewSigner("1211149", "secret")
	svc := &stubNotificationHandler{}
	guard := &stubGuard{seen: map[string]bool{}}
	handler := PaymentWebhook(svc, signer, guard, testLogger())
	form := signedForm(signer, "ORD-abc-1700000000000")

	first := postForm(handler, form)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", first.Code, first.Body.String())
	}
	if ack := decodeAck(t, first); ack.Outcome != payments.WebhookSucceeded {
		t.Fatalf("unexpected outcome %q", ack.Outcome)
	}

	replay := postForm(handler, form)
	if replay.Code != http.StatusOK {
		t.Fatalf("expected replay ack 200 got %d", replay.Code)
	}
	if ack := decodeAck(t, replay); ack.Outcome != payments.WebhookDuplicate {
		t.Fatalf("unexpected replay outcome %q", ack.Outcome)
	}
	if svc.calls != 1 {
		t.Fatalf("expected service called once, got %d", svc.calls)
	}
}

func TestPaymentWebhookForgedRequestDoesNotClaimGuard(t *testing.T) {
	signer := payhere.NewSigner("1211149", "secret")
	svc := &stubNotificationHandler{err: pkgerrors.New(pkgerrors.CodeInvalidSignature, "invalid signature")}
	guard := &stubGuard{seen: map[string]bool{}}
	handler := PaymentWebhook(svc, signer, guard, testLogger())

	forged := signedForm(signer, "ORD-abc-1700000000000")
	forged.Set("md5sig", "00000000000000000000000000000000")
	resp := postForm(handler, forged)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if len(guard.seen) != 0 {
		t.Fatalf("forged delivery must not mark the guard: %v", guard.seen)
	}
}

func TestPaymentWebhookAlreadyProcessedIsAcked(t *testing.T) {
	signer := payhere.NewSigner("1211149", "secret")
	svc := &stubNotificationHandler{err: pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "already applied")}
	resp := postForm(PaymentWebhook(svc, signer, nil, testLogger()), signedForm(signer, "SVC-abc-1700000000000"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPaymentWebhookFailureLeavesDeliveryUnmarked(t *testing.T) {
	signer := payhere.NewSigner("1211149", "secret")
	svc := &stubNotificationHandler{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "apply")}
	guard := &stubGuard{seen: map[string]bool{}}
	handler := PaymentWebhook(svc, signer, guard, testLogger())
	form := signedForm(signer, "ORD-abc-1700000000000")

	resp := postForm(handler, form)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if len(guard.seen) != 0 {
		t.Fatalf("failed delivery must not be marked: %v", guard.seen)
	}

	svc.err = nil
	retry := postForm(handler, form)
	if ack := decodeAck(t, retry); retry.Code != http.StatusOK || ack.Outcome != payments.WebhookSucceeded {
		t.Fatalf("retry should be applied, got %d %q", retry.Code, ack.Outcome)
	}
	if svc.calls != 2 {
		t.Fatalf("expected retry to reach the service, calls=%d", svc.calls)
	}
}

func TestPaymentWebhookRetryAfterCancelledRequestIsApplied(t *testing.T) {
	signer := payhere.NewSigner("1211149", "secret")
	svc := &stubNotificationHandler{}
	guard := &stubGuard{seen: map[string]bool{}}
	handler := PaymentWebhook(svc, signer, guard, testLogger())
	form := signedForm(signer, "ORD-abc-1700000000000")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	first := postFormContext(ctx, handler, form)
	if first.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for the abandoned delivery got %d", first.Code)
	}

	retry := postForm(handler, form)
	if retry.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", retry.Code, retry.Body.String())
	}
	if ack := decodeAck(t, retry); ack.Outcome != payments.WebhookSucceeded {
		t.Fatalf("retry was swallowed as %q", ack.Outcome)
	}
	if svc.calls != 2 {
		t.Fatalf("expected both deliveries to reach the service, calls=%d", svc.calls)
	}
}

func TestPaymentWebhookMarksAfterAlreadyProcessed(t *testing.T) {
	signer := payhere.NewSigner("1211149", "secret")
	svc := &stubNotificationHandler{err: pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "already applied")}
	guard := &stubGuard{seen: map[string]bool{}}
	handler := PaymentWebhook(svc, signer, guard, testLogger())
	form := signedForm(signer, "SVC-abc-1700000000000")

	if resp := postForm(handler, form); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp := postForm(handler, form); decodeAck(t, resp).Outcome != payments.WebhookDuplicate {
		t.Fatalf("expected duplicate ack")
	}
	if svc.calls != 1 {
		t.Fatalf("guard should short-circuit the second delivery, calls=%d", svc.calls)
	}
}

func TestPaymentWebhookRejectsIncompleteForm(t *testing.T) {
	svc := &stubNotificationHandler{}
	resp := postForm(PaymentWebhook(svc, nil, nil, testLogger()), url.Values{"order_id": {"ORD-1-1"}})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be called")
	}
}
