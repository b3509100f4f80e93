package validators

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	pkgerrors "github.com/hirelanka/marketplace-backend/pkg/errors"
	"github.com/hirelanka/marketplace-backend/pkg/payhere"
)

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestDecodeNotificationForm(t *testing.T) {
	values := url.Values{
		"merchant_id":      {"1211149"},
		"order_id":         {"ORD-1-1700000000000"},
		"payment_id":       {"320025071278"},
		"payhere_amount":   {"2000.00"},
		"payhere_currency": {"LKR"},
		"status_code":      {"2"},
		"md5sig":           {"ABC"},
		"card_no":          {"************1292"},
	}
	n, err := DecodeNotificationForm(httptest.NewRecorder(), formRequest(values))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n.StatusCode != payhere.StatusSuccess || n.Amount != "2000.00" || n.CardNo != "************1292" {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestDecodeNotificationFormMissingFields(t *testing.T) {
	_, err := DecodeNotificationForm(httptest.NewRecorder(), formRequest(url.Values{"order_id": {"ORD-1-1"}}))
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
