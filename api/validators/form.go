package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/hirelanka/marketplace-backend/pkg/errors"
	"github.com/hirelanka/marketplace-backend/pkg/payhere"
)

const maxFormBytes = 16 << 10

// DecodeNotificationForm reads the gateway's form-encoded server callback.
// Signature checking is left to the payments service.
func DecodeNotificationForm(w http.ResponseWriter, r *http.Request) (payhere.Notification, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return payhere.Notification{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body")
	}
	form := r.PostForm
	n := payhere.Notification{
		MerchantID:     form.Get("merchant_id"),
		OrderID:        form.Get("order_id"),
		PaymentID:      form.Get("payment_id"),
		Amount:         form.Get("payhere_amount"),
		Currency:       form.Get("payhere_currency"),
		StatusCode:     payhere.StatusCode(strings.TrimSpace(form.Get("status_code"))),
		MD5Sig:         form.Get("md5sig"),
		Method:         form.Get("method"),
		CardHolderName: form.Get("card_holder_name"),
		CardNo:         form.Get("card_no"),
		CardExpiry:     form.Get("card_expiry"),
	}

	missing := []string{}
	for field, value := range map[string]string{
		"merchant_id": n.MerchantID,
		"order_id":    n.OrderID,
		"status_code": string(n.StatusCode),
		"md5sig":      n.MD5Sig,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return n, pkgerrors.New(pkgerrors.CodeValidation, "missing notification fields").
			WithDetails(map[string]any{"missing": missing})
	}
	return n, nil
}
