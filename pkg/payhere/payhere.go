// Package payhere implements the signing contract of the PayHere hosted checkout.
// It performs no I/O; callers persist and transport the values it produces.
package payhere

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	SandboxCheckoutURL = "https://sandbox.payhere.lk/pay/checkout"
	LiveCheckoutURL    = "https://www.payhere.lk/pay/checkout"
)

// StatusCode is the gateway's payment outcome carried by a notification.
type StatusCode string

const (
	StatusSuccess    StatusCode = "2"
	StatusPending    StatusCode = "0"
	StatusCancelled  StatusCode = "-1"
	StatusFailed     StatusCode = "-2"
	StatusChargeback StatusCode = "-3"
)

// Outcome groups status codes by their effect on a pending payment.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// Outcome maps the code to the terminal effect it has, if any.
func (c StatusCode) Outcome() Outcome {
	switch c {
	case StatusSuccess:
		return OutcomeSuccess
	case StatusCancelled, StatusFailed:
		return OutcomeFailure
	default:
		return OutcomeNone
	}
}

// Signer computes and checks hashes for a single merchant account.
type Signer struct {
	merchantID string
	secretHash string
}

// NewSigner precomputes the uppercase MD5 of the merchant secret.
func NewSigner(merchantID, merchantSecret string) Signer {
	return Signer{
		merchantID: merchantID,
		secretHash: upperMD5(merchantSecret),
	}
}

func (s Signer) MerchantID() string {
	return s.merchantID
}

// CheckoutHash signs an outgoing checkout request.
func (s Signer) CheckoutHash(externalOrderID string, amount decimal.Decimal, currency string) string {
	return upperMD5(s.merchantID + externalOrderID + FormatAmount(amount) + currency + s.secretHash)
}

// Notification is the form payload the gateway posts to the notify URL.
type Notification struct {
	MerchantID     string
	OrderID        string
	PaymentID      string
	Amount         string
	Currency       string
	StatusCode     StatusCode
	MD5Sig         string
	Method         string
	CardHolderName string
	CardNo         string
	CardExpiry     string
}

// ExpectedSignature recomputes md5sig from the notification's own fields.
func (s Signer) ExpectedSignature(n Notification) string {
	return upperMD5(n.MerchantID + n.OrderID + n.Amount + n.Currency + string(n.StatusCode) + s.secretHash)
}

// Verify reports whether the notification was signed with this merchant's secret.
func (s Signer) Verify(n Notification) bool {
	if n.MD5Sig == "" || n.MerchantID != s.merchantID {
		return false
	}
	expected := s.ExpectedSignature(n)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.MD5Sig)) == 1
}

// FormatAmount renders an amount with two decimals and no thousands separators.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// CheckoutURL returns the hosted checkout endpoint for the mode.
func CheckoutURL(sandbox bool) string {
	if sandbox {
		return SandboxCheckoutURL
	}
	return LiveCheckoutURL
}

func upperMD5(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
