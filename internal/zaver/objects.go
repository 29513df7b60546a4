// Package zaver is a client for the Zaver checkout and refund APIs.
package zaver

import "time"

// PaymentStatus is the lifecycle state of a payment as reported by Zaver.
type PaymentStatus string

const (
	PaymentStatusCreated             PaymentStatus = "CREATED"
	PaymentStatusPendingConfirmation PaymentStatus = "PENDING_CONFIRMATION"
	PaymentStatusSettled             PaymentStatus = "SETTLED"
	PaymentStatusCancelled           PaymentStatus = "CANCELLED"
)

// RefundStatus is the lifecycle state of a refund as reported by Zaver.
type RefundStatus string

const (
	RefundStatusPendingMerchantApproval RefundStatus = "PENDING_MERCHANT_APPROVAL"
	RefundStatusPendingExecution        RefundStatus = "PENDING_EXECUTION"
	RefundStatusExecuted                RefundStatus = "EXECUTED"
	RefundStatusCancelled               RefundStatus = "CANCELLED"
)

// ItemType classifies a line item on a payment.
type ItemType string

const (
	ItemTypePhysical ItemType = "PHYSICAL"
	ItemTypeDigital  ItemType = "DIGITAL"
	ItemTypeShipping ItemType = "SHIPPING"
	ItemTypeFee      ItemType = "FEE"
	ItemTypeDiscount ItemType = "DISCOUNT"
)

// Payment operations that may be listed in a payment's allowedPaymentOperations.
const (
	OperationCapture = "CAPTURE"
	OperationCancel  = "CANCEL"
	OperationRefund  = "REFUND"
)

// LineItem is one order line on a payment creation or capture request.
// Discount lines carry negative totals and negative tax amounts.
type LineItem struct {
	ID                string            `json:"id,omitempty"`
	Name              string            `json:"name"`
	Quantity          int64             `json:"quantity"`
	UnitPrice         float64           `json:"unitPrice"`
	TotalAmount       float64           `json:"totalAmount"`
	TaxRatePercent    float64           `json:"taxRatePercent"`
	TaxAmount         float64           `json:"taxAmount"`
	ItemType          ItemType          `json:"itemType"`
	MerchantReference string            `json:"merchantReference,omitempty"`
	MerchantMetadata  map[string]string `json:"merchantMetadata,omitempty"`
}

// Address is a postal address attached to payer data.
type Address struct {
	AddressLine1 string `json:"addressLine1,omitempty"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city,omitempty"`
	Region       string `json:"region,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
	Country      string `json:"country,omitempty"`
}

// PayerData identifies the paying customer.
type PayerData struct {
	GivenName       string   `json:"givenName,omitempty"`
	FamilyName      string   `json:"familyName,omitempty"`
	Email           string   `json:"email,omitempty"`
	PhoneNumber     string   `json:"phoneNumber,omitempty"`
	BillingAddress  *Address `json:"billingAddress,omitempty"`
	ShippingAddress *Address `json:"shippingAddress,omitempty"`
}

// MerchantUrls are the redirect and callback URLs for a payment.
type MerchantUrls struct {
	SuccessURL  string `json:"successUrl,omitempty"`
	CancelURL   string `json:"cancelUrl,omitempty"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

// PaymentCreationRequest creates a new payment session.
type PaymentCreationRequest struct {
	Amount                   float64           `json:"amount"`
	Currency                 string            `json:"currency"`
	Market                   string            `json:"market,omitempty"`
	Title                    string            `json:"title"`
	Description              string            `json:"description,omitempty"`
	MerchantPaymentReference string            `json:"merchantPaymentReference"`
	LineItems                []LineItem        `json:"lineItems,omitempty"`
	PayerData                *PayerData        `json:"payerData,omitempty"`
	MerchantUrls             *MerchantUrls     `json:"merchantUrls,omitempty"`
	MerchantMetadata         map[string]string `json:"merchantMetadata,omitempty"`
}

// PaymentStatusResponse is the provider's view of a payment. The same shape
// is delivered in payment callbacks.
type PaymentStatusResponse struct {
	PaymentID                string            `json:"paymentId"`
	PaymentStatus            PaymentStatus     `json:"paymentStatus"`
	Amount                   float64           `json:"amount"`
	Currency                 string            `json:"currency"`
	Title                    string            `json:"title,omitempty"`
	Token                    string            `json:"token,omitempty"`
	ValidUntil               *time.Time        `json:"validUntil,omitempty"`
	LineItems                []LineItem        `json:"lineItems,omitempty"`
	AllowedPaymentOperations []string          `json:"allowedPaymentOperations,omitempty"`
	MerchantMetadata         map[string]string `json:"merchantMetadata,omitempty"`
}

// CanCapture reports whether the payment currently allows a capture.
func (p *PaymentStatusResponse) CanCapture() bool {
	return p.allows(OperationCapture)
}

// CanCancel reports whether the payment currently allows a cancellation.
func (p *PaymentStatusResponse) CanCancel() bool {
	return p.allows(OperationCancel)
}

func (p *PaymentStatusResponse) allows(op string) bool {
	for _, o := range p.AllowedPaymentOperations {
		if o == op {
			return true
		}
	}
	return false
}

// PaymentCaptureRequest captures a settled-authorization payment, in full
// or in part.
type PaymentCaptureRequest struct {
	CaptureIdempotencyKey string     `json:"captureIdempotencyKey"`
	Amount                float64    `json:"amount"`
	Currency              string     `json:"currency"`
	LineItems             []LineItem `json:"lineItems,omitempty"`
}

// PaymentCaptureResponse is the provider's acknowledgement of a capture.
type PaymentCaptureResponse struct {
	CaptureID string  `json:"captureId"`
	PaymentID string  `json:"paymentId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Status    string  `json:"status"`
}

// PaymentUpdateRequest amends an existing payment session, typically its
// callback URL or metadata.
type PaymentUpdateRequest struct {
	MerchantUrls     *MerchantUrls     `json:"merchantUrls,omitempty"`
	MerchantMetadata map[string]string `json:"merchantMetadata,omitempty"`
}

// RefundLineItem itemizes part of a refund against a payment line item.
type RefundLineItem struct {
	LineItemID     string  `json:"lineItemId"`
	Quantity       int64   `json:"quantity"`
	RefundAmount   float64 `json:"refundAmount"`
	TaxRatePercent float64 `json:"taxRatePercent,omitempty"`
	TaxAmount      float64 `json:"taxAmount,omitempty"`
}

// MerchantRepresentative identifies the merchant-side user acting on a refund.
type MerchantRepresentative struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// RefundCreationRequest creates a refund against a payment.
// Either LineItems or RefundTaxAmount describes the tax side of the refund.
type RefundCreationRequest struct {
	PaymentID                  string                  `json:"paymentId"`
	InvoiceReference           string                  `json:"invoiceReference,omitempty"`
	RefundAmount               float64                 `json:"refundAmount"`
	RefundTaxAmount            *float64                `json:"refundTaxAmount,omitempty"`
	Description                string                  `json:"description,omitempty"`
	LineItems                  []RefundLineItem        `json:"lineItems,omitempty"`
	InitializingRepresentative *MerchantRepresentative `json:"initializingRepresentative,omitempty"`
	CallbackURL                string                  `json:"callbackUrl,omitempty"`
	MerchantMetadata           map[string]string       `json:"merchantMetadata,omitempty"`
}

// RefundUpdateRequest carries the acting representative on refund approval
// or cancellation.
type RefundUpdateRequest struct {
	ActingRepresentative *MerchantRepresentative `json:"actingRepresentative,omitempty"`
}

// RefundResponse is the provider's view of a refund. The same shape is
// delivered in refund callbacks.
type RefundResponse struct {
	RefundID                   string                  `json:"refundId"`
	PaymentID                  string                  `json:"paymentId"`
	Status                     RefundStatus            `json:"status"`
	RefundAmount               float64                 `json:"refundAmount"`
	Currency                   string                  `json:"currency"`
	Description                string                  `json:"description,omitempty"`
	InitializingRepresentative *MerchantRepresentative `json:"initializingRepresentative,omitempty"`
	ApprovingRepresentative    *MerchantRepresentative `json:"approvingRepresentative,omitempty"`
	MerchantMetadata           map[string]string       `json:"merchantMetadata,omitempty"`
}

// PaymentMethod is one payment method available in a market.
type PaymentMethod struct {
	PaymentMethod string            `json:"paymentMethod"`
	DisplayName   string            `json:"displayName,omitempty"`
	Markets       []string          `json:"markets,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// PaymentMethodsResponse lists the payment methods for a market.
type PaymentMethodsResponse struct {
	PaymentMethods []PaymentMethod `json:"paymentMethods"`
}
