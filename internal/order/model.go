package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the logistics state of an order.
type OrderStatus string

const (
	StatusWaitingPayment OrderStatus = "WAITING_PAYMENT"
	StatusProcessing     OrderStatus = "PROCESSING"
	StatusShipping       OrderStatus = "SHIPPING"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCancelled      OrderStatus = "CANCELLED"
)

// PaymentStatus is the settlement state of an order.
type PaymentStatus string

const (
	PaymentPending             PaymentStatus = "PENDING"
	PaymentWaitingVerification PaymentStatus = "WAITING_VERIFICATION"
	PaymentPaid                PaymentStatus = "PAID"
	PaymentFailed              PaymentStatus = "FAILED"
	PaymentRefunded            PaymentStatus = "REFUNDED"
)

type Address struct {
	Name      string
	Street    string
	City      string
	Country   string
	Zip       string
	Phone     *string
	Email     *string
	Company   *string
	Apartment *string
}

type Order struct {
	ID              uint
	Reference       string
	UserID          uint
	PaymentMethodID uint
	TotalAmount     decimal.Decimal
	ShippingAddress Address
	BillingAddress  *Address
	Notes           *string

	PaymentProof      *string
	Status            OrderStatus
	PaymentStatus     PaymentStatus
	PaymentVerifiedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []OrderItem
}

// OrderItem snapshots the product at purchase time; read-only after create.
type OrderItem struct {
	ID           uint
	OrderID      uint
	ProductID    uint
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	ProductName  string
	Unit         string
	ProductImage *string
	Subtotal     decimal.Decimal
}

type OrderFilterInput struct {
	Search   *string
	Status   *OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

type SortDirection string

const (
	SortDirectionAsc  SortDirection = "ASC"
	SortDirectionDesc SortDirection = "DESC"
)

type OrderSortField string

const (
	OrderSortFieldTotal     OrderSortField = "TOTAL"
	OrderSortFieldCreatedAt OrderSortField = "CREATED_AT"
)

type OrderSortInput struct {
	Field     OrderSortField
	Direction SortDirection
}

// CheckoutItem is one cart line at checkout submission time.
type CheckoutItem struct {
	ProductID    uint
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	ProductName  string
	Unit         string
	ProductImage *string
}

// CheckoutInput is everything a checkout submission provides besides the
// cart contents.
type CheckoutInput struct {
	OwnerID         string
	UserID          uint
	PaymentMethodID uint
	ShippingAddress Address
	BillingAddress  *Address
	Notes           *string
}
