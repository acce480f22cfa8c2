package order

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tokokirim-be/internal/cart"
	"tokokirim-be/internal/logger"
	"tokokirim-be/internal/payment"
	"tokokirim-be/internal/shipment"
	"tokokirim-be/internal/utils"
)

// TrackingInfo is the public tracking surface: lifecycle state plus the
// route and its derived progress.
type TrackingInfo struct {
	Reference     string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Steps         []*shipment.Step
	Metrics       shipment.Metrics
}

// Service owns the order lifecycle. Every mutation runs through the
// repository's locked transaction so concurrent admin actions serialize.
type Service interface {
	CreateFromCart(ctx context.Context, input CheckoutInput) (*Order, error)
	SubmitPaymentProof(ctx context.Context, orderID uint, proofRef string) (*Order, error)
	VerifyPayment(ctx context.Context, orderID uint) (*Order, error)
	UpdateStatus(ctx context.Context, orderID uint, newStatus OrderStatus) (*Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID uint, newStatus PaymentStatus) (*Order, error)
	Cancel(ctx context.Context, orderID uint) (*Order, error)

	GetOrders(ctx context.Context, filter *OrderFilterInput, sort *OrderSortInput, limit, page *int32) ([]*Order, error)
	GetOrderDetail(ctx context.Context, userID, orderID uint, isAdmin bool) (*Order, error)
	TrackByReference(ctx context.Context, reference string) (*TrackingInfo, error)
}

type service struct {
	repo        Repository
	cartSvc     cart.Service
	paymentRepo payment.Repository
	shipmentSvc shipment.Service
}

func NewService(
	repo Repository,
	cartSvc cart.Service,
	paymentRepo payment.Repository,
	shipmentSvc shipment.Service,
) Service {
	return &service{
		repo:        repo,
		cartSvc:     cartSvc,
		paymentRepo: paymentRepo,
		shipmentSvc: shipmentSvc,
	}
}

// CreateFromCart turns the owner's cart into a new order waiting for
// payment, then clears the cart.
func (s *service) CreateFromCart(ctx context.Context, input CheckoutInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateFromCart"),
		zap.String("owner_id", input.OwnerID),
	)

	method, err := s.paymentRepo.GetByID(ctx, input.PaymentMethodID)
	if err != nil {
		return nil, err
	}
	if !method.Active {
		return nil, payment.ErrMethodInactive
	}

	lines, err := s.cartSvc.Get(ctx, input.OwnerID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	items := make([]OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		subtotal := line.Price.Mul(line.Quantity)
		total = total.Add(subtotal)

		items = append(items, OrderItem{
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			Price:        line.Price,
			ProductName:  line.ProductName,
			Unit:         line.Unit,
			ProductImage: line.ProductImage,
			Subtotal:     subtotal,
		})
	}

	order := &Order{
		Reference:       utils.GenerateOrderNumber(),
		UserID:          input.UserID,
		PaymentMethodID: input.PaymentMethodID,
		TotalAmount:     total,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
		Notes:           input.Notes,
		Status:          StatusWaitingPayment,
		PaymentStatus:   PaymentPending,
		Items:           items,
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		log.Error("failed to create order", zap.Error(err))
		return nil, err
	}

	// The cart is best-effort; a failed clear just leaves stale lines
	// that expire on their own.
	if err := s.cartSvc.Clear(ctx, input.OwnerID); err != nil {
		log.Warn("failed to clear cart after checkout", zap.Error(err))
	}

	log.Info("order created from cart",
		zap.String("reference", order.Reference),
		zap.String("total", order.TotalAmount.String()),
	)

	return order, nil
}

// SubmitPaymentProof records the uploaded proof and moves the payment to
// verification. Repeated calls before verification overwrite the proof.
func (s *service) SubmitPaymentProof(ctx context.Context, orderID uint, proofRef string) (*Order, error) {
	return s.repo.UpdateOrderTx(ctx, orderID, func(o *Order) error {
		if o.PaymentStatus == PaymentPaid {
			return fieldErr("payment_status", "order is already paid", ErrAlreadyPaid)
		}
		if o.Status == StatusCancelled {
			return fieldErr("status", "cannot submit payment for a cancelled order", ErrOrderCancelled)
		}

		o.PaymentProof = &proofRef
		o.PaymentStatus = PaymentWaitingVerification
		return nil
	})
}

// VerifyPayment marks the payment as settled. Verifying while the order
// still waits for payment also advances logistics to PROCESSING; the
// payment machine deliberately nudges the logistics machine here.
func (s *service) VerifyPayment(ctx context.Context, orderID uint) (*Order, error) {
	return s.repo.UpdateOrderTx(ctx, orderID, func(o *Order) error {
		if o.PaymentStatus == PaymentPaid {
			return fieldErr("payment_status", "payment is already verified", ErrAlreadyVerified)
		}

		now := time.Now()
		o.PaymentStatus = PaymentPaid
		o.PaymentVerifiedAt = &now
		if o.Status == StatusWaitingPayment {
			o.Status = StatusProcessing
		}
		return nil
	})
}

var validStatuses = map[OrderStatus]bool{
	StatusWaitingPayment: true,
	StatusProcessing:     true,
	StatusShipping:       true,
	StatusDelivered:      true,
	StatusCancelled:      true,
}

// UpdateStatus sets the logistics status. Shipping or delivering an
// unverified order is refused; any other target is allowed, including
// moving away from CANCELLED or DELIVERED — that permissiveness is the
// admin override path.
func (s *service) UpdateStatus(ctx context.Context, orderID uint, newStatus OrderStatus) (*Order, error) {
	if !validStatuses[newStatus] {
		return nil, fmt.Errorf("invalid status: %s", newStatus)
	}

	return s.repo.UpdateOrderTx(ctx, orderID, func(o *Order) error {
		if (newStatus == StatusShipping || newStatus == StatusDelivered) &&
			o.PaymentStatus != PaymentPaid {
			return fieldErr("payment_status", "payment must be verified before shipping", ErrPaymentRequired)
		}

		o.Status = newStatus
		return nil
	})
}

var validPaymentStatuses = map[PaymentStatus]bool{
	PaymentPending:             true,
	PaymentWaitingVerification: true,
	PaymentPaid:                true,
	PaymentFailed:              true,
	PaymentRefunded:            true,
}

// UpdatePaymentStatus sets the payment status directly. Setting PAID
// stamps the verification time and applies the same waiting→processing
// nudge as VerifyPayment; re-marking PAID is idempotent.
func (s *service) UpdatePaymentStatus(ctx context.Context, orderID uint, newStatus PaymentStatus) (*Order, error) {
	if !validPaymentStatuses[newStatus] {
		return nil, fmt.Errorf("invalid payment status: %s", newStatus)
	}

	return s.repo.UpdateOrderTx(ctx, orderID, func(o *Order) error {
		o.PaymentStatus = newStatus

		if newStatus == PaymentPaid {
			now := time.Now()
			o.PaymentVerifiedAt = &now
			if o.Status == StatusWaitingPayment {
				o.Status = StatusProcessing
			}
		}
		return nil
	})
}

// Cancel terminates the order. A paid order is refunded, anything else is
// failed. Delivered and already-cancelled orders cannot be cancelled.
func (s *service) Cancel(ctx context.Context, orderID uint) (*Order, error) {
	return s.repo.UpdateOrderTx(ctx, orderID, func(o *Order) error {
		if o.Status == StatusDelivered {
			return fieldErr("status", "cannot cancel a delivered order", ErrAlreadyDelivered)
		}
		if o.Status == StatusCancelled {
			return fieldErr("status", "order is already cancelled", ErrOrderCancelled)
		}

		o.Status = StatusCancelled
		if o.PaymentStatus == PaymentPaid {
			o.PaymentStatus = PaymentRefunded
		} else {
			o.PaymentStatus = PaymentFailed
		}
		return nil
	})
}

func (s *service) GetOrders(
	ctx context.Context,
	filter *OrderFilterInput,
	sort *OrderSortInput,
	limit, page *int32,
) ([]*Order, error) {

	finalLimit := int32(20)
	finalPage := int32(1)

	if limit != nil && *limit > 0 {
		finalLimit = *limit
	}
	if page != nil && *page > 0 {
		finalPage = *page
	}
	if finalLimit > 100 {
		finalLimit = 100
	}

	offset := (finalPage - 1) * finalLimit

	return s.repo.FetchOrders(ctx, filter, sort, finalLimit, offset)
}

func (s *service) GetOrderDetail(ctx context.Context, userID, orderID uint, isAdmin bool) (*Order, error) {
	order, err := s.repo.GetOrderDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && order.UserID != userID {
		return nil, ErrUnauthorized
	}

	return order, nil
}

// TrackByReference reads both engines' state for the public tracking page.
func (s *service) TrackByReference(ctx context.Context, reference string) (*TrackingInfo, error) {
	order, err := s.repo.GetOrderByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	steps, err := s.shipmentSvc.List(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	metrics, err := s.shipmentSvc.Metrics(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	return &TrackingInfo{
		Reference:     order.Reference,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Steps:         steps,
		Metrics:       metrics,
	}, nil
}
