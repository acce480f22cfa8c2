package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tokokirim-be/internal/cart"
	"tokokirim-be/internal/payment"
	"tokokirim-be/internal/shipment"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

// UpdateOrderTx runs the mutate closure against the seeded order, the way
// the real repository runs it against the locked row.
func (m *MockRepository) UpdateOrderTx(ctx context.Context, orderID uint, mutate func(*Order) error) (*Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	o := args.Get(0).(*Order)
	if err := mutate(o); err != nil {
		return nil, err
	}
	return o, nil
}

func (m *MockRepository) CreateOrder(ctx context.Context, order *Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockRepository) GetOrderDetail(ctx context.Context, orderID uint) (*Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) GetOrderByReference(ctx context.Context, reference string) (*Order, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) FetchOrders(ctx context.Context, filter *OrderFilterInput, sort *OrderSortInput, limit, offset int32) ([]*Order, error) {
	args := m.Called(ctx, filter, sort, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) Get(ctx context.Context, ownerID string) ([]cart.Line, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Line), args.Error(1)
}

func (m *MockCartService) UpdateOrAdd(ctx context.Context, ownerID string, line cart.Line) ([]cart.Line, error) {
	args := m.Called(ctx, ownerID, line)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Line), args.Error(1)
}

func (m *MockCartService) Remove(ctx context.Context, ownerID string, productID uint) ([]cart.Line, error) {
	args := m.Called(ctx, ownerID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Line), args.Error(1)
}

func (m *MockCartService) Clear(ctx context.Context, ownerID string) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uint) (*payment.Method, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Method), args.Error(1)
}

func (m *MockPaymentRepository) ListActive(ctx context.Context) ([]*payment.Method, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Method), args.Error(1)
}

type MockShipmentService struct {
	mock.Mock
}

func (m *MockShipmentService) Create(ctx context.Context, orderID uint, spec shipment.StepSpec) (*shipment.Step, error) {
	args := m.Called(ctx, orderID, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipment.Step), args.Error(1)
}

func (m *MockShipmentService) Initialize(ctx context.Context, orderID uint, stops []shipment.Stop) ([]*shipment.Step, error) {
	args := m.Called(ctx, orderID, stops)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shipment.Step), args.Error(1)
}

func (m *MockShipmentService) Update(ctx context.Context, orderID, stepID uint, spec shipment.StepSpec) (*shipment.Step, error) {
	args := m.Called(ctx, orderID, stepID, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipment.Step), args.Error(1)
}

func (m *MockShipmentService) MarkAsReached(ctx context.Context, orderID, stepID uint, reachedAt *time.Time) (*shipment.Step, error) {
	args := m.Called(ctx, orderID, stepID, reachedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipment.Step), args.Error(1)
}

func (m *MockShipmentService) ToggleReached(ctx context.Context, orderID, stepID uint) (*shipment.Step, error) {
	args := m.Called(ctx, orderID, stepID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipment.Step), args.Error(1)
}

func (m *MockShipmentService) Delete(ctx context.Context, orderID, stepID uint) error {
	args := m.Called(ctx, orderID, stepID)
	return args.Error(0)
}

func (m *MockShipmentService) Reorder(ctx context.Context, orderID uint, positions map[uint]int) error {
	args := m.Called(ctx, orderID, positions)
	return args.Error(0)
}

func (m *MockShipmentService) Advance(ctx context.Context, orderID uint) (*shipment.Step, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipment.Step), args.Error(1)
}

func (m *MockShipmentService) List(ctx context.Context, orderID uint) ([]*shipment.Step, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shipment.Step), args.Error(1)
}

func (m *MockShipmentService) Metrics(ctx context.Context, orderID uint) (shipment.Metrics, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(shipment.Metrics), args.Error(1)
}

// --- Helpers ---

func newTestService(repo *MockRepository) Service {
	return NewService(repo, &MockCartService{}, &MockPaymentRepository{}, &MockShipmentService{})
}

func waitingOrder() *Order {
	return &Order{
		ID:            1,
		Reference:     "ORD-20260101-000000-000-0001",
		UserID:        7,
		Status:        StatusWaitingPayment,
		PaymentStatus: PaymentPending,
		TotalAmount:   decimal.NewFromInt(150000),
	}
}

// --- Tests ---

func TestSubmitPaymentProof(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(waitingOrder(), nil)

		svc := newTestService(repo)
		order, err := svc.SubmitPaymentProof(ctx, 1, "proofs/abc.png")

		require.NoError(t, err)
		require.NotNil(t, order.PaymentProof)
		assert.Equal(t, "proofs/abc.png", *order.PaymentProof)
		assert.Equal(t, PaymentWaitingVerification, order.PaymentStatus)
		assert.Equal(t, StatusWaitingPayment, order.Status)
	})

	t.Run("OverwritesProofBeforeVerification", func(t *testing.T) {
		o := waitingOrder()
		first := "proofs/first.png"
		o.PaymentProof = &first
		o.PaymentStatus = PaymentWaitingVerification

		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(o, nil)

		svc := newTestService(repo)
		order, err := svc.SubmitPaymentProof(ctx, 1, "proofs/second.png")

		require.NoError(t, err)
		assert.Equal(t, "proofs/second.png", *order.PaymentProof)
	})

	t.Run("AlreadyPaid", func(t *testing.T) {
		o := waitingOrder()
		o.PaymentStatus = PaymentPaid

		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(o, nil)

		svc := newTestService(repo)
		_, err := svc.SubmitPaymentProof(ctx, 1, "proofs/abc.png")

		assert.ErrorIs(t, err, ErrAlreadyPaid)

		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "payment_status", fe.Field)
	})

	t.Run("OrderCancelled", func(t *testing.T) {
		o := waitingOrder()
		o.Status = StatusCancelled

		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(o, nil)

		svc := newTestService(repo)
		_, err := svc.SubmitPaymentProof(ctx, 1, "proofs/abc.png")

		assert.ErrorIs(t, err, ErrOrderCancelled)
	})
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("AdvancesWaitingToProcessing", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(waitingOrder(), nil)

		svc := newTestService(repo)
		order, err := svc.VerifyPayment(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, PaymentPaid, order.PaymentStatus)
		assert.Equal(t, StatusProcessing, order.Status)
		require.NotNil(t, order.PaymentVerifiedAt)
		assert.WithinDuration(t, time.Now(), *order.PaymentVerifiedAt, time.Minute)
	})

	t.Run("LeavesOtherStatusAlone", func(t *testing.T) {
		o := waitingOrder()
		o.Status = StatusShipping
		o.PaymentStatus = PaymentWaitingVerification

		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(o, nil)

		svc := newTestService(repo)
		order, err := svc.VerifyPayment(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, PaymentPaid, order.PaymentStatus)
		assert.Equal(t, StatusShipping, order.Status)
	})

	t.Run("AlreadyVerified", func(t *testing.T) {
		o := waitingOrder()
		o.PaymentStatus = PaymentPaid

		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(o, nil)

		svc := newTestService(repo)
		_, err := svc.VerifyPayment(ctx, 1)

		assert.ErrorIs(t, err, ErrAlreadyVerified)
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("PaymentRequiredForShippingAndDelivered", func(t *testing.T) {
		for _, target := range []OrderStatus{StatusShipping, StatusDelivered} {
			for _, pay := range []PaymentStatus{PaymentPending, PaymentWaitingVerification, PaymentFailed, PaymentRefunded} {
				o := waitingOrder()
				o.PaymentStatus = pay

				repo := new(MockRepository)
				repo.On("UpdateOrderTx", ctx, uint(1)).Return(o, nil)

				svc := newTestService(repo)
				_, err := svc.UpdateStatus(ctx, 1, target)

				assert.ErrorIs(t, err, ErrPaymentRequired,
					"target=%s payment=%s", target, pay)
			}
		}
	})

	t.Run("ShippingAllowedWhenPaid", func(t *testing.T) {
		o := waitingOrder()
		o.Status = StatusProcessing
		o.PaymentStatus = PaymentPaid

		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(o, nil)

		svc := newTestService(repo)
		order, err := svc.UpdateStatus(ctx, 1, StatusShipping)

		require.NoError(t, err)
		assert.Equal(t, StatusShipping, order.Status)
	})

	t.Run("AdminOverrideOutOfCancelled", func(t *testing.T) {
		o := waitingOrder()
		o.Status = StatusCancelled

		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(o, nil)

		svc := newTestService(repo)
		order, err := svc.UpdateStatus(ctx, 1, StatusProcessing)

		require.NoError(t, err)
		assert.Equal(t, StatusProcessing, order.Status)
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		svc := newTestService(new(MockRepository))
		_, err := svc.UpdateStatus(ctx, 1, OrderStatus("TELEPORTED"))
		assert.Error(t, err)
	})
}

func TestUpdatePaymentStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("PaidAdvancesWaitingToProcessing", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(waitingOrder(), nil)

		svc := newTestService(repo)
		order, err := svc.UpdatePaymentStatus(ctx, 1, PaymentPaid)

		require.NoError(t, err)
		assert.Equal(t, PaymentPaid, order.PaymentStatus)
		assert.Equal(t, StatusProcessing, order.Status)
		assert.NotNil(t, order.PaymentVerifiedAt)
	})

	t.Run("RemarkingPaidIsIdempotent", func(t *testing.T) {
		o := waitingOrder()
		o.Status = StatusShipping
		o.PaymentStatus = PaymentPaid

		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(o, nil)

		svc := newTestService(repo)
		order, err := svc.UpdatePaymentStatus(ctx, 1, PaymentPaid)

		require.NoError(t, err)
		assert.Equal(t, PaymentPaid, order.PaymentStatus)
		assert.Equal(t, StatusShipping, order.Status)
	})

	t.Run("NonPaidLeavesStatusAndTimestamp", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(waitingOrder(), nil)

		svc := newTestService(repo)
		order, err := svc.UpdatePaymentStatus(ctx, 1, PaymentFailed)

		require.NoError(t, err)
		assert.Equal(t, PaymentFailed, order.PaymentStatus)
		assert.Equal(t, StatusWaitingPayment, order.Status)
		assert.Nil(t, order.PaymentVerifiedAt)
	})

	t.Run("InvalidPaymentStatus", func(t *testing.T) {
		svc := newTestService(new(MockRepository))
		_, err := svc.UpdatePaymentStatus(ctx, 1, PaymentStatus("GIFTED"))
		assert.Error(t, err)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("RefundsPaidOrder", func(t *testing.T) {
		o := waitingOrder()
		o.Status = StatusProcessing
		o.PaymentStatus = PaymentPaid

		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(o, nil)

		svc := newTestService(repo)
		order, err := svc.Cancel(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, order.Status)
		assert.Equal(t, PaymentRefunded, order.PaymentStatus)
	})

	t.Run("FailsUnpaidOrder", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(waitingOrder(), nil)

		svc := newTestService(repo)
		order, err := svc.Cancel(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, order.Status)
		assert.Equal(t, PaymentFailed, order.PaymentStatus)
	})

	t.Run("AlreadyDeliveredLeavesStateUnchanged", func(t *testing.T) {
		o := waitingOrder()
		o.Status = StatusDelivered
		o.PaymentStatus = PaymentPaid

		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(o, nil)

		svc := newTestService(repo)
		_, err := svc.Cancel(ctx, 1)

		assert.ErrorIs(t, err, ErrAlreadyDelivered)
		assert.Equal(t, StatusDelivered, o.Status)
		assert.Equal(t, PaymentPaid, o.PaymentStatus)
	})

	t.Run("AlreadyCancelled", func(t *testing.T) {
		o := waitingOrder()
		o.Status = StatusCancelled

		repo := new(MockRepository)
		repo.On("UpdateOrderTx", ctx, uint(1)).Return(o, nil)

		svc := newTestService(repo)
		_, err := svc.Cancel(ctx, 1)

		assert.ErrorIs(t, err, ErrOrderCancelled)
	})
}

// Full admin flow: proof upload, verification, shipping.
func TestLifecycleFlow(t *testing.T) {
	ctx := context.Background()
	o := waitingOrder()

	repo := new(MockRepository)
	repo.On("UpdateOrderTx", ctx, uint(1)).Return(o, nil)
	svc := newTestService(repo)

	_, err := svc.SubmitPaymentProof(ctx, 1, "proofs/abc.png")
	require.NoError(t, err)
	assert.Equal(t, PaymentWaitingVerification, o.PaymentStatus)

	_, err = svc.VerifyPayment(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, StatusProcessing, o.Status)
	assert.NotNil(t, o.PaymentVerifiedAt)

	_, err = svc.UpdateStatus(ctx, 1, StatusShipping)
	require.NoError(t, err)
	assert.Equal(t, StatusShipping, o.Status)
}

func TestCreateFromCart(t *testing.T) {
	ctx := context.Background()

	input := CheckoutInput{
		OwnerID:         "guest-abc",
		UserID:          7,
		PaymentMethodID: 2,
		ShippingAddress: Address{
			Name:    "Budi Santoso",
			Street:  "Jl. Merdeka 1",
			City:    "Jakarta",
			Country: "ID",
			Zip:     "10110",
		},
	}

	activeMethod := &payment.Method{ID: 2, Name: "BCA Transfer", Slug: payment.MethodBCATransfer, Active: true}

	lines := []cart.Line{
		{
			ProductID:   11,
			Quantity:    decimal.NewFromInt(2),
			Price:       decimal.NewFromInt(25000),
			Unit:        "pcs",
			ProductName: "Kopi Gayo 250g",
		},
		{
			ProductID:   12,
			Quantity:    decimal.RequireFromString("1.5"),
			Price:       decimal.NewFromInt(80000),
			Unit:        "kg",
			ProductName: "Beras Organik",
		},
	}

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		cartSvc := new(MockCartService)
		paymentRepo := new(MockPaymentRepository)

		paymentRepo.On("GetByID", ctx, uint(2)).Return(activeMethod, nil)
		cartSvc.On("Get", ctx, "guest-abc").Return(lines, nil)
		cartSvc.On("Clear", ctx, "guest-abc").Return(nil)
		repo.On("CreateOrder", ctx, mock.AnythingOfType("*order.Order")).Return(nil)

		svc := NewService(repo, cartSvc, paymentRepo, &MockShipmentService{})
		order, err := svc.CreateFromCart(ctx, input)

		require.NoError(t, err)
		assert.Equal(t, StatusWaitingPayment, order.Status)
		assert.Equal(t, PaymentPending, order.PaymentStatus)
		assert.Len(t, order.Items, 2)
		// 2*25000 + 1.5*80000
		assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(170000)),
			"got total %s", order.TotalAmount)
		assert.NotEmpty(t, order.Reference)

		cartSvc.AssertCalled(t, "Clear", ctx, "guest-abc")
	})

	t.Run("EmptyCart", func(t *testing.T) {
		repo := new(MockRepository)
		cartSvc := new(MockCartService)
		paymentRepo := new(MockPaymentRepository)

		paymentRepo.On("GetByID", ctx, uint(2)).Return(activeMethod, nil)
		cartSvc.On("Get", ctx, "guest-abc").Return([]cart.Line{}, nil)

		svc := NewService(repo, cartSvc, paymentRepo, &MockShipmentService{})
		_, err := svc.CreateFromCart(ctx, input)

		assert.ErrorIs(t, err, ErrCartEmpty)
	})

	t.Run("InactiveMethod", func(t *testing.T) {
		repo := new(MockRepository)
		cartSvc := new(MockCartService)
		paymentRepo := new(MockPaymentRepository)

		inactive := &payment.Method{ID: 2, Active: false}
		paymentRepo.On("GetByID", ctx, uint(2)).Return(inactive, nil)

		svc := NewService(repo, cartSvc, paymentRepo, &MockShipmentService{})
		_, err := svc.CreateFromCart(ctx, input)

		assert.ErrorIs(t, err, payment.ErrMethodInactive)
	})

	t.Run("UnknownMethod", func(t *testing.T) {
		repo := new(MockRepository)
		cartSvc := new(MockCartService)
		paymentRepo := new(MockPaymentRepository)

		paymentRepo.On("GetByID", ctx, uint(2)).Return(nil, payment.ErrMethodNotFound)

		svc := NewService(repo, cartSvc, paymentRepo, &MockShipmentService{})
		_, err := svc.CreateFromCart(ctx, input)

		assert.ErrorIs(t, err, payment.ErrMethodNotFound)
	})
}

func TestTrackByReference(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		o := waitingOrder()
		o.Status = StatusShipping
		o.PaymentStatus = PaymentPaid

		now := time.Now()
		steps := []*shipment.Step{
			{ID: 1, OrderID: 1, Position: 1, LocationName: "Warehouse", IsReached: true, ReachedAt: &now},
			{ID: 2, OrderID: 1, Position: 2, LocationName: "Hub", IsReached: false},
		}

		repo := new(MockRepository)
		shipSvc := new(MockShipmentService)
		repo.On("GetOrderByReference", ctx, o.Reference).Return(o, nil)
		shipSvc.On("List", ctx, uint(1)).Return(steps, nil)
		shipSvc.On("Metrics", ctx, uint(1)).Return(shipment.Metrics{
			Percentage:  50,
			CurrentStep: 1,
			TotalSteps:  2,
		}, nil)

		svc := NewService(repo, &MockCartService{}, &MockPaymentRepository{}, shipSvc)
		info, err := svc.TrackByReference(ctx, o.Reference)

		require.NoError(t, err)
		assert.Equal(t, StatusShipping, info.Status)
		assert.Len(t, info.Steps, 2)
		assert.Equal(t, float64(50), info.Metrics.Percentage)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetOrderByReference", ctx, "ORD-NOPE").Return(nil, ErrOrderNotFound)

		svc := newTestService(repo)
		_, err := svc.TrackByReference(ctx, "ORD-NOPE")

		assert.True(t, errors.Is(err, ErrOrderNotFound))
	})
}
