package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tokokirim-be/internal/logger"
	"tokokirim-be/internal/utils"
)

type Repository interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrderDetail(ctx context.Context, orderID uint) (*Order, error)
	GetOrderByReference(ctx context.Context, reference string) (*Order, error)
	FetchOrders(ctx context.Context, filter *OrderFilterInput, sort *OrderSortInput, limit, offset int32) ([]*Order, error)

	// UpdateOrderTx is the single mutation path for lifecycle fields:
	// begin tx, lock the order row, re-read its current state, run the
	// guard-and-mutate closure against that state, write the lifecycle
	// fields back, commit. A closure error rolls the whole tx back.
	UpdateOrderTx(ctx context.Context, orderID uint, mutate func(*Order) error) (*Order, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const lifecycleColumns = `
	id, reference, user_id, payment_method_id, total_amount,
	status, payment_status, payment_proof, payment_verified_at,
	created_at, updated_at
`

func scanLifecycle(row *sql.Row, o *Order) error {
	return row.Scan(
		&o.ID,
		&o.Reference,
		&o.UserID,
		&o.PaymentMethodID,
		&o.TotalAmount,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentProof,
		&o.PaymentVerifiedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}

func (r *repository) UpdateOrderTx(
	ctx context.Context,
	orderID uint,
	mutate func(*Order) error,
) (*Order, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateOrderTx"),
		zap.Uint("order_id", orderID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	// Exclusive row lock before reading: concurrent admin actions on the
	// same order serialize here.
	query := `
		SELECT ` + lifecycleColumns + `
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	var o Order
	row := tx.QueryRowContext(ctx, query, orderID)
	if err := scanLifecycle(row, &o); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		log.Error("failed to read order for update", zap.Error(err))
		return nil, err
	}

	if err := mutate(&o); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
			payment_status = $2,
			payment_proof = $3,
			payment_verified_at = $4,
			updated_at = NOW()
		WHERE id = $5
	`,
		o.Status,
		o.PaymentStatus,
		o.PaymentProof,
		o.PaymentVerifiedAt,
		o.ID,
	)
	if err != nil {
		log.Error("failed to write order lifecycle fields", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order update", zap.Error(err))
		return nil, err
	}
	committed = true

	return &o, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrder"),
		zap.String("reference", order.Reference),
		zap.Int("item_count", len(order.Items)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	var billingName, billingStreet, billingCity, billingCountry, billingZip *string
	var billingPhone, billingEmail, billingCompany, billingApartment *string
	if b := order.BillingAddress; b != nil {
		billingName, billingStreet, billingCity = &b.Name, &b.Street, &b.City
		billingCountry, billingZip = &b.Country, &b.Zip
		billingPhone, billingEmail = b.Phone, b.Email
		billingCompany, billingApartment = b.Company, b.Apartment
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			reference, user_id, payment_method_id, total_amount,
			shipping_name, shipping_street, shipping_city, shipping_country,
			shipping_zip, shipping_phone, shipping_email, shipping_company,
			shipping_apartment,
			billing_name, billing_street, billing_city, billing_country,
			billing_zip, billing_phone, billing_email, billing_company,
			billing_apartment,
			notes, status, payment_status
		) VALUES (
			$1,$2,$3,$4,
			$5,$6,$7,$8,$9,$10,$11,$12,$13,
			$14,$15,$16,$17,$18,$19,$20,$21,$22,
			$23,$24,$25
		)
		RETURNING id, created_at, updated_at
	`,
		order.Reference,
		order.UserID,
		order.PaymentMethodID,
		order.TotalAmount,
		order.ShippingAddress.Name,
		order.ShippingAddress.Street,
		order.ShippingAddress.City,
		order.ShippingAddress.Country,
		order.ShippingAddress.Zip,
		order.ShippingAddress.Phone,
		order.ShippingAddress.Email,
		order.ShippingAddress.Company,
		order.ShippingAddress.Apartment,
		billingName,
		billingStreet,
		billingCity,
		billingCountry,
		billingZip,
		billingPhone,
		billingEmail,
		billingCompany,
		billingApartment,
		order.Notes,
		order.Status,
		order.PaymentStatus,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (
				order_id, product_id, quantity, price,
				product_name, unit, product_image, subtotal
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING id
		`,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.Price,
			item.ProductName,
			item.Unit,
			item.ProductImage,
			item.Subtotal,
		).Scan(&item.ID)
		if err != nil {
			log.Error("failed to insert order item",
				zap.Int("item_index", i),
				zap.Error(err),
			)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order creation", zap.Error(err))
		return err
	}
	committed = true

	log.Info("order created")
	return nil
}

func (r *repository) GetOrderDetail(ctx context.Context, orderID uint) (*Order, error) {
	query := `
		SELECT
			id, reference, user_id, payment_method_id, total_amount,
			shipping_name, shipping_street, shipping_city, shipping_country,
			shipping_zip, shipping_phone, shipping_email, shipping_company,
			shipping_apartment,
			billing_name, billing_street, billing_city, billing_country,
			billing_zip, billing_phone, billing_email, billing_company,
			billing_apartment,
			notes, status, payment_status, payment_proof, payment_verified_at,
			created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var o Order
	var billingName, billingStreet, billingCity, billingCountry, billingZip *string
	var billingPhone, billingEmail, billingCompany, billingApartment *string

	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&o.ID,
		&o.Reference,
		&o.UserID,
		&o.PaymentMethodID,
		&o.TotalAmount,
		&o.ShippingAddress.Name,
		&o.ShippingAddress.Street,
		&o.ShippingAddress.City,
		&o.ShippingAddress.Country,
		&o.ShippingAddress.Zip,
		&o.ShippingAddress.Phone,
		&o.ShippingAddress.Email,
		&o.ShippingAddress.Company,
		&o.ShippingAddress.Apartment,
		&billingName,
		&billingStreet,
		&billingCity,
		&billingCountry,
		&billingZip,
		&billingPhone,
		&billingEmail,
		&billingCompany,
		&billingApartment,
		&o.Notes,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentProof,
		&o.PaymentVerifiedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order detail: %w", err)
	}

	if billingName != nil {
		b := Address{
			Name:      *billingName,
			Phone:     billingPhone,
			Email:     billingEmail,
			Company:   billingCompany,
			Apartment: billingApartment,
		}
		if billingStreet != nil {
			b.Street = *billingStreet
		}
		if billingCity != nil {
			b.City = *billingCity
		}
		if billingCountry != nil {
			b.Country = *billingCountry
		}
		if billingZip != nil {
			b.Zip = *billingZip
		}
		o.BillingAddress = &b
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, price,
			product_name, unit, product_image, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.ProductName,
			&item.Unit,
			&item.ProductImage,
			&item.Subtotal,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *repository) GetOrderByReference(ctx context.Context, reference string) (*Order, error) {
	query := `
		SELECT ` + lifecycleColumns + `
		FROM orders
		WHERE reference = $1
	`

	var o Order
	row := r.db.QueryRowContext(ctx, query, reference)
	if err := scanLifecycle(row, &o); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by reference: %w", err)
	}

	return &o, nil
}

func (r *repository) FetchOrders(
	ctx context.Context,
	filter *OrderFilterInput,
	sort *OrderSortInput,
	limit, offset int32,
) ([]*Order, error) {

	userID, _ := utils.GetUserIDFromContext(ctx)
	role := utils.GetUserRoleFromContext(ctx)
	isAdmin := role == utils.RoleAdmin

	log := logger.FromCtx(ctx).With(
		zap.String("method", "FetchOrders"),
		zap.String("role", role),
		zap.Int32("limit", limit),
		zap.Int32("offset", offset),
	)

	query := `
		SELECT ` + lifecycleColumns + `
		FROM orders o
		WHERE 1=1
	`

	args := []any{}
	argIndex := 1

	if !isAdmin {
		query += fmt.Sprintf(" AND o.user_id = $%d", argIndex)
		args = append(args, userID)
		argIndex++
	}

	if filter != nil {
		if filter.Search != nil && *filter.Search != "" {
			query += fmt.Sprintf(
				" AND (o.id::text ILIKE $%d OR o.reference ILIKE $%d)",
				argIndex, argIndex,
			)
			args = append(args, "%"+*filter.Search+"%")
			argIndex++
		}

		if filter.Status != nil && *filter.Status != "" {
			query += fmt.Sprintf(" AND o.status = $%d", argIndex)
			args = append(args, *filter.Status)
			argIndex++
		}

		if filter.DateFrom != nil {
			query += fmt.Sprintf(" AND o.created_at >= $%d", argIndex)
			args = append(args, *filter.DateFrom)
			argIndex++
		}

		if filter.DateTo != nil {
			query += fmt.Sprintf(" AND o.created_at <= $%d", argIndex)
			args = append(args, *filter.DateTo)
			argIndex++
		}
	}

	orderBy := "o.created_at DESC"
	if sort != nil {
		dir := strings.ToUpper(string(sort.Direction))
		if dir != "ASC" && dir != "DESC" {
			dir = "DESC"
		}

		switch sort.Field {
		case OrderSortFieldTotal:
			orderBy = "o.total_amount " + dir
		case OrderSortFieldCreatedAt:
			orderBy = "o.created_at " + dir
		}
	}

	query += " ORDER BY " + orderBy
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID,
			&o.Reference,
			&o.UserID,
			&o.PaymentMethodID,
			&o.TotalAmount,
			&o.Status,
			&o.PaymentStatus,
			&o.PaymentProof,
			&o.PaymentVerifiedAt,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.Debug("fetch orders success", zap.Int("count", len(orders)))
	return orders, nil
}
