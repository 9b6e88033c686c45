package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/Renal37/auto-speed-shop/internal/models"
	"github.com/Renal37/auto-speed-shop/internal/workflow"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateOrder = errors.New("заказ уже существует")
)

// SQL-запросы для работы с заказами
const (
	InsertOrderQuery = `
		INSERT INTO
			orders (
				id, order_number, user_id, status, payment_status,
				subtotal, shipping_amount, tax_amount, total_amount,
				shipping_address, created_at, updated_at
			)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`
	InsertOrderItemQuery = `
		INSERT INTO
			order_items (order_id, product_id, name, unit_price, quantity, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	selectOrderColumns = `
		SELECT
			id,
			order_number,
			user_id,
			status,
			payment_status,
			subtotal,
			shipping_amount,
			tax_amount,
			total_amount,
			paypal_order_id,
			shipping_address,
			notes,
			created_at,
			updated_at,
			shipped_at,
			delivered_at
		FROM
			orders
	`
	SelectOrderQuery = selectOrderColumns + `
		WHERE
			id = $1
	`
	SelectOrdersByUserQuery = selectOrderColumns + `
		WHERE
			user_id = $1
		ORDER BY
			created_at DESC
	`
	SelectOrderItemsQuery = `
		SELECT
			product_id,
			name,
			unit_price,
			quantity,
			line_total
		FROM
			order_items
		WHERE
			order_id = $1
		ORDER BY
			id
	`
	UpdateOrderStatusQuery = `
		UPDATE
			orders
		SET
			status = $2,
			payment_status = COALESCE($3, payment_status),
			shipped_at = COALESCE($4, shipped_at),
			delivered_at = COALESCE($5, delivered_at),
			notes = COALESCE($6, notes),
			updated_at = $7
		WHERE
			id = $1
	`
	UpdatePaymentQuery = `
		UPDATE
			orders
		SET
			payment_status = $2,
			paypal_order_id = COALESCE($3, paypal_order_id),
			updated_at = $4
		WHERE
			id = $1
	`
)

// OrderStatusDB статус заказа с проверкой закрытого перечня при чтении и записи.
type OrderStatusDB struct {
	workflow.Status
}

func (s *OrderStatusDB) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("статус заказа должен быть строкой, а не %T", value)
	}

	status, err := workflow.ParseStatus(strVal)
	if err != nil {
		return err
	}

	*s = OrderStatusDB{status}
	return nil
}

func (s OrderStatusDB) Value() (driver.Value, error) {
	if !s.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", workflow.ErrUnknownStatus, s.Status)
	}
	return string(s.Status), nil
}

// PaymentStatusDB статус оплаты с проверкой закрытого перечня.
type PaymentStatusDB struct {
	workflow.PaymentStatus
}

func (s *PaymentStatusDB) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("статус оплаты должен быть строкой, а не %T", value)
	}

	status, err := workflow.ParsePaymentStatus(strVal)
	if err != nil {
		return err
	}

	*s = PaymentStatusDB{status}
	return nil
}

func (s PaymentStatusDB) Value() (driver.Value, error) {
	if !s.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", workflow.ErrUnknownPaymentStatus, s.PaymentStatus)
	}
	return string(s.PaymentStatus), nil
}

type OrderDB struct {
	ID              string
	OrderNumber     string
	UserID          *string
	Status          OrderStatusDB
	PaymentStatus   PaymentStatusDB
	Subtotal        decimal.Decimal
	ShippingAmount  decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	PayPalOrderID   *string
	ShippingAddress models.ShippingAddress
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	Items           []OrderItemDB
}

type OrderItemDB struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	LineTotal decimal.Decimal
}

// StatusUpdateDB изменение статуса. nil-поля оставляют текущее значение.
type StatusUpdateDB struct {
	OrderID       string
	Status        OrderStatusDB
	PaymentStatus *PaymentStatusDB
	ShippedAt     *time.Time
	DeliveredAt   *time.Time
	Notes         *string
	UpdatedAt     time.Time
}

// PaymentUpdateDB изменение состояния оплаты без смены статуса заказа.
type PaymentUpdateDB struct {
	OrderID       string
	PaymentStatus PaymentStatusDB
	PayPalOrderID *string
	UpdatedAt     time.Time
}

// CreateOrder сохраняет заказ вместе с позициями в одной транзакции.
func (d *Database) CreateOrder(ctx context.Context, order OrderDB) error {
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, InsertOrderQuery,
		order.ID,
		order.OrderNumber,
		order.UserID,
		order.Status,
		order.PaymentStatus,
		order.Subtotal,
		order.ShippingAmount,
		order.TaxAmount,
		order.TotalAmount,
		order.ShippingAddress,
		order.CreatedAt,
	)
	if err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("ошибка создания заказа: %w", err)
	}

	for _, item := range order.Items {
		if err := insertOrderItem(ctx, tx, order.ID, item); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	return nil
}

func insertOrderItem(ctx context.Context, executor DBExecutor, orderID string, item OrderItemDB) error {
	_, err := executor.Exec(ctx, InsertOrderItemQuery,
		orderID, item.ProductID, item.Name, item.UnitPrice, item.Quantity, item.LineTotal)
	if err != nil {
		return fmt.Errorf("ошибка создания позиции заказа: %w", err)
	}
	return nil
}

func scanOrder(row pgx.Row, order *OrderDB) error {
	return row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Status,
		&order.PaymentStatus,
		&order.Subtotal,
		&order.ShippingAmount,
		&order.TaxAmount,
		&order.TotalAmount,
		&order.PayPalOrderID,
		&order.ShippingAddress,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.ShippedAt,
		&order.DeliveredAt,
	)
}

func findOrderItems(ctx context.Context, executor DBExecutor, orderID string) ([]OrderItemDB, error) {
	rows, err := executor.Query(ctx, SelectOrderItemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска позиций заказа: %w", err)
	}
	defer rows.Close()

	var items []OrderItemDB
	for rows.Next() {
		var item OrderItemDB
		if err := rows.Scan(&item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity, &item.LineTotal); err != nil {
			return nil, fmt.Errorf("ошибка обработки позиции заказа: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации по позициям заказа: %w", err)
	}

	return items, nil
}

// FindOrder ищет заказ по ID вместе с позициями. Возвращает nil, если заказ не найден.
func (d *Database) FindOrder(ctx context.Context, orderID string) (*OrderDB, error) {
	order := &OrderDB{}

	if err := scanOrder(d.db.QueryRow(ctx, SelectOrderQuery, orderID), order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска заказа: %w", err)
	}

	items, err := findOrderItems(ctx, d.db, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// FindOrdersByUser возвращает заказы пользователя, начиная с новых.
func (d *Database) FindOrdersByUser(ctx context.Context, userID string) ([]OrderDB, error) {
	rows, err := d.db.Query(ctx, SelectOrdersByUserQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска заказов пользователя: %w", err)
	}

	var result []OrderDB
	for rows.Next() {
		var order OrderDB
		if err := scanOrder(rows, &order); err != nil {
			rows.Close()
			return nil, fmt.Errorf("ошибка обработки строки с заказом: %w", err)
		}
		result = append(result, order)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации по строкам: %w", err)
	}

	for i := range result {
		items, err := findOrderItems(ctx, d.db, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Items = items
	}

	return result, nil
}

// UpdateOrderStatus применяет изменение статуса и возвращает обновлённый заказ.
// Возвращает nil, если заказ не найден.
func (d *Database) UpdateOrderStatus(ctx context.Context, update StatusUpdateDB) (*OrderDB, error) {
	tag, err := d.db.Exec(ctx, UpdateOrderStatusQuery,
		update.OrderID,
		update.Status,
		update.PaymentStatus,
		update.ShippedAt,
		update.DeliveredAt,
		update.Notes,
		update.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления статуса заказа: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return nil, nil
	}

	return d.FindOrder(ctx, update.OrderID)
}

// UpdatePayment обновляет статус оплаты и, при наличии, идентификатор заказа PayPal.
func (d *Database) UpdatePayment(ctx context.Context, update PaymentUpdateDB) error {
	_, err := d.db.Exec(ctx, UpdatePaymentQuery,
		update.OrderID,
		update.PaymentStatus,
		update.PayPalOrderID,
		update.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления оплаты заказа: %w", err)
	}
	return nil
}
