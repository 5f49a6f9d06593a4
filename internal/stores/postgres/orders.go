package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"bakery-service/internal/orders"
	"bakery-service/internal/users"
)

const orderColumns = `id, user_id, items, subtotal, shipping_fee, tax, amount, address, status,
	payment_method, payment, payment_ref, created_at`

// PlaceOrder stores the order, empties the owner's cart and queues the event
// in a single transaction.
func (s *Store) PlaceOrder(ctx context.Context, o orders.Order, ev orders.Event) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	addr, err := json.Marshal(o.Address)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE users SET cart_data = '{}'::jsonb WHERE id = $1`, o.UserID)
		if err != nil {
			return fmt.Errorf("clearing cart: %w", err)
		}
		if err := expectOne(res, users.ErrNotFound); err != nil {
			return err
		}

		const q = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
		_, err = tx.ExecContext(ctx, q, o.ID, o.UserID, items, o.Subtotal, o.ShippingFee, o.Tax, o.Amount,
			addr, o.Status, o.PaymentMethod, o.Payment, o.PaymentRef, o.Date)
		if err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}
		return insertEvent(ctx, tx, ev)
	})
}

func (s *Store) OrderByID(ctx context.Context, id string) (orders.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, err
}

func (s *Store) OrdersByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	return s.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (s *Store) AllOrders(ctx context.Context) ([]orders.Order, error) {
	return s.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (s *Store) queryOrders(ctx context.Context, q string, args ...any) ([]orders.Order, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	out := []orders.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, id, status string, ev func(orders.Order) (orders.Event, error)) (orders.Order, error) {
	return s.mutate(ctx, id, func(o *orders.Order) { o.Status = status },
		`UPDATE orders SET status = $2 WHERE id = $1`, func(o orders.Order) []any { return []any{o.ID, o.Status} }, ev)
}

func (s *Store) MarkPaid(ctx context.Context, id, paymentRef string, ev func(orders.Order) (orders.Event, error)) (orders.Order, error) {
	return s.mutate(ctx, id, func(o *orders.Order) {
		o.Payment = true
		o.PaymentRef = paymentRef
	}, `UPDATE orders SET payment = true, payment_ref = $2 WHERE id = $1`,
		func(o orders.Order) []any { return []any{o.ID, o.PaymentRef} }, ev)
}

// mutate locks the order row, applies the change and queues the event built
// from the updated order.
func (s *Store) mutate(ctx context.Context, id string, apply func(*orders.Order), update string,
	args func(orders.Order) []any, ev func(orders.Order) (orders.Event, error)) (orders.Order, error) {

	var out orders.Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		o, err := scanOrder(tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return orders.ErrNotFound
		}
		if err != nil {
			return err
		}

		apply(&o)
		if _, err := tx.ExecContext(ctx, update, args(o)...); err != nil {
			return fmt.Errorf("updating order: %w", err)
		}
		e, err := ev(o)
		if err != nil {
			return err
		}
		if err := insertEvent(ctx, tx, e); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return orders.Order{}, err
	}
	return out, nil
}

// scanOrder leaves sql.ErrNoRows unwrapped so callers can map it.
func scanOrder(row scanner) (orders.Order, error) {
	var (
		o           orders.Order
		items, addr []byte
	)
	err := row.Scan(&o.ID, &o.UserID, &items, &o.Subtotal, &o.ShippingFee, &o.Tax, &o.Amount, &addr,
		&o.Status, &o.PaymentMethod, &o.Payment, &o.PaymentRef, &o.Date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return orders.Order{}, err
		}
		return orders.Order{}, fmt.Errorf("scanning order: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return orders.Order{}, fmt.Errorf("decoding order items: %w", err)
	}
	if err := json.Unmarshal(addr, &o.Address); err != nil {
		return orders.Order{}, fmt.Errorf("decoding order address: %w", err)
	}
	return o, nil
}
