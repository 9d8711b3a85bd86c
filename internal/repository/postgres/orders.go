package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"auction-engine/internal/repository"
)

const orderColumns = `order_id, auction_id, winner_id, seller_id, final_price, status, shipping_address,
	payment_proof, shipment_proof, cancel_reason, created_at, updated_at`

func scanOrder(row rowScanner) (model.Order, error) {
	var (
		o      model.Order
		status string
	)
	err := row.Scan(&o.OrderID, &o.AuctionID, &o.WinnerID, &o.SellerID, &o.FinalPrice, &status, &o.ShippingAddress,
		&o.PaymentProof, &o.ShipmentProof, &o.CancelReason, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return model.Order{}, err
	}
	if o.Status, err = model.ParseOrderStatus(status); err != nil {
		return model.Order{}, err
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}

// CreateOrderIfAbsent inserts order unless its auction already has one; the unique
// auction_id constraint settles concurrent first accesses.
func (s *Store) CreateOrderIfAbsent(ctx context.Context, o model.Order) (model.Order, bool, error) {
	created, err := scanOrder(s.db.QueryRowContext(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (auction_id) DO NOTHING
		RETURNING `+orderColumns,
		o.OrderID, o.AuctionID, o.WinnerID, o.SellerID, o.FinalPrice, string(o.Status), o.ShippingAddress,
		o.PaymentProof, o.ShipmentProof, o.CancelReason, o.CreatedAt, o.UpdatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := s.GetOrderByAuction(ctx, o.AuctionID)
		return existing, false, err
	}
	if err != nil {
		return model.Order{}, false, mapConstraint(fmt.Sprintf("create order for auction %s", o.AuctionID), err)
	}
	return created, true, nil
}

func (s *Store) getOrder(ctx context.Context, op, where, arg string) (model.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where+` = $1`, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, fmt.Errorf("%s: %w", op, auctionerrors.ErrNotFound)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	return o, nil
}

// GetOrder returns an order by ID
func (s *Store) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	return s.getOrder(ctx, fmt.Sprintf("get order %s", orderID), "order_id", orderID)
}

// GetOrderByAuction returns the order created for an auction
func (s *Store) GetOrderByAuction(ctx context.Context, auctionID string) (model.Order, error) {
	return s.getOrder(ctx, fmt.Sprintf("get order for auction %s", auctionID), "auction_id", auctionID)
}

// UpdateOrder runs fn inside a transaction holding the order's row lock.
// Links to the auction and its parties are never rewritten.
func (s *Store) UpdateOrder(ctx context.Context, orderID string, fn repository.OrderFunc) (model.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Order{}, fmt.Errorf("update order %s: begin: %w", orderID, err)
	}
	defer tx.Rollback()

	o, err := scanOrder(tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1 FOR UPDATE`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, fmt.Errorf("update order %s: %w", orderID, auctionerrors.ErrNotFound)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("update order %s: %w", orderID, err)
	}

	working := o
	if err := fn(&working); err != nil {
		return model.Order{}, err
	}
	working.OrderID, working.AuctionID, working.WinnerID, working.SellerID = o.OrderID, o.AuctionID, o.WinnerID, o.SellerID

	_, err = tx.ExecContext(ctx, `UPDATE orders SET status = $2, shipping_address = $3, payment_proof = $4,
		shipment_proof = $5, cancel_reason = $6, updated_at = $7 WHERE order_id = $1`,
		orderID, string(working.Status), working.ShippingAddress, working.PaymentProof,
		working.ShipmentProof, working.CancelReason, working.UpdatedAt)
	if err != nil {
		return model.Order{}, fmt.Errorf("update order %s: %w", orderID, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Order{}, fmt.Errorf("update order %s: commit: %w", orderID, err)
	}
	return working, nil
}

// AppendMessage adds a message to an order's chat log and assigns its ID
func (s *Store) AppendMessage(ctx context.Context, msg model.Message) (model.Message, error) {
	err := s.db.QueryRowContext(ctx, `INSERT INTO order_messages (order_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4) RETURNING message_id`,
		msg.OrderID, msg.SenderID, msg.Content, msg.CreatedAt).Scan(&msg.MessageID)
	if err != nil {
		return model.Message{}, mapConstraint(fmt.Sprintf("append message to order %s", msg.OrderID), err)
	}
	return msg, nil
}

// ListMessages returns up to limit messages with IDs greater than afterID, oldest first
func (s *Store) ListMessages(ctx context.Context, orderID string, afterID uint64, limit int) ([]model.Message, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT message_id, order_id, sender_id, content, created_at
		FROM order_messages WHERE order_id = $1 AND message_id > $2
		ORDER BY message_id LIMIT $3`, orderID, int64(afterID), repository.ClampMessageLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list messages for order %s: %w", orderID, err)
	}
	defer rows.Close()

	msgs := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.MessageID, &m.OrderID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("list messages for order %s: %w", orderID, err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
