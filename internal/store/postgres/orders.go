package postgres

import (
	"context"
	"fmt"

	"comanda/internal/store"

	"github.com/google/uuid"
)

// GetOrder loads the order snapshot and its items.
func (s *Store) GetOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*store.Order, error) {
	query := `
		SELECT id, tenant_id, number, channel, table_label, customer_name, customer_phone,
			delivery_address, notes, discount_cents, delivery_fee_cents, printed, created_at
		FROM orders
		WHERE id = $1 AND tenant_id = $2
	`

	var o store.Order
	err := s.db.QueryRowContext(ctx, query, orderID, tenantID).Scan(
		&o.ID, &o.TenantID, &o.Number, &o.Channel, &o.TableLabel,
		&o.CustomerName, &o.CustomerPhone, &o.DeliveryAddress, &o.Notes,
		&o.DiscountCents, &o.DeliveryFeeCents, &o.Printed, &o.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, quantity, unit_price_cents, notes
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items of order %s: %w", orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item store.OrderItem
		if err := rows.Scan(&item.Name, &item.Quantity, &item.UnitPriceCents, &item.Notes); err != nil {
			return nil, fmt.Errorf("order item scan failed: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order item rows error: %w", err)
	}

	return &o, nil
}

// SetOrderPrinted updates the printed flag of an order.
func (s *Store) SetOrderPrinted(ctx context.Context, tx store.DBTransaction, tenantID, orderID uuid.UUID, printed bool) error {
	executor := s.getExecutor(tx)

	res, err := executor.ExecContext(ctx,
		`UPDATE orders SET printed = $1 WHERE id = $2 AND tenant_id = $3`,
		printed, orderID, tenantID,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
