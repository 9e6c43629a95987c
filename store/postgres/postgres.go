// Package postgres is the Order Store for multi-instance deployments. Queue
// position and code assignment are serialised with a transaction-scoped
// advisory lock; status updates lock the order row.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"restaurant-queue/apperr"
	"restaurant-queue/models"
	"restaurant-queue/queue"
	"restaurant-queue/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// orderCreationLock is the advisory lock key taken by every order insert.
const orderCreationLock int64 = 0x51554555

const uniqueViolation = "23505"

var _ store.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

// Open builds a pool from a postgres:// URL and verifies connectivity.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, apperr.Internal(err, "parse database url")
	}
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.MaxConnIdleTime = 5 * time.Minute
	// keep sessions on UTC
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `SET TIME ZONE 'UTC'`)
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperr.Internal(err, "create postgres pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, apperr.Internal(err, "postgres ping")
	}
	return &Store{pool: pool}, nil
}

// Migrate applies the embedded SQL files in lexical order. Every file is
// idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		sqlBytes, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(sqlBytes)); err != nil {
			return apperr.Internal(err, "apply migration %s", name)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ── Orders ──────────────────────────────────────────────────────────────────

const orderColumns = `id, customer_name, order_code, status, queue_position,
	target_arrival_time, seated_at_time, completed_at_time, created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		o  models.Order
		id int64
	)
	err := row.Scan(&id, &o.CustomerName, &o.OrderCode, &o.Status, &o.QueuePosition,
		&o.TargetArrivalTime, &o.SeatedAtTime, &o.CompletedAtTime, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.ID = uint(id)
	return &o, nil
}

func (s *Store) CreateOrder(ctx context.Context, in store.NewOrder, codes store.CodeSource) (*models.Order, error) {
	var (
		order *models.Order
		err   error
	)
	for attempt := 0; attempt < store.DefaultInsertRetries; attempt++ {
		order, err = s.createOnce(ctx, in, codes)
		if !isUniqueViolation(err) {
			break
		}
	}
	switch {
	case err == nil:
		return order, nil
	case isUniqueViolation(err):
		return nil, apperr.Conflict("could not reserve a unique order code")
	default:
		return nil, wrap(err, "create order")
	}
}

func (s *Store) createOnce(ctx context.Context, in store.NewOrder, codes store.CodeSource) (*models.Order, error) {
	var order *models.Order
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, orderCreationLock); err != nil {
			return err
		}

		code, err := codes.Generate(ctx, func(ctx context.Context, c string) (bool, error) {
			var exists bool
			err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE order_code = $1)`, c).Scan(&exists)
			return exists, err
		})
		if err != nil {
			return err
		}

		var position *int
		if in.Status == models.StatusInQueue {
			var current *int
			err := tx.QueryRow(ctx,
				`SELECT MAX(queue_position) FROM orders WHERE status = $1`,
				string(models.StatusInQueue),
			).Scan(&current)
			if err != nil {
				return err
			}
			pos := queue.NextPosition(current)
			position = &pos
		}

		order, err = scanOrder(tx.QueryRow(ctx, `
			INSERT INTO orders (customer_name, order_code, status, queue_position)
			VALUES ($1, $2, $3, $4)
			RETURNING `+orderColumns,
			in.CustomerName, code, string(in.Status), position,
		))
		if err != nil {
			return err
		}

		order.Items = make([]models.OrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			var id int64
			err := tx.QueryRow(ctx, `
				INSERT INTO order_items (order_id, menu_item_id, quantity, price, name)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id`,
				int64(order.ID), int64(it.MenuItemID), it.Quantity, it.Price.StringFixed(2), it.Name,
			).Scan(&id)
			if err != nil {
				return fmt.Errorf("insert order item %s: %w", it.Name, err)
			}
			it.ID = uint(id)
			it.OrderID = order.ID
			order.Items = append(order.Items, it)
		}

		h := models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  order.Status,
			ChangedBy: in.CreatedBy,
			Note:      "order placed",
		}
		if err := insertHistory(ctx, tx, &h); err != nil {
			return err
		}
		order.StatusHistory = []models.OrderStatusHistory{h}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, h *models.OrderStatusHistory) error {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, changed_by, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		int64(h.OrderID), string(h.FromStatus), string(h.ToStatus), h.ChangedBy, h.Note,
	).Scan(&id, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	h.ID = uint(id)
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, int64(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order %d not found", id)
	}
	if err != nil {
		return nil, wrap(err, "get order")
	}
	if err := s.loadItems(ctx, []*models.Order{o}); err != nil {
		return nil, err
	}
	if o.StatusHistory, err = s.OrderHistory(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	o, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order %q not found", code)
	}
	if err != nil {
		return nil, wrap(err, "get order by code")
	}
	if err := s.loadItems(ctx, []*models.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) loadItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[uint]*models.Order, len(orders))
	for i, o := range orders {
		ids[i] = int64(o.ID)
		byID[o.ID] = o
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, menu_item_id, quantity, price::text, name
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return wrap(err, "load order items")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, orderID, menuItemID int64
			price                   string
			it                      models.OrderItem
		)
		if err := rows.Scan(&id, &orderID, &menuItemID, &it.Quantity, &price, &it.Name); err != nil {
			return wrap(err, "scan order item")
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return wrap(err, "parse item price")
		}
		it.ID, it.OrderID, it.MenuItemID = uint(id), uint(orderID), uint(menuItemID)
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return wrap(rows.Err(), "load order items")
}

func (s *Store) ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error) {
	var (
		where []string
		args  []any
	)
	if len(f.Statuses) > 0 {
		args = append(args, statusStrings(f.Statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(f.ExcludeStatuses) > 0 {
		args = append(args, statusStrings(f.ExcludeStatuses))
		where = append(where, fmt.Sprintf("NOT (status = ANY($%d))", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + f.OrderBy.Column()
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "list orders")
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrap(err, "scan order")
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "list orders")
	}

	if f.WithItems {
		ptrs := make([]*models.Order, len(orders))
		for i := range orders {
			ptrs[i] = &orders[i]
		}
		if err := s.loadItems(ctx, ptrs); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func statusStrings(statuses []models.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

func (s *Store) CountOrders(ctx context.Context, status models.OrderStatus) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE status = $1`, string(status)).Scan(&n)
	if err != nil {
		return 0, wrap(err, "count orders")
	}
	return n, nil
}

func (s *Store) UpdateOrder(ctx context.Context, id uint, mutate store.MutateFunc) (*models.Order, error) {
	var updated *models.Order
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, int64(id)))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("order %d not found", id)
		}
		if err != nil {
			return err
		}

		code, pos := o.OrderCode, o.QueuePosition
		history, err := mutate(o)
		if err != nil {
			return err
		}
		o.OrderCode, o.QueuePosition = code, pos

		err = tx.QueryRow(ctx, `
			UPDATE orders SET
				customer_name = $2,
				status = $3,
				target_arrival_time = $4,
				seated_at_time = $5,
				completed_at_time = $6,
				updated_at = now()
			WHERE id = $1
			RETURNING updated_at`,
			int64(o.ID), o.CustomerName, string(o.Status), o.TargetArrivalTime, o.SeatedAtTime, o.CompletedAtTime,
		).Scan(&o.UpdatedAt)
		if err != nil {
			return err
		}

		if history != nil {
			history.OrderID = o.ID
			if err := insertHistory(ctx, tx, history); err != nil {
				return err
			}
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, wrap(err, "update order")
	}
	return updated, nil
}

func (s *Store) DeleteOrder(ctx context.Context, id uint) error {
	// order_items and order_status_history cascade
	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, int64(id))
	if err != nil {
		return wrap(err, "delete order")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("order %d not found", id)
	}
	return nil
}

func (s *Store) OrderHistory(ctx context.Context, id uint) ([]models.OrderStatusHistory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, from_status, to_status, changed_by, note, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY id`, int64(id))
	if err != nil {
		return nil, wrap(err, "order history")
	}
	defer rows.Close()

	var history []models.OrderStatusHistory
	for rows.Next() {
		var (
			h          models.OrderStatusHistory
			hID, ordID int64
			from, to   string
		)
		if err := rows.Scan(&hID, &ordID, &from, &to, &h.ChangedBy, &h.Note, &h.CreatedAt); err != nil {
			return nil, wrap(err, "scan history")
		}
		h.ID, h.OrderID = uint(hID), uint(ordID)
		h.FromStatus, h.ToStatus = models.OrderStatus(from), models.OrderStatus(to)
		history = append(history, h)
	}
	return history, wrap(rows.Err(), "order history")
}

// ── Menu ────────────────────────────────────────────────────────────────────

const menuColumns = `id, name, description, price::text, estimated_prep_minutes, is_available, created_at, updated_at`

func scanMenuItem(row pgx.Row) (models.MenuItem, error) {
	var (
		it    models.MenuItem
		id    int64
		price string
	)
	if err := row.Scan(&id, &it.Name, &it.Description, &price, &it.EstimatedPrepMinutes,
		&it.IsAvailable, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return it, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return it, err
	}
	it.ID, it.Price = uint(id), p
	return it, nil
}

func (s *Store) queryMenu(ctx context.Context, query string, args ...any) ([]models.MenuItem, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "query menu")
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		it, err := scanMenuItem(rows)
		if err != nil {
			return nil, wrap(err, "scan menu item")
		}
		items = append(items, it)
	}
	return items, wrap(rows.Err(), "query menu")
}

func (s *Store) ListMenuItems(ctx context.Context, onlyAvailable bool) ([]models.MenuItem, error) {
	if onlyAvailable {
		return s.queryMenu(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE is_available ORDER BY id`)
	}
	return s.queryMenu(ctx, `SELECT `+menuColumns+` FROM menu_items ORDER BY id`)
}

func (s *Store) GetMenuItems(ctx context.Context, ids []uint) (map[uint]models.MenuItem, error) {
	out := make(map[uint]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]int64, len(ids))
	for i, id := range ids {
		keys[i] = int64(id)
	}
	items, err := s.queryMenu(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE id = ANY($1)`, keys)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func (s *Store) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	if err := store.ValidateMenuItem(item); err != nil {
		return err
	}
	created, err := scanMenuItem(s.pool.QueryRow(ctx, `
		INSERT INTO menu_items (name, description, price, estimated_prep_minutes, is_available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+menuColumns,
		item.Name, item.Description, item.Price.StringFixed(2), item.EstimatedPrepMinutes, item.IsAvailable,
	))
	if err != nil {
		return wrap(err, "create menu item")
	}
	*item = created
	return nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, item *models.MenuItem) error {
	if err := store.ValidateMenuItem(item); err != nil {
		return err
	}
	updated, err := scanMenuItem(s.pool.QueryRow(ctx, `
		UPDATE menu_items SET
			name = $2, description = $3, price = $4,
			estimated_prep_minutes = $5, is_available = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+menuColumns,
		int64(item.ID), item.Name, item.Description, item.Price.StringFixed(2),
		item.EstimatedPrepMinutes, item.IsAvailable,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("menu item %d not found", item.ID)
	}
	if err != nil {
		return wrap(err, "update menu item")
	}
	*item = updated
	return nil
}

func (s *Store) DeleteMenuItem(ctx context.Context, id uint) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, int64(id))
	if err != nil {
		return wrap(err, "delete menu item")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("menu item %d not found", id)
	}
	return nil
}

// ── Profile ─────────────────────────────────────────────────────────────────

func (s *Store) GetProfile(ctx context.Context) (*models.RestaurantProfile, error) {
	var (
		p  models.RestaurantProfile
		id int64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, total_tables, occupied_tables, avg_dine_in_minutes, updated_at
		FROM restaurant_profiles ORDER BY id LIMIT 1`,
	).Scan(&id, &p.Name, &p.TotalTables, &p.OccupiedTables, &p.AvgDineInMinutes, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err, "get restaurant profile")
	}
	p.ID = uint(id)
	return &p, nil
}

func (s *Store) SaveProfile(ctx context.Context, p *models.RestaurantProfile) error {
	if err := store.ValidateProfile(p); err != nil {
		return err
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `SELECT id FROM restaurant_profiles ORDER BY id LIMIT 1 FOR UPDATE`).Scan(&id)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			err = tx.QueryRow(ctx, `
				INSERT INTO restaurant_profiles (name, total_tables, occupied_tables, avg_dine_in_minutes)
				VALUES ($1, $2, $3, $4)
				RETURNING id, updated_at`,
				p.Name, p.TotalTables, p.OccupiedTables, p.AvgDineInMinutes,
			).Scan(&id, &p.UpdatedAt)
		case err == nil:
			err = tx.QueryRow(ctx, `
				UPDATE restaurant_profiles SET
					name = $2, total_tables = $3, occupied_tables = $4,
					avg_dine_in_minutes = $5, updated_at = now()
				WHERE id = $1
				RETURNING updated_at`,
				id, p.Name, p.TotalTables, p.OccupiedTables, p.AvgDineInMinutes,
			).Scan(&p.UpdatedAt)
		}
		if err != nil {
			return err
		}
		p.ID = uint(id)
		return nil
	})
	return wrap(err, "save restaurant profile")
}

// ── Staff ───────────────────────────────────────────────────────────────────

func (s *Store) CreateStaff(ctx context.Context, u *models.StaffUser) error {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO staff_users (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		u.Username, u.PasswordHash, string(u.Role),
	).Scan(&id, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.Conflict("username %q already exists", u.Username)
	}
	if err != nil {
		return wrap(err, "create staff user")
	}
	u.ID = uint(id)
	return nil
}

func (s *Store) GetStaffByUsername(ctx context.Context, username string) (*models.StaffUser, error) {
	var (
		u    models.StaffUser
		id   int64
		role string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, role, created_at, updated_at
		FROM staff_users WHERE username = $1`, username,
	).Scan(&id, &u.Username, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("staff user %q not found", username)
	}
	if err != nil {
		return nil, wrap(err, "get staff user")
	}
	u.ID, u.Role = uint(id), models.StaffRole(role)
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperr.Internal(err, "%s", op)
}
