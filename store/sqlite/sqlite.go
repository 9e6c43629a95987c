// Package sqlite is the default Order Store: gorm on top of a pure-Go SQLite
// driver. Writers are serialised through a single connection, which makes the
// code check and the queue max+1 read atomic with the insert.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restaurant-queue/apperr"
	"restaurant-queue/models"
	"restaurant-queue/queue"
	"restaurant-queue/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	db *gorm.DB
}

// Open connects to the database file at path (":memory:" for an in-memory
// database) and limits the pool to one connection.
func Open(path string, logLevel logger.LogLevel) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, apperr.Internal(err, "open sqlite database %q", path)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperr.Internal(err, "get sqlite connection pool")
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return &Store{db: db}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// DB exposes the underlying gorm handle for tooling.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&models.RestaurantProfile{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
		&models.StaffUser{},
	)
	if err != nil {
		return apperr.Internal(err, "migrate sqlite schema")
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ── Orders ──────────────────────────────────────────────────────────────────

func (s *Store) CreateOrder(ctx context.Context, in store.NewOrder, codes store.CodeSource) (*models.Order, error) {
	var (
		order *models.Order
		err   error
	)
	for attempt := 0; attempt < store.DefaultInsertRetries; attempt++ {
		order, err = s.createOnce(ctx, in, codes)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	switch {
	case err == nil:
		return order, nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, apperr.Conflict("could not reserve a unique order code")
	default:
		return nil, wrap(err, "create order")
	}
}

func (s *Store) createOnce(ctx context.Context, in store.NewOrder, codes store.CodeSource) (*models.Order, error) {
	order := &models.Order{
		CustomerName: in.CustomerName,
		Status:       in.Status,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := codes.Generate(ctx, func(_ context.Context, c string) (bool, error) {
			var n int64
			err := tx.Model(&models.Order{}).Where("order_code = ?", c).Count(&n).Error
			return n > 0, err
		})
		if err != nil {
			return err
		}
		order.OrderCode = code

		if in.Status == models.StatusInQueue {
			var maxPos sql.NullInt64
			err := tx.Model(&models.Order{}).
				Select("MAX(queue_position)").
				Where("status = ?", models.StatusInQueue).
				Row().Scan(&maxPos)
			if err != nil {
				return err
			}
			var current *int
			if maxPos.Valid {
				v := int(maxPos.Int64)
				current = &v
			}
			pos := queue.NextPosition(current)
			order.QueuePosition = &pos
		}

		order.Items = make([]models.OrderItem, len(in.Items))
		for i, it := range in.Items {
			it.ID = 0
			it.OrderID = 0
			order.Items[i] = it
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		history := models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  order.Status,
			ChangedBy: in.CreatedBy,
			Note:      "order placed",
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		order.StatusHistory = []models.OrderStatusHistory{history}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Store) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order %d not found", id)
	}
	if err != nil {
		return nil, wrap(err, "get order")
	}
	return &o, nil
}

func (s *Store) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("order_code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order %q not found", code)
	}
	if err != nil {
		return nil, wrap(err, "get order by code")
	}
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}
	if len(f.ExcludeStatuses) > 0 {
		query = query.Where("status NOT IN ?", f.ExcludeStatuses)
	}
	if f.WithItems {
		query = query.Preload("Items")
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	var orders []models.Order
	if err := query.Order(f.OrderBy.Column()).Find(&orders).Error; err != nil {
		return nil, wrap(err, "list orders")
	}
	return orders, nil
}

func (s *Store) CountOrders(ctx context.Context, status models.OrderStatus) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).Where("status = ?", status).Count(&n).Error
	if err != nil {
		return 0, wrap(err, "count orders")
	}
	return n, nil
}

func (s *Store) UpdateOrder(ctx context.Context, id uint, mutate store.MutateFunc) (*models.Order, error) {
	var updated models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&updated, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("order %d not found", id)
			}
			return err
		}

		code, pos := updated.OrderCode, updated.QueuePosition
		history, err := mutate(&updated)
		if err != nil {
			return err
		}
		updated.OrderCode, updated.QueuePosition = code, pos

		err = tx.Model(&updated).
			Select("customer_name", "status", "target_arrival_time", "seated_at_time", "completed_at_time").
			Updates(&updated).Error
		if err != nil {
			return err
		}

		if history != nil {
			history.ID = 0
			history.OrderID = updated.ID
			if err := tx.Create(history).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrap(err, "update order")
	}
	return &updated, nil
}

func (s *Store) DeleteOrder(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderStatusHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Order{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("order %d not found", id)
		}
		return nil
	})
	return wrap(err, "delete order")
}

func (s *Store) OrderHistory(ctx context.Context, id uint) ([]models.OrderStatusHistory, error) {
	var history []models.OrderStatusHistory
	err := s.db.WithContext(ctx).Where("order_id = ?", id).Order("id ASC").Find(&history).Error
	if err != nil {
		return nil, wrap(err, "order history")
	}
	return history, nil
}

// ── Menu ────────────────────────────────────────────────────────────────────

func (s *Store) ListMenuItems(ctx context.Context, onlyAvailable bool) ([]models.MenuItem, error) {
	query := s.db.WithContext(ctx)
	if onlyAvailable {
		query = query.Where("is_available = ?", true)
	}
	var items []models.MenuItem
	if err := query.Order("id ASC").Find(&items).Error; err != nil {
		return nil, wrap(err, "list menu items")
	}
	return items, nil
}

func (s *Store) GetMenuItems(ctx context.Context, ids []uint) (map[uint]models.MenuItem, error) {
	out := make(map[uint]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []models.MenuItem
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, wrap(err, "get menu items")
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
	return wrap(s.db.WithContext(ctx).Create(item).Error, "create menu item")
}

func (s *Store) UpdateMenuItem(ctx context.Context, item *models.MenuItem) error {
	if err := store.ValidateMenuItem(item); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(item).
		Select("name", "description", "price", "estimated_prep_minutes", "is_available").
		Updates(item)
	if res.Error != nil {
		return wrap(res.Error, "update menu item")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("menu item %d not found", item.ID)
	}
	return nil
}

func (s *Store) DeleteMenuItem(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.MenuItem{}, id)
	if res.Error != nil {
		return wrap(res.Error, "delete menu item")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("menu item %d not found", id)
	}
	return nil
}

// ── Profile ─────────────────────────────────────────────────────────────────

func (s *Store) GetProfile(ctx context.Context) (*models.RestaurantProfile, error) {
	var p models.RestaurantProfile
	err := s.db.WithContext(ctx).Order("id ASC").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err, "get restaurant profile")
	}
	return &p, nil
}

func (s *Store) SaveProfile(ctx context.Context, p *models.RestaurantProfile) error {
	if err := store.ValidateProfile(p); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.RestaurantProfile
		err := tx.Order("id ASC").First(&existing).Error
		switch {
		case err == nil:
			p.ID = existing.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			p.ID = 0
		default:
			return err
		}
		return tx.Save(p).Error
	})
	return wrap(err, "save restaurant profile")
}

// ── Staff ───────────────────────────────────────────────────────────────────

func (s *Store) CreateStaff(ctx context.Context, u *models.StaffUser) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("username %q already exists", u.Username)
	}
	return wrap(err, "create staff user")
}

func (s *Store) GetStaffByUsername(ctx context.Context, username string) (*models.StaffUser, error) {
	var u models.StaffUser
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("staff user %q not found", username)
	}
	if err != nil {
		return nil, wrap(err, "get staff user")
	}
	return &u, nil
}

// wrap passes typed errors through and marks everything else internal.
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
