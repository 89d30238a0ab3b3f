// Package postgres is the PostgreSQL store, built on GORM.
//
// Capacity checks serialize on the tour row: every booking transaction takes
// SELECT ... FOR UPDATE on the tour before summing booked guests, so two
// requests for the same tour never both see the pre-insert total.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/xraph/tourdesk"
	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/message"
	"github.com/xraph/tourdesk/notification"
	tdstore "github.com/xraph/tourdesk/store"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

// compile-time interface check
var _ tdstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via GORM.
type Store struct {
	db *gorm.DB
}

// Option configures a Store.
type Option func(*Store) error

// WithTracing installs the OpenTelemetry GORM plugin so every query is traced.
func WithTracing() Option {
	return func(s *Store) error {
		return s.db.Use(otelgorm.NewPlugin())
	}
}

// New creates a store on an open GORM handle.
func New(db *gorm.DB, opts ...Option) (*Store, error) {
	s := &Store{db: db}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("tourdesk/postgres: %w", err)
		}
	}
	return s, nil
}

// Open connects to dsn and returns a store.
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("tourdesk/postgres: open: %w", err)
	}
	return New(db, opts...)
}

// DB returns the underlying GORM handle for direct access.
func (s *Store) DB() *gorm.DB { return s.db }

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := migrate(ctx, s.db, Migrations); err != nil {
		return err
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ==================== Tour Store ====================

func (s *Store) CreateTour(ctx context.Context, t *tour.Tour) error {
	return translate(s.db.WithContext(ctx).Create(toTourModel(t)).Error)
}

func (s *Store) GetTour(ctx context.Context, tourID id.TourID) (*tour.Tour, error) {
	m := new(tourModel)
	err := s.db.WithContext(ctx).Where("id = ?", tourID.String()).Take(m).Error
	if err != nil {
		if isNoRows(err) {
			return nil, tourdesk.ErrTourNotFound
		}
		return nil, err
	}
	return fromTourModel(m)
}

func (s *Store) ListTours(ctx context.Context, opts tour.ListOpts) ([]*tour.Tour, error) {
	var models []tourModel
	q := s.db.WithContext(ctx).Model(&tourModel{})
	if !opts.GuideID.IsNil() {
		q = q.Where("guide_id = ?", opts.GuideID.String())
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if err := paginate(q, opts.Limit, opts.Offset).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return convertAll(models, fromTourModel)
}

// ==================== Booking Store ====================

func (s *Store) GetBooking(ctx context.Context, bookingID id.BookingID) (*booking.Booking, error) {
	m := new(bookingModel)
	err := s.db.WithContext(ctx).Where("id = ?", bookingID.String()).Take(m).Error
	if err != nil {
		if isNoRows(err) {
			return nil, tourdesk.ErrBookingNotFound
		}
		return nil, err
	}
	return fromBookingModel(m)
}

func (s *Store) ListBookings(ctx context.Context, opts booking.ListOpts) ([]*booking.Booking, error) {
	var models []bookingModel
	q := s.db.WithContext(ctx).Model(&bookingModel{})
	if !opts.ClientID.IsNil() {
		q = q.Where("client_id = ?", opts.ClientID.String())
	}
	if !opts.GuideID.IsNil() {
		q = q.Where("guide_id = ?", opts.GuideID.String())
	}
	if !opts.TourID.IsNil() {
		q = q.Where("tour_id = ?", opts.TourID.String())
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	err := paginate(q, opts.Limit, opts.Offset).
		Order("booking_date DESC").
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return convertAll(models, fromBookingModel)
}

func (s *Store) ListSeats(ctx context.Context, tourID id.TourID, from types.Date) ([]booking.Seat, error) {
	var rows []seatRow
	err := s.db.WithContext(ctx).Model(&bookingModel{}).
		Select("booking_date", "guests_count", "status").
		Where("tour_id = ? AND booking_date >= ?", tourID.String(), from).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	seats := make([]booking.Seat, 0, len(rows))
	for _, r := range rows {
		seats = append(seats, r.seat())
	}
	return seats, nil
}

// ==================== Notification Store ====================

func (s *Store) ListNotifications(ctx context.Context, userID id.UserID, limit int) ([]*notification.Notification, error) {
	var models []notificationModel
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("created_at DESC").
		Order("id DESC").
		Limit(notification.ClampLimit(limit)).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return convertAll(models, fromNotificationModel)
}

func (s *Store) UnreadCount(ctx context.Context, userID id.UserID) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&notificationModel{}).
		Where("user_id = ? AND NOT is_read", userID.String()).
		Count(&n).Error
	return int(n), err
}

func (s *Store) MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error {
	res := s.db.WithContext(ctx).Model(&notificationModel{}).
		Where("id = ? AND user_id = ?", notificationID.String(), userID.String()).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tourdesk.ErrNotificationNotFound
	}
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID id.UserID) (int, error) {
	res := s.db.WithContext(ctx).Model(&notificationModel{}).
		Where("user_id = ? AND NOT is_read", userID.String()).
		Update("is_read", true)
	return int(res.RowsAffected), res.Error
}

// ==================== Message Store ====================

func (s *Store) ListMessages(ctx context.Context, bookingID id.BookingID) ([]*message.Message, error) {
	var models []messageModel
	err := s.db.WithContext(ctx).
		Where("booking_id = ?", bookingID.String()).
		Order("created_at ASC").
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return convertAll(models, fromMessageModel)
}

// ==================== Transactions ====================

// Tx implements store.Store with a READ COMMITTED transaction. The tour row
// lock taken by LockTour is what makes the capacity check safe at this level.
func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context, tx tdstore.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, &tx{db: db})
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	return translate(err)
}

type tx struct {
	db *gorm.DB
}

func (t *tx) LockTour(ctx context.Context, tourID id.TourID) (*tour.Tour, error) {
	m := new(tourModel)
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", tourID.String()).
		Take(m).Error
	if err != nil {
		if isNoRows(err) {
			return nil, tourdesk.ErrTourNotFound
		}
		return nil, err
	}
	return fromTourModel(m)
}

func (t *tx) BookedGuests(ctx context.Context, tourID id.TourID, date types.Date) (int, error) {
	var total int64
	err := t.db.WithContext(ctx).Model(&bookingModel{}).
		Select("COALESCE(SUM(guests_count), 0)").
		Where("tour_id = ? AND booking_date = ? AND status IN ?",
			tourID.String(), date, []string{string(booking.StatusPending), string(booking.StatusConfirmed)}).
		Scan(&total).Error
	return int(total), err
}

// PeakGuests aggregates per date in a subquery and takes the maximum.
func (t *tx) PeakGuests(ctx context.Context, tourID id.TourID, from types.Date) (int, error) {
	perDate := t.db.Model(&bookingModel{}).
		Select("SUM(guests_count) AS guests").
		Where("tour_id = ? AND booking_date >= ? AND status IN ?",
			tourID.String(), from, []string{string(booking.StatusPending), string(booking.StatusConfirmed)}).
		Group("booking_date")

	var peak int64
	err := t.db.WithContext(ctx).
		Table("(?) AS per_date", perDate).
		Select("COALESCE(MAX(guests), 0)").
		Scan(&peak).Error
	return int(peak), err
}

func (t *tx) PatchTour(ctx context.Context, tourID id.TourID, p tour.Patch) error {
	res := t.db.WithContext(ctx).Model(&tourModel{}).
		Where("id = ?", tourID.String()).
		Updates(tourPatchColumns(p))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tourdesk.ErrTourNotFound
	}
	return nil
}

func (t *tx) FindBookingByIdempotencyKey(ctx context.Context, clientID id.UserID, key string) (*booking.Booking, error) {
	m := new(bookingModel)
	err := t.db.WithContext(ctx).
		Where("client_id = ? AND idempotency_key = ?", clientID.String(), key).
		Take(m).Error
	if err != nil {
		if isNoRows(err) {
			return nil, tourdesk.ErrBookingNotFound
		}
		return nil, err
	}
	return fromBookingModel(m)
}

func (t *tx) InsertBooking(ctx context.Context, b *booking.Booking) error {
	return translate(t.db.WithContext(ctx).Create(toBookingModel(b)).Error)
}

func (t *tx) GetBookingForUpdate(ctx context.Context, bookingID id.BookingID) (*booking.Booking, error) {
	m := new(bookingModel)
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", bookingID.String()).
		Take(m).Error
	if err != nil {
		if isNoRows(err) {
			return nil, tourdesk.ErrBookingNotFound
		}
		return nil, err
	}
	return fromBookingModel(m)
}

func (t *tx) UpdateBookingStatus(ctx context.Context, b *booking.Booking) error {
	res := t.db.WithContext(ctx).Model(&bookingModel{}).
		Where("id = ?", b.ID.String()).
		Updates(map[string]any{
			"status":     string(b.Status),
			"updated_at": b.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tourdesk.ErrBookingNotFound
	}
	return nil
}

func (t *tx) InsertNotification(ctx context.Context, n *notification.Notification) error {
	return t.db.WithContext(ctx).Create(toNotificationModel(n)).Error
}

func (t *tx) InsertMessage(ctx context.Context, m *message.Message) error {
	return t.db.WithContext(ctx).Create(toMessageModel(m)).Error
}

// ==================== Helpers ====================

func paginate(q *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

func isNoRows(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, sql.ErrNoRows)
}

// PostgreSQL error codes the store maps to domain errors.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// translate maps driver errors onto tourdesk sentinels. Errors that already
// carry a domain meaning pass through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Join(tourdesk.ErrAlreadyExists, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return errors.Join(tourdesk.ErrAlreadyExists, err)
		case codeSerializationFailure, codeDeadlockDetected:
			return errors.Join(tourdesk.ErrTransactionFailed, err)
		}
	}
	return err
}
