// Package mongo is the MongoDB store.
//
// Transactions need a replica set or sharded cluster. LockTour bumps a
// counter on the tour document, so two transactions booking the same tour
// write-conflict and the driver retries the loser with fresh reads.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readconcern"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"

	"github.com/xraph/tourdesk"
	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/id"
	"github.com/xraph/tourdesk/message"
	"github.com/xraph/tourdesk/notification"
	tdstore "github.com/xraph/tourdesk/store"
	"github.com/xraph/tourdesk/tour"
	"github.com/xraph/tourdesk/types"
)

// Collection name constants.
const (
	colTours         = "tourdesk_tours"
	colBookings      = "tourdesk_bookings"
	colNotifications = "tourdesk_notifications"
	colMessages      = "tourdesk_messages"
)

// DefaultDatabase is used when New is given an empty database name.
const DefaultDatabase = "tourdesk"

// compile-time interface check
var _ tdstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New creates a store on database of a connected client.
func New(client *mongo.Client, database string) *Store {
	if database == "" {
		database = DefaultDatabase
	}
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

// Connect dials uri and returns a store on database.
func Connect(uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("tourdesk/mongo: connect: %w", err)
	}
	return New(client, database), nil
}

// Database returns the underlying database handle for direct access.
func (s *Store) Database() *mongo.Database { return s.db }

// Migrate creates indexes for all tourdesk collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("tourdesk/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ==================== Tour Store ====================

func (s *Store) CreateTour(ctx context.Context, t *tour.Tour) error {
	if _, err := s.db.Collection(colTours).InsertOne(ctx, toTourModel(t)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tourdesk.ErrAlreadyExists
		}
		return fmt.Errorf("tourdesk/mongo: create tour: %w", err)
	}
	return nil
}

func (s *Store) GetTour(ctx context.Context, tourID id.TourID) (*tour.Tour, error) {
	var m tourModel
	err := s.db.Collection(colTours).FindOne(ctx, bson.M{"_id": tourID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tourdesk.ErrTourNotFound
		}
		return nil, fmt.Errorf("tourdesk/mongo: get tour: %w", err)
	}
	return fromTourModel(&m)
}

func (s *Store) ListTours(ctx context.Context, opts tour.ListOpts) ([]*tour.Tour, error) {
	filter := bson.M{}
	if !opts.GuideID.IsNil() {
		filter["guide_id"] = opts.GuideID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	findOpts := paginate(options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}), opts.Limit, opts.Offset)
	var models []tourModel
	if err := findAll(ctx, s.db.Collection(colTours), filter, findOpts, &models); err != nil {
		return nil, fmt.Errorf("tourdesk/mongo: list tours: %w", err)
	}
	return convertAll(models, fromTourModel)
}

// ==================== Booking Store ====================

func (s *Store) GetBooking(ctx context.Context, bookingID id.BookingID) (*booking.Booking, error) {
	var m bookingModel
	err := s.db.Collection(colBookings).FindOne(ctx, bson.M{"_id": bookingID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tourdesk.ErrBookingNotFound
		}
		return nil, fmt.Errorf("tourdesk/mongo: get booking: %w", err)
	}
	return fromBookingModel(&m)
}

func (s *Store) ListBookings(ctx context.Context, opts booking.ListOpts) ([]*booking.Booking, error) {
	filter := bson.M{}
	if !opts.ClientID.IsNil() {
		filter["client_id"] = opts.ClientID.String()
	}
	if !opts.GuideID.IsNil() {
		filter["guide_id"] = opts.GuideID.String()
	}
	if !opts.TourID.IsNil() {
		filter["tour_id"] = opts.TourID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	findOpts := paginate(options.Find().SetSort(bson.D{
		{Key: "booking_date", Value: -1},
		{Key: "created_at", Value: -1},
	}), opts.Limit, opts.Offset)

	var models []bookingModel
	if err := findAll(ctx, s.db.Collection(colBookings), filter, findOpts, &models); err != nil {
		return nil, fmt.Errorf("tourdesk/mongo: list bookings: %w", err)
	}
	return convertAll(models, fromBookingModel)
}

func (s *Store) ListSeats(ctx context.Context, tourID id.TourID, from types.Date) ([]booking.Seat, error) {
	filter := bson.M{
		"tour_id":      tourID.String(),
		"booking_date": bson.M{"$gte": from.String()},
	}
	findOpts := options.Find().SetProjection(bson.M{"booking_date": 1, "guests_count": 1, "status": 1})

	var rows []seatModel
	if err := findAll(ctx, s.db.Collection(colBookings), filter, findOpts, &rows); err != nil {
		return nil, fmt.Errorf("tourdesk/mongo: list seats: %w", err)
	}
	seats := make([]booking.Seat, 0, len(rows))
	for _, r := range rows {
		seat, err := r.seat()
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, nil
}

// ==================== Notification Store ====================

func (s *Store) ListNotifications(ctx context.Context, userID id.UserID, limit int) ([]*notification.Notification, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(notification.ClampLimit(limit)))

	var models []notificationModel
	if err := findAll(ctx, s.db.Collection(colNotifications), bson.M{"user_id": userID.String()}, findOpts, &models); err != nil {
		return nil, fmt.Errorf("tourdesk/mongo: list notifications: %w", err)
	}
	return convertAll(models, fromNotificationModel)
}

func (s *Store) UnreadCount(ctx context.Context, userID id.UserID) (int, error) {
	n, err := s.db.Collection(colNotifications).CountDocuments(ctx, bson.M{
		"user_id": userID.String(),
		"is_read": false,
	})
	if err != nil {
		return 0, fmt.Errorf("tourdesk/mongo: unread count: %w", err)
	}
	return int(n), nil
}

func (s *Store) MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error {
	res, err := s.db.Collection(colNotifications).UpdateOne(ctx,
		bson.M{"_id": notificationID.String(), "user_id": userID.String()},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return fmt.Errorf("tourdesk/mongo: mark read: %w", err)
	}
	if res.MatchedCount == 0 {
		return tourdesk.ErrNotificationNotFound
	}
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID id.UserID) (int, error) {
	res, err := s.db.Collection(colNotifications).UpdateMany(ctx,
		bson.M{"user_id": userID.String(), "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("tourdesk/mongo: mark all read: %w", err)
	}
	return int(res.ModifiedCount), nil
}

// ==================== Message Store ====================

func (s *Store) ListMessages(ctx context.Context, bookingID id.BookingID) ([]*message.Message, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	var models []messageModel
	if err := findAll(ctx, s.db.Collection(colMessages), bson.M{"booking_id": bookingID.String()}, findOpts, &models); err != nil {
		return nil, fmt.Errorf("tourdesk/mongo: list messages: %w", err)
	}
	return convertAll(models, fromMessageModel)
}

// ==================== Transactions ====================

// Tx implements store.Store. The driver retries fn on transient transaction
// errors, which is how concurrent LockTour calls resolve.
func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context, tx tdstore.Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("tourdesk/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc context.Context) (any, error) {
		return nil, fn(sc, &tx{db: s.db})
	}, txOpts)
	return err
}

type tx struct {
	db *mongo.Database
}

func (t *tx) LockTour(ctx context.Context, tourID id.TourID) (*tour.Tour, error) {
	var m tourModel
	err := t.db.Collection(colTours).FindOneAndUpdate(ctx,
		bson.M{"_id": tourID.String()},
		bson.M{"$inc": bson.M{"lock_version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tourdesk.ErrTourNotFound
		}
		return nil, err
	}
	return fromTourModel(&m)
}

func (t *tx) BookedGuests(ctx context.Context, tourID id.TourID, date types.Date) (int, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{
			"tour_id":      tourID.String(),
			"booking_date": date.String(),
			"status":       bson.M{"$in": bson.A{string(booking.StatusPending), string(booking.StatusConfirmed)}},
		}},
		bson.M{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$guests_count"}}},
	}
	cur, err := t.db.Collection(colBookings).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	var out []struct {
		Total int `bson:"total"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Total, nil
}

func (t *tx) PeakGuests(ctx context.Context, tourID id.TourID, from types.Date) (int, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{
			"tour_id":      tourID.String(),
			"booking_date": bson.M{"$gte": from.String()},
			"status":       bson.M{"$in": bson.A{string(booking.StatusPending), string(booking.StatusConfirmed)}},
		}},
		bson.M{"$group": bson.M{"_id": "$booking_date", "guests": bson.M{"$sum": "$guests_count"}}},
		bson.M{"$group": bson.M{"_id": nil, "peak": bson.M{"$max": "$guests"}}},
	}
	cur, err := t.db.Collection(colBookings).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	var out []struct {
		Peak int `bson:"peak"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Peak, nil
}

func (t *tx) PatchTour(ctx context.Context, tourID id.TourID, p tour.Patch) error {
	res, err := t.db.Collection(colTours).UpdateOne(ctx,
		bson.M{"_id": tourID.String()},
		bson.M{"$set": tourPatchFields(p)},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return tourdesk.ErrTourNotFound
	}
	return nil
}

func (t *tx) FindBookingByIdempotencyKey(ctx context.Context, clientID id.UserID, key string) (*booking.Booking, error) {
	var m bookingModel
	err := t.db.Collection(colBookings).FindOne(ctx, bson.M{
		"client_id":       clientID.String(),
		"idempotency_key": key,
	}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tourdesk.ErrBookingNotFound
		}
		return nil, err
	}
	return fromBookingModel(&m)
}

func (t *tx) InsertBooking(ctx context.Context, b *booking.Booking) error {
	if _, err := t.db.Collection(colBookings).InsertOne(ctx, toBookingModel(b)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Join(tourdesk.ErrAlreadyExists, err)
		}
		return err
	}
	return nil
}

// GetBookingForUpdate touches the document so a concurrent transition of the
// same booking conflicts instead of reading the same status.
func (t *tx) GetBookingForUpdate(ctx context.Context, bookingID id.BookingID) (*booking.Booking, error) {
	var m bookingModel
	err := t.db.Collection(colBookings).FindOneAndUpdate(ctx,
		bson.M{"_id": bookingID.String()},
		bson.M{"$inc": bson.M{"lock_version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tourdesk.ErrBookingNotFound
		}
		return nil, err
	}
	return fromBookingModel(&m)
}

func (t *tx) UpdateBookingStatus(ctx context.Context, b *booking.Booking) error {
	res, err := t.db.Collection(colBookings).UpdateOne(ctx,
		bson.M{"_id": b.ID.String()},
		bson.M{"$set": bson.M{"status": string(b.Status), "updated_at": b.UpdatedAt}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return tourdesk.ErrBookingNotFound
	}
	return nil
}

func (t *tx) InsertNotification(ctx context.Context, n *notification.Notification) error {
	_, err := t.db.Collection(colNotifications).InsertOne(ctx, toNotificationModel(n))
	return err
}

func (t *tx) InsertMessage(ctx context.Context, m *message.Message) error {
	_, err := t.db.Collection(colMessages).InsertOne(ctx, toMessageModel(m))
	return err
}

// ==================== Helpers ====================

func findAll[T any](ctx context.Context, col *mongo.Collection, filter any, opts *options.FindOptionsBuilder, out *[]T) error {
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func paginate(opts *options.FindOptionsBuilder, limit, offset int) *options.FindOptionsBuilder {
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts = opts.SetSkip(int64(offset))
	}
	return opts
}

func convertAll[M any, T any](models []M, fn func(*M) (T, error)) ([]T, error) {
	out := make([]T, 0, len(models))
	for i := range models {
		v, err := fn(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all tourdesk collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colTours: {
			{Keys: bson.D{{Key: "guide_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colBookings: {
			{Keys: bson.D{{Key: "tour_id", Value: 1}, {Key: "booking_date", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "booking_date", Value: -1}}},
			{Keys: bson.D{{Key: "guide_id", Value: 1}, {Key: "booking_date", Value: -1}}},
			{
				Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$type": "string"}}),
			},
		},
		colNotifications: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_read", Value: 1}}},
		},
		colMessages: {
			{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
}
