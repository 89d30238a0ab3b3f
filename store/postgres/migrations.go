package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migration is one forward schema step.
type Migration struct {
	Name    string
	Version string
	Up      string
}

// Migrations lists the schema steps in version order.
var Migrations = []Migration{
	{
		Name:    "create_tourdesk_tours",
		Version: "20250101000001",
		Up: `
CREATE TABLE IF NOT EXISTS tourdesk_tours (
    id              TEXT PRIMARY KEY,
    guide_id        TEXT NOT NULL,
    title           TEXT NOT NULL DEFAULT '',
    city            TEXT NOT NULL DEFAULT '',
    price_amount    BIGINT NOT NULL DEFAULT 0 CHECK (price_amount >= 0),
    price_currency  TEXT NOT NULL DEFAULT 'rub',
    max_guests      INT NOT NULL DEFAULT 10,
    status          TEXT NOT NULL DEFAULT 'pending',
    instant_booking BOOLEAN NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tourdesk_tours_guide ON tourdesk_tours (guide_id);
CREATE INDEX IF NOT EXISTS idx_tourdesk_tours_status ON tourdesk_tours (status);
`,
	},
	{
		Name:    "create_tourdesk_bookings",
		Version: "20250101000002",
		Up: `
CREATE TABLE IF NOT EXISTS tourdesk_bookings (
    id              TEXT PRIMARY KEY,
    tour_id         TEXT NOT NULL REFERENCES tourdesk_tours (id),
    client_id       TEXT NOT NULL,
    guide_id        TEXT NOT NULL,
    booking_date    DATE NOT NULL,
    guests_count    INT NOT NULL CHECK (guests_count >= 1),
    total_amount    BIGINT NOT NULL DEFAULT 0,
    total_currency  TEXT NOT NULL DEFAULT 'rub',
    status          TEXT NOT NULL DEFAULT 'pending',
    client_name     TEXT NOT NULL DEFAULT '',
    client_contact  TEXT NOT NULL DEFAULT '',
    idempotency_key TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tourdesk_bookings_tour_date ON tourdesk_bookings (tour_id, booking_date) WHERE status IN ('pending', 'confirmed');
CREATE INDEX IF NOT EXISTS idx_tourdesk_bookings_client ON tourdesk_bookings (client_id, booking_date DESC);
CREATE INDEX IF NOT EXISTS idx_tourdesk_bookings_guide ON tourdesk_bookings (guide_id, booking_date DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tourdesk_bookings_idempotency ON tourdesk_bookings (client_id, idempotency_key) WHERE idempotency_key IS NOT NULL;
`,
	},
	{
		Name:    "create_tourdesk_notifications",
		Version: "20250101000003",
		Up: `
CREATE TABLE IF NOT EXISTS tourdesk_notifications (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    type       TEXT NOT NULL,
    title      TEXT NOT NULL DEFAULT '',
    message    TEXT NOT NULL DEFAULT '',
    link       TEXT NOT NULL DEFAULT '',
    is_read    BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tourdesk_notifications_user ON tourdesk_notifications (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tourdesk_notifications_unread ON tourdesk_notifications (user_id) WHERE NOT is_read;
`,
	},
	{
		Name:    "create_tourdesk_messages",
		Version: "20250101000004",
		Up: `
CREATE TABLE IF NOT EXISTS tourdesk_messages (
    id         TEXT PRIMARY KEY,
    booking_id TEXT NOT NULL REFERENCES tourdesk_bookings (id),
    sender_id  TEXT NOT NULL,
    body       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tourdesk_messages_booking ON tourdesk_messages (booking_id, created_at);
`,
	},
}

type schemaMigration struct {
	Version   string    `gorm:"column:version;primaryKey"`
	Name      string    `gorm:"column:name"`
	AppliedAt time.Time `gorm:"column:applied_at"`
}

func (schemaMigration) TableName() string { return "tourdesk_schema_migrations" }

// migrate applies every migration in list that is not yet recorded. Each
// step runs in its own transaction together with its bookkeeping row.
func migrate(ctx context.Context, db *gorm.DB, list []Migration) (int, error) {
	db = db.WithContext(ctx)
	if err := db.Exec(`
CREATE TABLE IF NOT EXISTS tourdesk_schema_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`).Error; err != nil {
		return 0, fmt.Errorf("tourdesk/postgres: create migrations table: %w", err)
	}

	var applied []schemaMigration
	if err := db.Find(&applied).Error; err != nil {
		return 0, fmt.Errorf("tourdesk/postgres: read migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, m := range applied {
		done[m.Version] = true
	}

	count := 0
	for _, m := range list {
		if done[m.Version] {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.Up).Error; err != nil {
				return err
			}
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&schemaMigration{
				Version:   m.Version,
				Name:      m.Name,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return count, fmt.Errorf("tourdesk/postgres: migration %s (%s): %w", m.Version, m.Name, err)
		}
		count++
	}
	return count, nil
}
