package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/fitbarca/reminders/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// UpsertSlot updates the slot for (user, day) or inserts a new one. The
// schema deliberately has no unique constraint on (user, day): duplicate
// rows from racing writers are tolerated and deduplicated at read time.
func (r *SQLiteRepo) UpsertSlot(ctx context.Context, s *domain.WeeklySlot) error {
	if s == nil {
		return errors.New("nil slot")
	}
	now := time.Now().UTC().Unix()

	res, err := r.db.ExecContext(ctx, `
		UPDATE slots
		SET clock = ?, muscle_groups = ?, updated_at = ?
		WHERE user_id = ? AND day = ?`,
		s.Clock, joinGroups(s.MuscleGroups), now, s.UserID, s.Day,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n > 0 {
		return nil
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO slots (user_id, day, clock, muscle_groups, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.UserID, s.Day, s.Clock, joinGroups(s.MuscleGroups), now,
	)
	return err
}

const slotColumns = "user_id, day, clock, muscle_groups, updated_at"

func scanSlots(rows *sql.Rows) ([]domain.WeeklySlot, error) {
	var res []domain.WeeklySlot
	for rows.Next() {
		var (
			userID    string
			day       string
			clock     string
			groups    string
			updatedAt int64
		)
		if err := rows.Scan(&userID, &day, &clock, &groups, &updatedAt); err != nil {
			return nil, err
		}
		res = append(res, domain.WeeklySlot{
			UserID:       userID,
			Day:          domain.Weekday(day),
			Clock:        clock,
			MuscleGroups: splitGroups(groups),
			UpdatedAt:    time.Unix(updatedAt, 0).UTC(),
		})
	}
	return res, rows.Err()
}

// ListSlots returns all slot rows for a user, duplicates included.
func (r *SQLiteRepo) ListSlots(ctx context.Context, userID string) ([]domain.WeeklySlot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE user_id = ?
		ORDER BY updated_at ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

// ListSlotsByDay returns every user's slot rows for the given weekday.
func (r *SQLiteRepo) ListSlotsByDay(ctx context.Context, day domain.Weekday) ([]domain.WeeklySlot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE day = ?
		ORDER BY user_id ASC, updated_at ASC`,
		day,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

// UpsertProfile inserts or updates a user's notification profile.
func (r *SQLiteRepo) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	if p == nil {
		return errors.New("nil profile")
	}
	now := time.Now().UTC().Unix()

	var endpoint, auth, p256dh string
	if p.Subscription != nil {
		endpoint = p.Subscription.Endpoint
		auth = p.Subscription.Auth
		p256dh = p.Subscription.P256dh
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (
			user_id, first_name, language, notifications_enabled,
			calendar_sync_enabled, telegram_chat_id,
			push_endpoint, push_auth, push_p256dh, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			first_name            = excluded.first_name,
			language              = excluded.language,
			notifications_enabled = excluded.notifications_enabled,
			calendar_sync_enabled = excluded.calendar_sync_enabled,
			telegram_chat_id      = excluded.telegram_chat_id,
			push_endpoint         = excluded.push_endpoint,
			push_auth             = excluded.push_auth,
			push_p256dh           = excluded.push_p256dh,
			updated_at            = excluded.updated_at`,
		p.UserID, p.FirstName, p.Language, boolToInt(p.NotificationsEnabled),
		boolToInt(p.CalendarSyncEnabled), toNullInt64(p.TelegramChatID),
		endpoint, auth, p256dh, now,
	)
	return err
}

// GetProfile returns a user's profile or ErrNotFound.
func (r *SQLiteRepo) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, first_name, language, notifications_enabled,
		       calendar_sync_enabled, telegram_chat_id,
		       push_endpoint, push_auth, push_p256dh, updated_at
		FROM profiles
		WHERE user_id = ?`,
		userID,
	)

	var (
		id         string
		firstName  string
		language   string
		notifOn    int
		calendarOn int
		chatNS     sql.NullInt64
		endpoint   string
		auth       string
		p256dh     string
		updatedAt  int64
	)
	if err := row.Scan(
		&id, &firstName, &language, &notifOn, &calendarOn,
		&chatNS, &endpoint, &auth, &p256dh, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}

	p := &domain.Profile{
		UserID:               id,
		FirstName:            firstName,
		Language:             language,
		NotificationsEnabled: notifOn != 0,
		CalendarSyncEnabled:  calendarOn != 0,
		TelegramChatID:       fromNullInt64(chatNS),
		UpdatedAt:            time.Unix(updatedAt, 0).UTC(),
	}
	if endpoint != "" || auth != "" || p256dh != "" {
		p.Subscription = &domain.PushSubscription{Endpoint: endpoint, Auth: auth, P256dh: p256dh}
	}
	return p, nil
}

// ClearSubscription nulls out the push subscription and disables
// notifications for a user whose endpoint the provider reported gone.
func (r *SQLiteRepo) ClearSubscription(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET push_endpoint = '', push_auth = '', push_p256dh = '',
		    notifications_enabled = 0, updated_at = ?
		WHERE user_id = ?`,
		time.Now().UTC().Unix(), userID,
	)
	return err
}

// AddChallengeWorkout records an open challenge workout item for a user.
func (r *SQLiteRepo) AddChallengeWorkout(ctx context.Context, userID, title string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO challenge_workouts (user_id, title, completed, created_at)
		VALUES (?, ?, 0, ?)`,
		userID, title, time.Now().UTC().Unix(),
	)
	return err
}

// CompleteChallengeWorkout marks the named challenge workout done.
func (r *SQLiteRepo) CompleteChallengeWorkout(ctx context.Context, userID, title string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE challenge_workouts
		SET completed = 1
		WHERE user_id = ? AND title = ?`,
		userID, title,
	)
	return err
}

// HasOpenChallengeWorkout reports whether the user has any incomplete
// challenge workout items.
func (r *SQLiteRepo) HasOpenChallengeWorkout(ctx context.Context, userID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM challenge_workouts
		WHERE user_id = ? AND completed = 0
		LIMIT 1`,
		userID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
