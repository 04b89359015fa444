package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Repository is the read side the agent needs at startup and per
// sensation, plus the one write the mute switch makes.
type Repository interface {
	Profile(ctx context.Context, id string) (*Profile, error)
	Broker(ctx context.Context, id string) (*Broker, error)
	Voice(ctx context.Context, id string) (*Voice, error)
	Ignores(ctx context.Context) ([]Ignore, error)
	SpecialDay(ctx context.Context, date time.Time) (*SpecialDay, error)
	Greetings(ctx context.Context, member string) ([]Candidate, error)
	Musings(ctx context.Context, topic string) ([]Candidate, error)
	SetMuteSwitch(ctx context.Context, profileID string, on bool) error
}

// Candidate kinds.
const (
	KindGreeting = "Greeting"
	KindMusing   = "Musing"
)

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Profile retrieves a profile by id.
func (r *SQLiteRepository) Profile(ctx context.Context, id string) (*Profile, error) {
	const query = `SELECT id, broker_id, voice_id, time_interval, journal_interval,
			boredom_minimum, boredom_amount, door_open_seconds, mute_switch
		FROM profiles WHERE id = ?`

	var (
		p                 Profile
		brokerID, voiceID sql.NullString
		timeInt, journal  float64
		boredom, doorOpen int64
		mute              int
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &brokerID, &voiceID, &timeInt, &journal,
		&boredom, &p.BoredomAmount, &doorOpen, &mute,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying profile %q: %w", id, err)
	}

	p.BrokerID = brokerID.String
	p.VoiceID = voiceID.String
	p.TimeInterval = seconds(timeInt)
	p.JournalInterval = seconds(journal)
	p.BoredomMinimum = time.Duration(boredom) * time.Second
	p.DoorOpen = time.Duration(doorOpen) * time.Second
	p.MuteSwitch = mute != 0
	return &p, nil
}

// Broker retrieves broker settings by id.
func (r *SQLiteRepository) Broker(ctx context.Context, id string) (*Broker, error) {
	const query = `SELECT id, host, port, keep_alive, clean, client_id FROM brokers WHERE id = ?`

	var b Broker
	var clean int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.Host, &b.Port, &b.KeepAlive, &clean, &b.ClientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying broker %q: %w", id, err)
	}
	b.Clean = clean != 0
	return &b, nil
}

// Voice retrieves a voice profile with its effect.
func (r *SQLiteRepository) Voice(ctx context.Context, id string) (*Voice, error) {
	const query = `SELECT v.id, v.engine, v.voice, v.pitch, v.amplitude, v.speed, v.gap,
			COALESCE(e.id, ''), COALESCE(e.args, '')
		FROM voices v LEFT JOIN effects e ON e.id = v.effect_id
		WHERE v.id = ?`

	var v Voice
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.Engine, &v.Voice, &v.Pitch, &v.Amplitude, &v.Speed, &v.Gap,
		&v.Effect.ID, &v.Effect.Args,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying voice %q: %w", id, err)
	}
	return &v, nil
}

// Ignores lists every ignore pattern pair.
func (r *SQLiteRepository) Ignores(ctx context.Context) ([]Ignore, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, topic_re, message_re FROM ignores ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying ignores: %w", err)
	}
	defer rows.Close()

	var out []Ignore
	for rows.Next() {
		var ig Ignore
		if err := rows.Scan(&ig.ID, &ig.TopicRE, &ig.MessageRE); err != nil {
			return nil, fmt.Errorf("scanning ignore: %w", err)
		}
		out = append(out, ig)
	}
	return out, rows.Err()
}

// SpecialDay returns the calendar entry for date, preferring an entry for
// that exact year over an every-year one.
func (r *SQLiteRepository) SpecialDay(ctx context.Context, date time.Time) (*SpecialDay, error) {
	const query = `SELECT id, COALESCE(year, 0), month, day, name, COALESCE(story, '')
		FROM special_days
		WHERE month = ? AND day = ? AND (year IS NULL OR year = ?)
		ORDER BY year IS NULL, id
		LIMIT 1`

	var sd SpecialDay
	err := r.db.QueryRowContext(ctx, query, int(date.Month()), date.Day(), date.Year()).Scan(
		&sd.ID, &sd.Year, &sd.Month, &sd.Day, &sd.Name, &sd.Story,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying special day: %w", err)
	}
	return &sd, nil
}

// Greetings lists greetings addressed to member plus those for anyone.
func (r *SQLiteRepository) Greetings(ctx context.Context, member string) ([]Candidate, error) {
	const query = `SELECT id, action, COALESCE(condition, ''), weight, COALESCE(member, '')
		FROM greetings WHERE member = ? OR member IS NULL ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, member)
	if err != nil {
		return nil, fmt.Errorf("querying greetings: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		c := Candidate{Kind: KindGreeting}
		if err := rows.Scan(&c.ID, &c.Action, &c.Condition, &c.Weight, &c.Member); err != nil {
			return nil, fmt.Errorf("scanning greeting: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Musings lists musings registered for an exact topic.
func (r *SQLiteRepository) Musings(ctx context.Context, topic string) ([]Candidate, error) {
	const query = `SELECT id, action, COALESCE(condition, ''), weight, topic
		FROM musings WHERE topic = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, topic)
	if err != nil {
		return nil, fmt.Errorf("querying musings: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		c := Candidate{Kind: KindMusing}
		if err := rows.Scan(&c.ID, &c.Action, &c.Condition, &c.Weight, &c.Topic); err != nil {
			return nil, fmt.Errorf("scanning musing: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetMuteSwitch persists the mute switch position for a profile.
func (r *SQLiteRepository) SetMuteSwitch(ctx context.Context, profileID string, on bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET mute_switch = ? WHERE id = ?`, boolToInt(on), profileID)
	if err != nil {
		return fmt.Errorf("updating mute switch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
