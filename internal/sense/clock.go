package sense

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/infrastructure/config"
	"github.com/nerrad567/urchin-core/internal/lifecycle"
	"github.com/nerrad567/urchin-core/internal/store"
)

// Day periods stored under brain.KeyDayPeriod.
const (
	PeriodNight     = "night"
	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
	PeriodEvening   = "evening"
)

// TimeNow is the message of the per-minute time sensation.
type TimeNow struct {
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Dom        int    `json:"dom"`
	Hour       int    `json:"hour"`
	Minute     int    `json:"minute"`
	Second     int    `json:"second"`
	DayName    string `json:"day_name"`
	MonthName  string `json:"month_name"`
	SpecialDay string `json:"special_day"`
}

// SpecialDays looks up calendar entries.
type SpecialDays interface {
	SpecialDay(ctx context.Context, date time.Time) (*store.SpecialDay, error)
}

// Clock announces each new minute, keeps the day period and special day
// current in state, and gets bored when nothing has been said for a while.
type Clock struct {
	*lifecycle.Loop

	cfg    config.ClockSenseConfig
	mind   Mind
	days   SpecialDays
	logger Logger

	now    func() time.Time
	random func() float64

	mu         sync.Mutex
	lastMinute int
	lastDate   string
	specialDay string
}

// NewClock creates the clock sense. days may be nil.
func NewClock(cfg config.ClockSenseConfig, mind Mind, days SpecialDays, logger Logger) *Clock {
	c := &Clock{
		cfg:        cfg,
		mind:       mind,
		days:       days,
		logger:     orNoop(logger),
		now:        time.Now,
		random:     rand.Float64,
		lastMinute: -1,
	}
	c.Loop = lifecycle.NewLoop("clock", cfg.Interval, func(context.Context) { c.Tick(c.now()) }, c.logger)
	return c
}

// Tick runs one clock iteration for now.
func (c *Clock) Tick(now time.Time) {
	c.boredom(now)

	c.mu.Lock()
	if now.Minute() == c.lastMinute {
		c.mu.Unlock()
		return
	}
	c.lastMinute = now.Minute()
	c.mu.Unlock()

	c.announce(now)
}

func (c *Clock) boredom(now time.Time) {
	last, ok := c.mind.State().Time(brain.KeyLastUtterance)
	if !ok {
		return
	}
	since := now.Sub(last)
	if since <= c.cfg.BoredomMinimum {
		return
	}
	if c.random() < c.cfg.BoredomAmount {
		c.mind.Experience(brain.NewSensation(c.mind.Topic("bored"), strconv.Itoa(int(since.Seconds()))))
	}
}

func (c *Clock) announce(now time.Time) {
	special := c.updateDate(now)

	c.mind.Experience(brain.NewJSONSensation(c.mind.Topic("time/now"), TimeNow{
		Year:       now.Year(),
		Month:      int(now.Month()),
		Dom:        now.Day(),
		Hour:       now.Hour(),
		Minute:     now.Minute(),
		Second:     now.Second(),
		DayName:    now.Weekday().String(),
		MonthName:  now.Month().String(),
		SpecialDay: special,
	}))

	state := c.mind.State()
	state.Set(brain.KeySpecialDay, special)
	state.Set(brain.KeyDayPeriod, DayPeriod(now))
}

// updateDate refreshes the special day when the date changes.
func (c *Clock) updateDate(now time.Time) string {
	date := now.Format(time.DateOnly)

	c.mu.Lock()
	defer c.mu.Unlock()
	if date == c.lastDate {
		return c.specialDay
	}
	c.lastDate = date
	c.specialDay = ""

	if c.days == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sd, err := c.days.SpecialDay(ctx, now)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		c.logger.Warn("looking up special day", "date", date, "error", err)
		// Retry on the next minute.
		c.lastDate = ""
	default:
		c.specialDay = sd.Name
	}
	return c.specialDay
}

// DayPeriod names the part of the day t falls in.
func DayPeriod(t time.Time) string {
	minutes := t.Hour()*60 + t.Minute()
	switch {
	case minutes < 4*60:
		return PeriodNight
	case minutes < 12*60:
		return PeriodMorning
	case minutes < 17*60+45:
		return PeriodAfternoon
	case minutes < 22*60:
		return PeriodEvening
	default:
		return PeriodNight
	}
}
