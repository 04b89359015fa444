package responder

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/nerrad567/urchin-core/internal/brain"
)

// TemperaturePrefix is the topic namespace of room thermometers.
const TemperaturePrefix = "nh/temperature/"

// Temperature state keys.
const (
	KeyTemperatureMedian      = "temperature_median"
	KeyTemperatureDescription = "temperature_description"
	KeyTemperatureColdest     = "temperature_coldest"
	KeyTemperatureHottest     = "temperature_hottest"
)

var (
	separatorRx  = regexp.MustCompile(`[_-]+`)
	capitalRx    = regexp.MustCompile(`[A-Z]`)
	whitespaceRx = regexp.MustCompile(`\s+`)
)

// Temperature tracks room temperatures and keeps summary values in state.
// It never produces urges.
type Temperature struct {
	mind Mind

	mu    sync.Mutex
	rooms map[string]float64
}

// NewTemperature creates the temperature responder.
func NewTemperature(mind Mind) *Temperature {
	return &Temperature{mind: mind, rooms: make(map[string]float64)}
}

func (t *Temperature) Name() string { return "temperature" }

func (t *Temperature) Respond(s brain.Sensation) ([]brain.Urge, error) {
	if !strings.HasPrefix(s.Topic, TemperaturePrefix) {
		return nil, nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(s.Message), 64)
	if err != nil {
		return nil, fmt.Errorf("temperature %s: %w", s.Topic, err)
	}

	t.mu.Lock()
	t.rooms[RoomName(s.Topic)] = round1(value)
	median := t.median()
	coldest, hottest := t.extremes()
	t.mu.Unlock()

	state := t.mind.State()
	state.Set(KeyTemperatureMedian, median)
	state.Set(KeyTemperatureDescription, Describe(median))
	state.Set(KeyTemperatureColdest, coldest)
	state.Set(KeyTemperatureHottest, hottest)
	return nil, nil
}

func (t *Temperature) median() float64 {
	values := make([]float64, 0, len(t.rooms))
	for _, v := range t.rooms {
		values = append(values, v)
	}
	slices.Sort(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return round1((values[n/2-1] + values[n/2]) / 2)
}

func (t *Temperature) extremes() (coldest, hottest string) {
	names := make([]string, 0, len(t.rooms))
	for name := range t.rooms {
		names = append(names, name)
	}
	slices.Sort(names)

	cold, hot := names[0], names[0]
	for _, name := range names[1:] {
		if t.rooms[name] < t.rooms[cold] {
			cold = name
		}
		if t.rooms[name] > t.rooms[hot] {
			hot = name
		}
	}
	return reading(cold, t.rooms[cold]), reading(hot, t.rooms[hot])
}

func reading(room string, celsius float64) string {
	return room + " at " + strconv.FormatFloat(celsius, 'f', -1, 64) + " Celsius"
}

// RoomName turns a thermometer topic into a spoken room name:
// "nh/temperature/G5LivingRoom-LLAP" becomes "The Living Room".
func RoomName(topic string) string {
	s := strings.TrimPrefix(topic, TemperaturePrefix)
	s = strings.ReplaceAll(s, "-LLAP", "")
	s = strings.TrimPrefix(s, "G5")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	s = separatorRx.ReplaceAllString(s, " ")
	s = capitalRx.ReplaceAllString(s, " $0")
	s = whitespaceRx.ReplaceAllString(s, " ")
	return "The " + strings.TrimSpace(s)
}

// Describe puts a temperature into words.
func Describe(celsius float64) string {
	switch {
	case celsius < 5:
		return "freezing"
	case celsius < 10:
		return "cold"
	case celsius < 15:
		return "chilly"
	case celsius < 20:
		return "nice"
	case celsius < 25:
		return "warm"
	default:
		return "hot"
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
