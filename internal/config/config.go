// Package config loads the station setup from a setup.env file, the process
// environment and an optional YAML dispenser layout.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"petrolstation/internal/fuel"
)

// Band is an inclusive range of delays sampled uniformly.
type Band struct {
	Min time.Duration
	Max time.Duration
}

// DispenserSpec declares one dispenser. Declaration order is matching precedence.
type DispenserSpec struct {
	Name string    `yaml:"name"`
	Kind fuel.Kind `yaml:"kind"`
}

// Layout is the YAML dispenser layout file.
type Layout struct {
	Dispensers []DispenserSpec `yaml:"dispensers"`
}

// Config configures a simulation run
type Config struct {
	// Inventory
	Capacity          int
	Levels            map[fuel.Kind]int
	LowThreshold      int
	CriticalThreshold int

	// Clock and arrivals
	StartHour    int
	HourInterval time.Duration
	DayStart     int
	DayEnd       int
	DayArrival   Band
	NightArrival Band
	CarCount     int

	// Service
	RequestMin  int
	RequestMax  int
	FuelRate    int
	FuelUnit    time.Duration
	PaymentTime time.Duration

	// Dispatch and replenishment
	TankerTransit   time.Duration
	CriticalBackoff time.Duration
	MatchRetry      time.Duration

	Dispensers []DispenserSpec

	// Process
	EventBuffer int
	LogLevel    string
	HTTPAddr    string
	ManualRate  float64
	Seed        int64
}

// DefaultLayout is the three dispenser station: gasoline, diesel, universal.
func DefaultLayout() []DispenserSpec {
	return []DispenserSpec{
		{Name: "Dispenser 1 (G)", Kind: fuel.Gasoline},
		{Name: "Dispenser 2 (D)", Kind: fuel.Diesel},
		{Name: "Dispenser 3 (U)", Kind: fuel.Universal},
	}
}

// Default returns the reference station timing and sizes.
func Default() Config {
	return Config{
		Capacity: 500,
		Levels: map[fuel.Kind]int{
			fuel.Gasoline: 200,
			fuel.Diesel:   200,
			fuel.LPG:      150,
		},
		LowThreshold:      70,
		CriticalThreshold: 15,
		StartHour:         8,
		HourInterval:      8 * time.Second,
		DayStart:          7,
		DayEnd:            22,
		DayArrival:        Band{Min: 2 * time.Second, Max: 4 * time.Second},
		NightArrival:      Band{Min: 7 * time.Second, Max: 12 * time.Second},
		RequestMin:        35,
		RequestMax:        85,
		FuelRate:          12,
		FuelUnit:          time.Second,
		PaymentTime:       1200 * time.Millisecond,
		TankerTransit:     6 * time.Second,
		CriticalBackoff:   2 * time.Second,
		MatchRetry:        500 * time.Millisecond,
		Dispensers:        DefaultLayout(),
		EventBuffer:       256,
		LogLevel:          "info",
		HTTPAddr:          ":8080",
		ManualRate:        1,
	}
}

// Load reads envFile (if given) and the process environment on top of the
// defaults. Process variables win over the file, as with godotenv.Load.
func Load(envFile string) (Config, error) {
	fileVars := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		if err != nil {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
		fileVars = vars
	}
	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	})
}

// FromLookup builds a Config from key lookups, keeping defaults for missing keys.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	r := &reader{lookup: lookup}

	c.Capacity = r.intVar("TANK_CAPACITY", c.Capacity)
	c.Levels[fuel.Gasoline] = r.intVar("GASOLINE_LEVEL", c.Levels[fuel.Gasoline])
	c.Levels[fuel.Diesel] = r.intVar("DIESEL_LEVEL", c.Levels[fuel.Diesel])
	c.Levels[fuel.LPG] = r.intVar("LPG_LEVEL", c.Levels[fuel.LPG])
	c.LowThreshold = r.intVar("LOW_THRESHOLD", c.LowThreshold)
	c.CriticalThreshold = r.intVar("CRITICAL_THRESHOLD", c.CriticalThreshold)
	// clock and arrivals
	c.StartHour = r.intVar("START_HOUR", c.StartHour)
	c.HourInterval = r.durationVar("HOUR_INTERVAL", c.HourInterval)
	c.DayStart = r.intVar("DAY_START", c.DayStart)
	c.DayEnd = r.intVar("DAY_END", c.DayEnd)
	c.DayArrival.Min = r.durationVar("DAY_ARRIVAL_MIN", c.DayArrival.Min)
	c.DayArrival.Max = r.durationVar("DAY_ARRIVAL_MAX", c.DayArrival.Max)
	c.NightArrival.Min = r.durationVar("NIGHT_ARRIVAL_MIN", c.NightArrival.Min)
	c.NightArrival.Max = r.durationVar("NIGHT_ARRIVAL_MAX", c.NightArrival.Max)
	c.CarCount = r.intVar("CAR_COUNT", c.CarCount)
	// service
	c.RequestMin = r.intVar("REQUEST_MIN", c.RequestMin)
	c.RequestMax = r.intVar("REQUEST_MAX", c.RequestMax)
	c.FuelRate = r.intVar("FUEL_RATE", c.FuelRate)
	c.FuelUnit = r.durationVar("FUEL_UNIT", c.FuelUnit)
	c.PaymentTime = r.durationVar("PAYMENT_TIME", c.PaymentTime)
	// dispatch
	c.TankerTransit = r.durationVar("TANKER_TRANSIT", c.TankerTransit)
	c.CriticalBackoff = r.durationVar("CRITICAL_BACKOFF", c.CriticalBackoff)
	c.MatchRetry = r.durationVar("MATCH_RETRY", c.MatchRetry)
	// process
	c.EventBuffer = r.intVar("EVENT_BUFFER", c.EventBuffer)
	c.LogLevel = r.stringVar("LOG_LEVEL", c.LogLevel)
	c.HTTPAddr = r.stringVar("HTTP_ADDR", c.HTTPAddr)
	c.ManualRate = r.floatVar("MANUAL_RATE", c.ManualRate)
	c.Seed = int64(r.intVar("SEED", int(c.Seed)))

	if r.err != nil {
		return Config{}, r.err
	}

	if layout := r.stringVar("LAYOUT_FILE", ""); layout != "" {
		dispensers, err := LoadLayout(layout)
		if err != nil {
			return Config{}, err
		}
		c.Dispensers = dispensers
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadLayout reads a YAML dispenser layout file.
func LoadLayout(path string) ([]DispenserSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout %s: %w", path, err)
	}
	return ParseLayout(raw)
}

// ParseLayout decodes a YAML dispenser layout.
func ParseLayout(raw []byte) ([]DispenserSpec, error) {
	var layout Layout
	if err := yaml.UnmarshalStrict(raw, &layout); err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}
	for i, d := range layout.Dispensers {
		tag, err := fuel.ParseTag(string(d.Kind))
		if err != nil {
			return nil, fmt.Errorf("dispenser %d: %w", i+1, err)
		}
		layout.Dispensers[i].Kind = tag
		if d.Name == "" {
			layout.Dispensers[i].Name = fmt.Sprintf("Dispenser %d", i+1)
		}
	}
	return layout.Dispensers, nil
}

// Validate checks that a station built from c can make progress.
func (c Config) Validate() error {
	var errs []error
	if c.Capacity <= 0 {
		errs = append(errs, errors.New("tank capacity must be positive"))
	}
	for _, k := range fuel.Kinds {
		if lvl := c.Levels[k]; lvl < 0 || lvl > c.Capacity {
			errs = append(errs, fmt.Errorf("%s level %d outside [0, %d]", k, lvl, c.Capacity))
		}
	}
	if c.CriticalThreshold < 0 || c.CriticalThreshold > c.LowThreshold || c.LowThreshold > c.Capacity {
		errs = append(errs, fmt.Errorf("thresholds must satisfy 0 <= critical (%d) <= low (%d) <= capacity (%d)",
			c.CriticalThreshold, c.LowThreshold, c.Capacity))
	}
	if c.StartHour < 0 || c.StartHour > 23 || c.DayStart < 0 || c.DayEnd > 24 || c.DayStart > c.DayEnd {
		errs = append(errs, errors.New("hours must satisfy 0 <= day start <= day end <= 24 and start hour in [0, 23]"))
	}
	for name, b := range map[string]Band{"day arrival": c.DayArrival, "night arrival": c.NightArrival} {
		if b.Min <= 0 || b.Min > b.Max {
			errs = append(errs, fmt.Errorf("%s band [%s, %s] is invalid", name, b.Min, b.Max))
		}
	}
	if c.RequestMin < 0 || c.RequestMin > c.RequestMax {
		errs = append(errs, fmt.Errorf("request band [%d, %d] is invalid", c.RequestMin, c.RequestMax))
	}
	if c.FuelRate <= 0 {
		errs = append(errs, errors.New("fuel rate must be positive"))
	}
	for name, d := range map[string]time.Duration{
		"hour interval":    c.HourInterval,
		"fuel unit":        c.FuelUnit,
		"payment time":     c.PaymentTime,
		"tanker transit":   c.TankerTransit,
		"critical backoff": c.CriticalBackoff,
		"match retry":      c.MatchRetry,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.CarCount < 0 {
		errs = append(errs, errors.New("car count must not be negative"))
	}
	errs = append(errs, validateLayout(c.Dispensers)...)
	return errors.Join(errs...)
}

func validateLayout(dispensers []DispenserSpec) []error {
	if len(dispensers) == 0 {
		return []error{errors.New("layout has no dispensers")}
	}
	var errs []error
	for _, k := range fuel.Kinds {
		served := false
		for _, d := range dispensers {
			if d.Kind.Accepts(k) {
				served = true
				break
			}
		}
		if !served {
			errs = append(errs, fmt.Errorf("no dispenser serves %s", k))
		}
	}
	return errs
}

// Utilities

// reader parses environment values, keeping the first error
type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) raw(key string) (string, bool) {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *reader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("environment variable %s: %w", key, err)
	}
}

// intVar loads a variable as an integer
func (r *reader) intVar(key string, def int) int {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return n
}

func (r *reader) floatVar(key string, def float64) float64 {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return f
}

// durationVar accepts Go durations ("1200ms") or a bare number of milliseconds
func (r *reader) durationVar(key string, def time.Duration) time.Duration {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return d
}

func (r *reader) stringVar(key string, def string) string {
	if v, ok := r.raw(key); ok {
		return v
	}
	return def
}
