// Package events carries station notifications to observers. Publishing never
// blocks the simulation: a subscriber that falls behind loses events.
package events

import (
	"time"

	"petrolstation/internal/fuel"
)

// Event is a notification published by the station core.
type Event interface {
	Type() string
}

// DispenserStatus is the busy state shown for a dispenser.
type DispenserStatus string

const (
	Free    DispenserStatus = "free"
	Fueling DispenserStatus = "fueling"
)

// Category groups LogEvent messages.
type Category string

const (
	Tanker  Category = "tanker"
	Alert   Category = "alert"
	Fuel    Category = "fueling"
	Payment Category = "payment"
)

// InventoryChanged reports a new level for one fuel kind.
type InventoryChanged struct {
	Kind     fuel.Kind `json:"kind"`
	Level    int       `json:"level"`
	Capacity int       `json:"capacity"`
}

// HourChanged reports the simulated hour after the clock advanced.
type HourChanged struct {
	Hour int `json:"hour"`
}

// DispenserStatusChanged reports a dispenser becoming free, starting a
// session or advancing its fueling progress (0-100).
type DispenserStatusChanged struct {
	DispenserID int             `json:"dispenserId"`
	Dispenser   string          `json:"dispenser"`
	Status      DispenserStatus `json:"status"`
	VehicleID   int             `json:"vehicleId,omitempty"`
	Kind        fuel.Kind       `json:"kind,omitempty"`
	SessionID   string          `json:"sessionId,omitempty"`
	Progress    int             `json:"progress"`
}

// ServedCountChanged reports the served-vehicle counter.
type ServedCountChanged struct {
	Count int `json:"count"`
}

// LogEvent is a human readable message for the station log.
type LogEvent struct {
	Message  string    `json:"message"`
	Category Category  `json:"category"`
	At       time.Time `json:"at"`
}

// TankerStateChanged reports a replenishment lifecycle transition.
type TankerStateChanged struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ServiceCompleted carries the record of a vehicle that paid and left.
type ServiceCompleted struct {
	SessionID string    `json:"sessionId"`
	VehicleID int       `json:"vehicleId"`
	Kind      fuel.Kind `json:"kind"`
	Dispenser string    `json:"dispenser"`
	Requested int       `json:"requested"`
	Dispensed int       `json:"dispensed"`
	Arrived   time.Time `json:"arrived"`
	Assigned  time.Time `json:"assigned"`
	Fueled    time.Time `json:"fueled"`
	Queued    time.Time `json:"queued"`
	Paying    time.Time `json:"paying"`
	Paid      time.Time `json:"paid"`
}

func (InventoryChanged) Type() string       { return "inventory" }
func (HourChanged) Type() string            { return "hour" }
func (DispenserStatusChanged) Type() string { return "dispenser" }
func (ServedCountChanged) Type() string     { return "served" }
func (LogEvent) Type() string               { return "log" }
func (TankerStateChanged) Type() string     { return "tanker" }
func (ServiceCompleted) Type() string       { return "service" }

// StandWait is the time between arrival and dispenser assignment.
func (s ServiceCompleted) StandWait() time.Duration { return s.Assigned.Sub(s.Arrived) }

// RegisterWait is the time spent in line for the cashier.
func (s ServiceCompleted) RegisterWait() time.Duration { return s.Paying.Sub(s.Queued) }

// Payment is the time spent at the cashier.
func (s ServiceCompleted) Payment() time.Duration { return s.Paid.Sub(s.Paying) }

// Total is the time from arrival to payment.
func (s ServiceCompleted) Total() time.Duration { return s.Paid.Sub(s.Arrived) }

// NewLog stamps a log message with the current time.
func NewLog(c Category, msg string) LogEvent {
	return LogEvent{Message: msg, Category: c, At: time.Now()}
}
