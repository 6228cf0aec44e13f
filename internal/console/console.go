// Package console prints station events to a terminal.
package console

import (
	"context"
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"petrolstation/internal/events"
)

// lowMark is the level below which a tank is shown as running dry
const lowMark = 50

// Observer writes a line per interesting event. Progress ticks are skipped.
type Observer struct {
	w       io.Writer
	au      aurora.Aurora
	printer *message.Printer
}

// NewObserver creates an observer writing to w, colored when color is set.
func NewObserver(w io.Writer, color bool) *Observer {
	return &Observer{
		w:       w,
		au:      aurora.NewAurora(color),
		printer: message.NewPrinter(language.AmericanEnglish),
	}
}

// Run prints events from sub until ctx is done or the subscription closes.
func (o *Observer) Run(ctx context.Context, sub *events.Subscription) error {
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if line := o.Format(ev); line != "" {
				if _, err := fmt.Fprintln(o.w, line); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Format renders ev as one line, or "" for events not worth a line.
func (o *Observer) Format(ev events.Event) string {
	switch e := ev.(type) {
	case events.LogEvent:
		stamp := e.At.Format("15:04:05")
		return fmt.Sprintf("[%s] %s", stamp, o.category(e.Category, e.Message))
	case events.HourChanged:
		return o.au.Bold(fmt.Sprintf("%02d:00", e.Hour)).String()
	case events.InventoryChanged:
		line := o.printer.Sprintf("%s: %d / %d L", e.Kind, e.Level, e.Capacity)
		if e.Level < lowMark {
			return o.au.Red(line).String()
		}
		return line
	case events.DispenserStatusChanged:
		if e.Status == events.Fueling && e.Progress == 0 {
			return o.au.Brown(fmt.Sprintf("%s: fueling vehicle %d (%s)", e.Dispenser, e.VehicleID, e.Kind)).String()
		}
	case events.ServedCountChanged:
		if e.Count > 0 {
			return o.au.Bold(o.printer.Sprintf("Served: %d", e.Count)).String()
		}
	}
	return ""
}

func (o *Observer) category(c events.Category, msg string) string {
	switch c {
	case events.Tanker:
		return o.au.Cyan(msg).String()
	case events.Alert:
		return o.au.Red(msg).Bold().String()
	case events.Fuel:
		return o.au.Green(msg).String()
	case events.Payment:
		return o.au.Magenta(msg).String()
	}
	return msg
}
