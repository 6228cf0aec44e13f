package station

import (
	"context"
	"time"
)

// CashRegister is the single point of sale. Holding its slot serializes
// every payment at the station.
type CashRegister struct {
	slot chan struct{}
	hold time.Duration
}

// NewCashRegister creates a register taking hold per payment.
func NewCashRegister(hold time.Duration) *CashRegister {
	return &CashRegister{slot: make(chan struct{}, 1), hold: hold}
}

// Pay waits for the register, keeps it for the payment time and runs settle
// before letting the next customer in. It returns when the customer reached
// the cashier.
func (cr *CashRegister) Pay(ctx context.Context, settle func()) (time.Time, error) {
	select {
	case cr.slot <- struct{}{}:
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	}
	defer func() { <-cr.slot }()
	paying := time.Now()

	if err := doSleeping(ctx, cr.hold); err != nil {
		return paying, err
	}
	settle()
	return paying, nil
}

// Busy reports whether a payment is in progress.
func (cr *CashRegister) Busy() bool {
	return len(cr.slot) == 1
}
