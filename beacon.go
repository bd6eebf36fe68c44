package aoa

import (
	"context"

	"github.com/pkg/errors"
)

// Beacon advertises a device name with legacy, non-connectable
// advertising.
type Beacon struct {
	DeviceName  string
	IntervalMin uint16
	IntervalMax uint16
}

// NewBeacon returns a beacon advertising name at the fast interval.
func NewBeacon(name string) *Beacon {
	return &Beacon{
		DeviceName:  name,
		IntervalMin: AdvFastIntervalMin2,
		IntervalMax: AdvFastIntervalMax2,
	}
}

// Name returns "beacon".
func (b *Beacon) Name() string { return "beacon" }

// AdvertisingData returns flags followed by the complete local name.
func (b *Beacon) AdvertisingData() ([]byte, error) {
	p := NewAdvPacket()
	if err := p.AppendFlags(FlagGeneralDiscoverable | FlagLEOnly); err != nil {
		return nil, err
	}
	if err := p.AppendName(b.DeviceName); err != nil {
		return nil, errors.Wrapf(err, "name %q", b.DeviceName)
	}
	return p.Bytes(), nil
}

// Start starts advertising.
func (b *Beacon) Start(ctx context.Context, s *Session) error {
	ad, err := b.AdvertisingData()
	if err != nil {
		return err
	}
	p := AdvParams{IntervalMin: b.IntervalMin, IntervalMax: b.IntervalMax}
	q := Sequence{
		{Name: "Advertising successfully started", Op: "start advertising", Do: func(ctx context.Context) error {
			return s.Stack().StartAdvertising(ctx, p, ad, nil)
		}},
	}
	if err := q.Run(ctx, s.Log()); err != nil {
		return err
	}
	return s.SetState(StateAdvertising)
}

// HandleEvent ignores every event.
func (b *Beacon) HandleEvent(ctx context.Context, s *Session, ev Event) error { return nil }
