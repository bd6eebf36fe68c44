package aoa

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// TxMode selects how a Transmitter configures its advertising set.
type TxMode int

const (
	// TxBasic configures CTE parameters on an extended set and starts
	// it.
	TxBasic TxMode = iota
	// TxPeriodic also runs periodic advertising carrying the name and
	// enables CTE transmission on it.
	TxPeriodic
)

func (m TxMode) String() string {
	switch m {
	case TxBasic:
		return "basic"
	case TxPeriodic:
		return "periodic"
	}
	return fmt.Sprintf("TxMode(%d)", int(m))
}

// ParseTxMode parses "basic" or "periodic".
func ParseTxMode(s string) (TxMode, error) {
	switch s {
	case "basic", "":
		return TxBasic, nil
	case "periodic":
		return TxPeriodic, nil
	}
	return 0, errors.Errorf("unknown transmitter mode %q", s)
}

// Heartbeat interval and message of a periodic transmitter.
const (
	TxHeartbeat    = 5 * time.Second
	TxHeartbeatMsg = "AoA TX running - CTE transmission active"
)

// Transmitter broadcasts Constant Tone Extensions from an extended
// advertising set.
type Transmitter struct {
	Mode       TxMode
	DeviceName string
	CTE        CTETxParams
	Adv        ExtAdvParams
	PerAdv     PerAdvParams
}

// NewTransmitter returns a transmitter in mode m with the CTE defaults of
// that mode.
func NewTransmitter(m TxMode, name string) *Transmitter {
	t := &Transmitter{
		Mode:       m,
		DeviceName: name,
		CTE:        CTETxParams{Length: 16, Type: CTETypeAoA, Count: 1},
		Adv:        DefaultExtAdvNConn,
		PerAdv:     PerAdvParams{IntervalMin: PerAdvMinInterval, IntervalMax: PerAdvMaxInterval},
	}
	if m == TxPeriodic {
		t.CTE.Length = MaxCTELength
	}
	return t
}

// Name returns "aoa_tx".
func (t *Transmitter) Name() string { return "aoa_tx" }

// Data returns the extended advertising data and, in periodic mode, the
// periodic advertising data.
func (t *Transmitter) Data() (ad, per []byte, err error) {
	p := NewExtAdvPacket()
	if err := p.AppendFlags(FlagGeneralDiscoverable | FlagLEOnly); err != nil {
		return nil, nil, err
	}
	if t.Mode == TxBasic {
		if err := p.AppendName(t.DeviceName); err != nil {
			return nil, nil, errors.Wrapf(err, "name %q", t.DeviceName)
		}
		return p.Bytes(), nil, nil
	}
	if err := p.AppendUUID16List(true, BatteryService); err != nil {
		return nil, nil, err
	}
	pp := NewExtAdvPacket()
	if err := pp.AppendName(t.DeviceName); err != nil {
		return nil, nil, errors.Wrapf(err, "name %q", t.DeviceName)
	}
	return p.Bytes(), pp.Bytes(), nil
}

// Sequence returns the configuration steps of the transmitter's mode.
func (t *Transmitter) Sequence(s *Session) (Sequence, error) {
	if err := t.CTE.Validate(); err != nil {
		return nil, err
	}
	ad, per, err := t.Data()
	if err != nil {
		return nil, err
	}
	st := s.Stack()
	var set AdvSet

	create := Step{Name: "Advertising set created", Op: "create advertising set", Do: func(ctx context.Context) error {
		var err error
		if set, err = st.CreateExtAdv(ctx, t.Adv); err != nil {
			return err
		}
		s.OwnAdvSet(set)
		return nil
	}}
	cteParams := Step{Name: fmt.Sprintf("CTE parameters set: len=%d, type=%s", t.CTE.Length, t.CTE.Type), Op: "set CTE parameters", Do: func(ctx context.Context) error {
		return st.SetCTETxParams(ctx, set, t.CTE)
	}}
	data := Step{Name: "Advertising data set", Op: "set advertising data", Do: func(ctx context.Context) error {
		return st.SetExtAdvData(ctx, set, ad)
	}}
	start := Step{Name: "Extended advertising started", Op: "start extended advertising", Do: func(ctx context.Context) error {
		return st.StartExtAdv(ctx, set, ExtAdvStart{})
	}}

	if t.Mode == TxBasic {
		return Sequence{create, cteParams, data, start}, nil
	}
	return Sequence{
		create,
		data,
		{Name: "Periodic advertising parameters set", Op: "set periodic advertising parameters", Do: func(ctx context.Context) error {
			return st.SetPerAdvParams(ctx, set, t.PerAdv)
		}},
		{Name: "Periodic advertising data set", Op: "set periodic advertising data", Do: func(ctx context.Context) error {
			return st.SetPerAdvData(ctx, set, per)
		}},
		cteParams,
		{Name: "CTE TX enabled", Op: "enable CTE TX", Do: func(ctx context.Context) error {
			return st.EnableCTETx(ctx, set)
		}},
		{Name: "Periodic advertising started", Op: "start periodic advertising", Do: func(ctx context.Context) error {
			return st.StartPerAdv(ctx, set)
		}},
		start,
	}, nil
}

// Start runs the configuration sequence.
func (t *Transmitter) Start(ctx context.Context, s *Session) error {
	q, err := t.Sequence(s)
	if err != nil {
		return err
	}
	if err := q.Run(ctx, s.Log()); err != nil {
		return err
	}
	if t.Mode == TxBasic {
		s.Log().Info("Extended advertising with CTE successfully started")
	} else {
		s.Log().Info("AoA TX successfully started - broadcasting CTEs")
	}
	return s.SetState(StateAdvertising)
}

// HandleEvent ignores every event.
func (t *Transmitter) HandleEvent(ctx context.Context, s *Session, ev Event) error { return nil }
