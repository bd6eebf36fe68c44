package aoa

import (
	"context"

	"github.com/sirupsen/logrus"
)

// DefaultTarget is the name of the transmitter a receiver looks for.
const DefaultTarget = "AoA_TX_Sim"

// Receiver scans for a named transmitter, synchronizes to its periodic
// advertising and enables CTE sampling on the sync.
type Receiver struct {
	Target      string
	Scan        ScanParams
	SyncTimeout uint16 // 10 ms units
	Skip        uint16
	CTE         CTERxParams

	matched bool
}

// NewReceiver returns a receiver looking for target with a passive scan.
func NewReceiver(target string) *Receiver {
	return &Receiver{
		Target:      target,
		Scan:        DefaultScanPassive,
		SyncTimeout: DefaultSyncTimeout,
		CTE:         DefaultCTERx,
	}
}

// Name returns "aoa_rx".
func (r *Receiver) Name() string { return "aoa_rx" }

// Matches reports whether ad carries a complete local name equal to the
// target.
func (r *Receiver) Matches(ad []byte) bool {
	name, ok := CompleteLocalName(ad)
	return ok && name == r.Target
}

// Start validates the CTE parameters and starts scanning.
func (r *Receiver) Start(ctx context.Context, s *Session) error {
	if err := r.CTE.Validate(); err != nil {
		return err
	}
	q := Sequence{
		{Name: "Scanning for " + r.Target + "...", Op: "start scan", Do: func(ctx context.Context) error {
			return s.Stack().StartScan(ctx, r.Scan)
		}},
	}
	if err := q.Run(ctx, s.Log()); err != nil {
		return err
	}
	return s.SetState(StateScanning)
}

// HandleEvent dispatches one stack event.
func (r *Receiver) HandleEvent(ctx context.Context, s *Session, ev Event) error {
	switch e := ev.(type) {
	case AdvReport:
		return r.handleReport(ctx, s, e)
	case SyncEstablished:
		return r.handleSynced(ctx, s, e)
	case PerAdvReport:
		s.Log().WithField("rssi", e.RSSI).Infof("Received periodic advertising data (len=%d)", len(e.Data))
	case SyncTerminated:
		s.Log().WithField("reason", e.Reason).Infof("Sync terminated (reason: %d)", e.Reason)
		if cur, ok := s.Sync(); ok && cur.Handle == e.Sync.Handle {
			s.ReleaseSync()
		}
		if err := s.SetState(StateTerminated); err != nil {
			return err
		}
		return ErrDone
	}
	return nil
}

func (r *Receiver) handleReport(ctx context.Context, s *Session, e AdvReport) error {
	if r.matched || s.State() != StateScanning || !r.Matches(e.Data) {
		return nil
	}
	r.matched = true
	log := s.Log().WithFields(logrus.Fields{"addr": e.Addr, "rssi": e.RSSI})
	log.Infof("Found %s, creating sync...", r.Target)

	q := Sequence{
		{Name: "Sync create: 0", Op: "create sync", Do: func(ctx context.Context) error {
			return s.Stack().CreateSync(ctx, SyncParams{
				Addr:     e.Addr,
				AddrType: e.AddrType,
				SID:      0,
				Skip:     r.Skip,
				Timeout:  r.SyncTimeout,
			})
		}},
		{Name: "Scan stopped", Op: "stop scan", Do: func(ctx context.Context) error {
			return s.Stack().StopScan(ctx)
		}},
	}
	return q.Run(ctx, log)
}

func (r *Receiver) handleSynced(ctx context.Context, s *Session, e SyncEstablished) error {
	if e.Status != 0 {
		s.Log().WithField("status", e.Status).Errorf("Sync failed (err %d)", e.Status)
		if err := s.SetState(StateTerminated); err != nil {
			return err
		}
		return ErrDone
	}
	s.OwnSync(e.Sync)
	if err := s.SetState(StateSynced); err != nil {
		return err
	}
	s.Log().WithField("sync", e.Sync.Handle).Info("Synced to periodic advertiser")
	err := s.Stack().EnableCTERx(ctx, e.Sync, r.CTE)
	s.Log().WithField("status", Status(err)).Infof("CTE RX enable: %d", Status(err))
	return err
}
