package aoa

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSimInterval is how often the simulator produces an angle.
const DefaultSimInterval = 2 * time.Second

var processStart = time.Now()

// Uptime returns the time since the process started.
func Uptime() time.Duration { return time.Since(processStart) }

// Simulator produces pseudo-random angle-of-arrival readings without a
// radio.
type Simulator struct {
	Interval time.Duration
	Sealer   *Sealer // optional

	rnd *rand.Rand
	log *logrus.Entry
}

// NewSimulator returns a simulator seeded with seed. Equal seeds give
// equal angle sequences.
func NewSimulator(seed int64, log *logrus.Entry) *Simulator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Simulator{
		Interval: DefaultSimInterval,
		rnd:      rand.New(rand.NewSource(seed)),
		log:      log.WithField("app", "aoa_sim"),
	}
}

// Angle returns the next simulated angle in degrees, in [0, 360).
func (s *Simulator) Angle() int { return s.rnd.Intn(360) }

// Run logs one angle per interval until ctx is done.
func (s *Simulator) Run(ctx context.Context) error {
	if s.Sealer == nil {
		s.log.Info("NOTE: Encryption is disabled for this build.")
	}
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		if err := s.emit(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (s *Simulator) emit() error {
	angle := s.Angle()
	log := s.log.WithField("angle", angle)
	if s.Sealer == nil {
		log.Infof("Simulated AoA: %d degrees", angle)
		return nil
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(angle))
	sealed, err := s.Sealer.Seal(b[:])
	if err != nil {
		return err
	}
	log.WithField("sealed", hex.EncodeToString(sealed)).Infof("Simulated AoA: %d degrees", angle)
	return nil
}
