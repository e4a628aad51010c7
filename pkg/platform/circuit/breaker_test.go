package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
	clock time.Time
	b     *Breaker
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.clock = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	s.b = New("labels",
		WithFailureThreshold(2),
		WithSuccessThreshold(2),
		WithCooldown(time.Minute),
		WithClock(func() time.Time { return s.clock }),
	)
}

func (s *BreakerSuite) TestOpensAfterConsecutiveFailures() {
	s.False(s.b.RecordFailure())
	s.True(s.b.Allow())
	s.True(s.b.RecordFailure())
	s.Equal(StateOpen, s.b.State())
	s.False(s.b.Allow())
}

func (s *BreakerSuite) TestSuccessResetsFailureCount() {
	s.b.RecordFailure()
	s.b.RecordSuccess()
	s.False(s.b.RecordFailure())
	s.Equal(StateClosed, s.b.State())
}

func (s *BreakerSuite) TestHalfOpenAfterCooldown() {
	s.b.RecordFailure()
	s.b.RecordFailure()

	s.clock = s.clock.Add(59 * time.Second)
	s.Equal(StateOpen, s.b.State())

	s.clock = s.clock.Add(time.Second)
	s.Equal(StateHalfOpen, s.b.State())
	s.True(s.b.Allow())
}

func (s *BreakerSuite) TestHalfOpenClosesAfterSuccesses() {
	s.b.RecordFailure()
	s.b.RecordFailure()
	s.clock = s.clock.Add(time.Minute)

	s.False(s.b.RecordSuccess())
	s.True(s.b.RecordSuccess())
	s.Equal(StateClosed, s.b.State())
}

func (s *BreakerSuite) TestHalfOpenFailureReopens() {
	s.b.RecordFailure()
	s.b.RecordFailure()
	s.clock = s.clock.Add(time.Minute)

	s.True(s.b.RecordFailure())
	s.Equal(StateOpen, s.b.State())
	s.Equal("open", s.b.State().String())
}

func (s *BreakerSuite) TestReset() {
	s.b.RecordFailure()
	s.b.RecordFailure()
	s.b.Reset()
	s.Equal(StateClosed, s.b.State())
	s.Equal("labels", s.b.Name())
}
