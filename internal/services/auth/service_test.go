package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/guildbot/internal/dependencies/mocks"
)

type ServiceSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	hash, err := HashToken("s3cret")
	s.Require().NoError(err)
	s.service = New(s.clock, Config{TokenHash: hash})
}

func (s *ServiceSuite) TestAuthenticateAcceptsToken() {
	session, err := s.service.Authenticate("s3cret")
	s.Require().NoError(err)

	s.Equal(s.clock.Now(), session.CreatedAt)
	s.Equal(s.clock.Now().Add(DefaultConfig().SessionDuration), session.ExpiresAt)
}

func (s *ServiceSuite) TestAuthenticateRejectsWrongToken() {
	_, err := s.service.Authenticate("guess")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestAuthenticateRejectsEmptyToken() {
	_, err := s.service.Authenticate("")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestAuthenticateReusesSession() {
	first, err := s.service.Authenticate("s3cret")
	s.Require().NoError(err)
	s.clock.Advance(time.Minute)

	second, err := s.service.Authenticate("s3cret")
	s.Require().NoError(err)
	s.Same(first, second)
}

func (s *ServiceSuite) TestExpiredSessionIsRechecked() {
	first, err := s.service.Authenticate("s3cret")
	s.Require().NoError(err)
	s.clock.Advance(2 * time.Hour)

	second, err := s.service.Authenticate("s3cret")
	s.Require().NoError(err)
	s.NotSame(first, second)
	s.Equal(s.clock.Now(), second.CreatedAt)
}

func (s *ServiceSuite) TestCleanExpiredSessions() {
	_, err := s.service.Authenticate("s3cret")
	s.Require().NoError(err)

	s.Equal(0, s.service.CleanExpiredSessions())
	s.clock.Advance(2 * time.Hour)
	s.Equal(1, s.service.CleanExpiredSessions())
}

func (s *ServiceSuite) TestDisabledWithoutHash() {
	svc := New(s.clock, DefaultConfig())

	s.False(svc.Enabled())
	_, err := svc.Authenticate("s3cret")
	s.ErrorIs(err, ErrAuthDisabled)
}
