package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// oauthManagerWithToken returns a manager holding an OAuth token that
// expires lifetime after the clock's start.
func oauthManagerWithToken(clock *fakeClock, lifetime time.Duration) *CredentialManager {
	m := NewCredentialManager(recordingFactory, WithClock(clock.Now))
	cred := OAuth("c", "s", "https://app.example.com/cb")
	m.credential = &cred
	m.token = &TokenState{AccessKey: "a", RefreshToken: "r", ExpiresAt: clock.Now().Add(lifetime)}
	m.transport = recordingFactory(nil)
	return m
}

// TestNeedsRefreshProperties verifies the refresh window for arbitrary
// token lifetimes and elapsed times.
func TestNeedsRefreshProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// Property: an OAuth token needs refresh exactly when fewer than five
	// minutes of its lifetime remain
	properties.Property("needsRefresh iff now >= expiresAt - window", prop.ForAll(
		func(lifetimeSec, elapsedSec int64) bool {
			clock := newFakeClock()
			lifetime := time.Duration(lifetimeSec) * time.Second
			m := oauthManagerWithToken(clock, lifetime)

			clock.Advance(time.Duration(elapsedSec) * time.Second)
			want := time.Duration(elapsedSec)*time.Second >= lifetime-RefreshWindow
			return m.NeedsRefresh() == want
		},
		gen.Int64Range(1, 7200),
		gen.Int64Range(0, 10800),
	))

	// Property: a static key never needs refresh
	properties.Property("static key never needs refresh", prop.ForAll(
		func(elapsedHours int64) bool {
			clock := newFakeClock()
			m := NewCredentialManager(recordingFactory, WithClock(clock.Now))
			if err := m.Initialize(StaticKey("lin_api_key")); err != nil {
				return false
			}
			clock.Advance(time.Duration(elapsedHours) * time.Hour)
			return !m.NeedsRefresh() && m.IsAuthenticated()
		},
		gen.Int64Range(0, 24*365*50),
	))

	properties.TestingRun(t)
}

// TestAuthorizationStateProperties verifies that issued states never repeat.
func TestAuthorizationStateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("states are unique per call", prop.ForAll(
		func(n int) bool {
			m := NewCredentialManager(recordingFactory)
			if err := m.Initialize(OAuth("c", "s", "https://app.example.com/cb")); err != nil {
				return false
			}
			seen := make(map[string]bool, n)
			for i := 0; i < n; i++ {
				_, state, err := m.AuthorizationURL()
				if err != nil || seen[state] {
					return false
				}
				seen[state] = true
			}
			return m.Status().PendingStates == n
		},
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}

// TestMapErrorProperties verifies that every error maps to a negative code.
func TestMapErrorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	mapper := NewResponseMapper()

	sentinels := []error{
		ErrInvalidConfig, ErrInvalidParams, ErrNotInitialized, ErrNotAuthenticated,
		ErrTokenExchangeFailed, ErrOperationFailed, ErrCompositeOperationFailed,
		ErrTransport, ErrUnknownTool,
	}

	properties.Property("mapped errors are negative and flagged", prop.ForAll(
		func(i int, msg string) bool {
			err := errors.Join(sentinels[i], errors.New(msg))
			mapped := mapper.MapError(err)
			resp := mapper.MapErrorResponse(err)
			return mapped.Code < 0 && resp.IsError && len(resp.Content) == 2
		},
		gen.IntRange(0, len(sentinels)-1),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
