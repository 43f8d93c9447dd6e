package service

import (
	"sync"
	"testing"
	"time"

	"github.com/fairmarket/identity/internal/identity/domain"
	"github.com/stretchr/testify/require"
)

func TestCredentialStore(t *testing.T) {
	t.Parallel()

	t.Run("empty store reports no credential", func(t *testing.T) {
		s := NewCredentialStore()

		_, ok := s.Get()
		require.False(t, ok)
		require.True(t, s.FetchedAt().IsZero())
	})

	t.Run("set then get round-trips the whole value", func(t *testing.T) {
		s := NewCredentialStore()
		cred := domain.Credential{
			AccessToken: "tok",
			IssuedAt:    time.Now().Add(-time.Minute),
			ExpiresAt:   time.Now().Add(time.Hour),
			Claims:      domain.CredentialClaims{Subject: "u1", Role: domain.RoleAdmin},
		}

		s.Set(cred)

		got, ok := s.Get()
		require.True(t, ok)
		require.Equal(t, cred, got)
		require.False(t, s.FetchedAt().IsZero())
	})

	t.Run("set replaces the previous slot entirely", func(t *testing.T) {
		s := NewCredentialStore()
		s.Set(domain.Credential{AccessToken: "old", Claims: domain.CredentialClaims{SID: "sid"}})
		s.Set(domain.Credential{AccessToken: "new"})

		got, ok := s.Get()
		require.True(t, ok)
		require.Equal(t, "new", got.AccessToken)
		require.Empty(t, got.Claims.SID, "stale claim fields must not leak through")
	})

	t.Run("clear drops the credential", func(t *testing.T) {
		s := NewCredentialStore()
		s.Set(domain.Credential{AccessToken: "tok"})
		s.Clear()

		_, ok := s.Get()
		require.False(t, ok)
	})

	t.Run("concurrent readers and writers", func(t *testing.T) {
		s := NewCredentialStore()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					s.Set(domain.Credential{AccessToken: "tok"})
				}
			}()
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					if cred, ok := s.Get(); ok {
						require.Equal(t, "tok", cred.AccessToken)
					}
				}
			}()
		}
		wg.Wait()
	})
}
