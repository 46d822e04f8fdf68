// ABOUTME: Tests for the in-memory session store
// ABOUTME: Covers lazy defaults, put/get roundtrip, and concurrent access

package flow

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessions_GetUnknownReturnsDefault(t *testing.T) {
	s := NewSessions()

	sess := s.Get("55119")

	assert.Equal(t, StepStart, sess.Step)
	assert.Empty(t, sess.Name)
	assert.Equal(t, 0, s.Len(), "Get must not insert")
}

func TestSessions_PutThenGet(t *testing.T) {
	s := NewSessions()

	s.Put("55119", Session{Step: StepAskService, Name: "Maria"})
	sess := s.Get("55119")

	assert.Equal(t, StepAskService, sess.Step)
	assert.Equal(t, "Maria", sess.Name)
	assert.Equal(t, 1, s.Len())
}

func TestSessions_IndependentUsers(t *testing.T) {
	s := NewSessions()

	s.Put("user-a", Session{Step: StepAskName})
	s.Put("user-b", Session{Step: StepSupportDescription, Name: "João"})

	assert.Equal(t, StepAskName, s.Get("user-a").Step)
	assert.Equal(t, StepSupportDescription, s.Get("user-b").Step)
}

func TestSessions_ConcurrentAccess(t *testing.T) {
	s := NewSessions()

	var wg sync.WaitGroup
	for i := range 20 {
		userID := "user-" + strconv.Itoa(i)
		wg.Go(func() {
			for range 50 {
				sess := s.Get(userID)
				sess.Step = StepAskService
				s.Put(userID, sess)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 20, s.Len())
}
