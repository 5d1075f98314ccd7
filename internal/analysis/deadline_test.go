package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestDeadlineFiresAfterBudget(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDeadline(context.Background(), 20*time.Millisecond)
	defer d.Cancel()

	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatal("deadline did not fire")
	}
	assert.True(t, d.Expired())
	assert.ErrorIs(t, d.Context().Err(), context.DeadlineExceeded)
}

func TestDeadlineCancelIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDeadline(context.Background(), time.Hour)
	d.Cancel()
	d.Cancel()

	select {
	case <-d.Done():
	default:
		t.Fatal("cancel did not fire the deadline")
	}
	assert.False(t, d.Expired())
}

func TestDeadlineCancelAfterExpiry(t *testing.T) {
	d := NewDeadline(context.Background(), time.Millisecond)
	<-d.Done()
	assert.NotPanics(t, d.Cancel)
	assert.True(t, d.Expired())
}

func TestDeadlineFollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	d := NewDeadline(parent, time.Hour)
	defer d.Cancel()

	cancel()
	<-d.Done()
	assert.False(t, d.Expired())
	assert.ErrorIs(t, d.Context().Err(), context.Canceled)
}
