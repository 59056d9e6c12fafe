package syncengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectStatus(t *testing.T) {
	cases := []struct {
		name string
		in   StatusInput
		want Status
	}{
		{"first open, no cache", StatusInput{Phase: PhaseHydrating}, StatusConnecting},
		{"revisit paints from cache", StatusInput{Phase: PhaseHydrating, HasSnapshot: true}, StatusCached},
		{"live and clean", StatusInput{Phase: PhaseLive, HasSnapshot: true}, StatusSaved},
		{"live with unacked edits", StatusInput{Phase: PhaseLive, HasSnapshot: true, Pending: 2}, StatusSaving},
		{"edits buffered across reconnect", StatusInput{Phase: PhaseReconnecting, Pending: 1}, StatusSaving},
		{"reconnecting, nothing pending", StatusInput{Phase: PhaseReconnecting}, StatusConnecting},
		{"retries exhausted", StatusInput{Phase: PhaseReconnecting, RetriesExhausted: true}, StatusDisconnected},
		{"degraded store is not a disconnect", StatusInput{Phase: PhaseLive, HasSnapshot: true, StoreDegraded: true}, StatusNoOffline},
		{"saving wins over degraded store", StatusInput{Phase: PhaseLive, Pending: 1, StoreDegraded: true}, StatusSaving},
		{"rehydration failure wins over everything", StatusInput{Phase: PhaseLive, HasSnapshot: true, RehydrationFailed: true}, StatusError},
		{"closed", StatusInput{Phase: PhaseClosed}, StatusClosed},
		{"closed is terminal even with exhausted retries", StatusInput{Phase: PhaseClosed, RetriesExhausted: true}, StatusClosed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ProjectStatus(tc.in))
		})
	}
}

func TestProjectStatusIsPure(t *testing.T) {
	in := StatusInput{Phase: PhaseLive, Pending: 1}
	assert.Equal(t, ProjectStatus(in), ProjectStatus(in))
}
