package pos

import (
	"fmt"
	"time"

	"warungpos/backend/internal/domain"
)

// registerStateMachine cycles between exactly two states, CLOSED and OPEN.
// Sales are only accepted while open.
type registerStateMachine struct {
	state domain.RegisterState
}

func newRegisterStateMachine(state domain.RegisterState) *registerStateMachine {
	return &registerStateMachine{state: state}
}

func (r *registerStateMachine) State() domain.RegisterState {
	return r.state
}

func (r *registerStateMachine) IsOpen() bool {
	return r.state.IsOpen
}

func (r *registerStateMachine) Open(openingBalanceCents int64, scheduledCloseTime string) error {
	if r.state.IsOpen {
		return ErrRegisterOpen
	}
	if openingBalanceCents < 0 {
		return ErrNegativeOpeningBalance
	}
	if _, err := time.Parse("15:04", scheduledCloseTime); err != nil {
		return fmt.Errorf("%w: closing time must be HH:MM, got %q", ErrInvalidRequest, scheduledCloseTime)
	}

	r.state = domain.RegisterState{
		IsOpen:              true,
		OpeningBalanceCents: openingBalanceCents,
		ScheduledCloseTime:  scheduledCloseTime,
	}
	return nil
}

// Close transitions OPEN -> CLOSED and returns the shift summary computed
// from the supplied sales totals. The opening balance is retained in the
// state for the next open's audit trail readers but the flag flips off.
func (r *registerStateMachine) Close(trigger string, salesCount int, totalSalesCents int64) (domain.RegisterCloseSummary, error) {
	if !r.state.IsOpen {
		return domain.RegisterCloseSummary{}, ErrRegisterClosed
	}

	summary := domain.RegisterCloseSummary{
		SalesCount:          salesCount,
		TotalSalesCents:     totalSalesCents,
		OpeningBalanceCents: r.state.OpeningBalanceCents,
		FinalBalanceCents:   r.state.OpeningBalanceCents + totalSalesCents,
		Trigger:             trigger,
	}
	r.state.IsOpen = false
	return summary, nil
}

// CloseDue reports whether the automatic trigger should fire for the given
// wall-clock time. The open check runs before the time comparison: once a
// close within the scheduled minute has flipped the state, every later tick
// in that minute sees a closed register and skips. No extra debounce flag is
// needed.
func (r *registerStateMachine) CloseDue(now time.Time) bool {
	if !r.state.IsOpen {
		return false
	}
	return now.Format("15:04") == r.state.ScheduledCloseTime
}
