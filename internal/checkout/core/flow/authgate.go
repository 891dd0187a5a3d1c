package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/readcity/checkout/internal/checkout/core/domain"
)

// A guest may traverse the informational steps freely; only the terminal
// payment action demands an authenticated identity (enforced in Submit).
// Resume is the other half of the gate: after the login redirect it folds
// the guest cart into the account and continues from the persisted step.

// Resume continues a parked session after authentication. It verifies
// the session token, merges the guest cart into the account exactly once,
// and restores the persisted draft and step — the buyer lands back on the
// step they left, with everything they typed intact.
func (e *Engine) Resume(ctx context.Context, sessionID, sessionToken string) (*State, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	accountID, ok := e.authenticate(ctx, sessionToken)
	if !ok {
		return nil, domain.NewAuthFailure("Sign in to resume checkout")
	}
	s.accountID = accountID

	// The transfer is an explicit, once-per-session operation, not a
	// side effect of rendering: re-resuming (double redirect, refresh on
	// the return URL) must not merge twice.
	if !s.transferred && s.guestID != accountID {
		if err := e.cart.TransferGuestCart(ctx, s.guestID, accountID); err != nil {
			return nil, domain.NewNetworkFailure(fmt.Errorf("flow: transfer guest cart: %w", err))
		}
		s.transferred = true
		s.ownerID = accountID
		slog.InfoContext(ctx, "guest cart transferred",
			"session_id", s.id, "account_id", accountID)
	}

	step, err := e.store.LoadStep(ctx, s.id)
	if err == nil && step != "" {
		s.current = step
	}

	items, c, draft, err := e.loadAll(ctx, s)
	if err != nil {
		return nil, err
	}
	steps := domain.BuildSteps(c)
	s.current = domain.ClampStep(steps, s.current)
	s.rederiveFurthest(draft, steps, e.validationContext(s, c))
	// rederiveFurthest may pull current back if the restored draft no
	// longer validates the path to it; keep the persisted step anyway —
	// it was reached legitimately before the redirect.
	s.current = domain.ClampStep(steps, step)
	s.advanceFurthest(steps, s.current)

	return e.snapshotLocked(ctx, s, items, c, draft), nil
}
