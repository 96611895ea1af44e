package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/linnemanlabs/darkwatch/internal/backend"
)

// ErrBudgetExhausted rejects a verification attempt once the remaining
// allowance is zero. The action is disabled preemptively; no call is made.
var ErrBudgetExhausted = errors.New("verification budget exhausted")

// VerifierService is the backend surface the gate needs.
type VerifierService interface {
	GetVerificationBudget(ctx context.Context) (*backend.VerificationBudget, error)
	VerifyVessel(ctx context.Context, vesselID int64, provider string) (*backend.VerificationResult, error)
}

// VerificationGate tracks the paid-lookup budget and blocks verification
// calls before they are attempted once remaining <= 0.
type VerificationGate struct {
	mu        sync.Mutex
	remaining int
	known     bool

	svc VerifierService
}

// NewVerificationGate creates a gate; call Refresh before the first verify.
func NewVerificationGate(svc VerifierService) *VerificationGate {
	return &VerificationGate{svc: svc}
}

// Refresh fetches the current budget from the backend.
func (g *VerificationGate) Refresh(ctx context.Context) (*backend.VerificationBudget, error) {
	b, err := g.svc.GetVerificationBudget(ctx)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.remaining = b.Remaining
	g.known = true
	g.mu.Unlock()
	return b, nil
}

// CanVerify reports whether the verify control should be enabled.
func (g *VerificationGate) CanVerify() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.known && g.remaining > 0
}

// Verify runs a registry verification if budget remains, decrementing the
// local count on success. With no budget the call is rejected locally.
func (g *VerificationGate) Verify(ctx context.Context, vesselID int64, provider string) (*backend.VerificationResult, error) {
	g.mu.Lock()
	if g.known && g.remaining <= 0 {
		g.mu.Unlock()
		return nil, ErrBudgetExhausted
	}
	g.mu.Unlock()

	res, err := g.svc.VerifyVessel(ctx, vesselID, provider)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	if g.known && g.remaining > 0 {
		g.remaining--
	}
	g.mu.Unlock()
	return res, nil
}
