package auth

import (
	"context"
	"errors"

	"github.com/angelmondragon/cinepass/internal/cart"
	"github.com/angelmondragon/cinepass/pkg/auth/session"
)

// Provider answers authentication questions for a single storefront session.
// Every call counts as activity and refreshes the idle timer.
type Provider struct {
	sessionID string
	sessions  sessionManager
}

var _ cart.AuthProvider = (*Provider)(nil)

func (p *Provider) IsAuthenticated(ctx context.Context) (bool, error) {
	buyer, err := p.CurrentUser(ctx)
	if err != nil {
		return false, err
	}
	return buyer != nil, nil
}

// CurrentUser returns nil without error when nobody is logged in or the
// login has gone idle.
func (p *Provider) CurrentUser(ctx context.Context) (*cart.Buyer, error) {
	rec, err := p.sessions.Active(ctx, p.sessionID)
	if errors.Is(err, session.ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart.Buyer{ID: rec.UserID, Name: rec.Name, Email: rec.Email}, nil
}
