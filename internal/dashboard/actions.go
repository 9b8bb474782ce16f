package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/veles-markets/console/internal/api"
	"github.com/veles-markets/console/internal/governor"
	"github.com/veles-markets/console/pkg/httpclient"
)

// Moderation actions relay to the backend and then refresh the panels
// whose data they invalidated. The backend makes all the decisions;
// this layer only carries them.

// ResolveDispute accepts or rejects a dispute.
func (d *Dashboard) ResolveDispute(ctx context.Context, id int64, accept bool) error {
	if !d.requireAdmin() {
		return ErrAdminRequired
	}
	if _, err := d.backend.ResolveDispute(ctx, id, accept); err != nil {
		if errors.Is(err, httpclient.ErrUnauthorized) {
			d.handleUnauthorized()
		}
		return fmt.Errorf("couldn't resolve dispute %d: %w", id, err)
	}
	return d.RefreshPanel(ctx, governor.PanelDisputes)
}

// ModerateUser applies a role/flag patch to a user.
func (d *Dashboard) ModerateUser(ctx context.Context, id int64, patch api.UserPatch) error {
	if !d.requireAdmin() {
		return ErrAdminRequired
	}
	if _, err := d.backend.UpdateUser(ctx, id, patch); err != nil {
		if errors.Is(err, httpclient.ErrUnauthorized) {
			d.handleUnauthorized()
		}
		return fmt.Errorf("couldn't moderate user %d: %w", id, err)
	}
	return d.RefreshPanel(ctx, governor.PanelUsers)
}

// RemoveUser deletes a user account.
func (d *Dashboard) RemoveUser(ctx context.Context, id int64) error {
	if !d.requireAdmin() {
		return ErrAdminRequired
	}
	if err := d.backend.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, httpclient.ErrUnauthorized) {
			d.handleUnauthorized()
		}
		return fmt.Errorf("couldn't remove user %d: %w", id, err)
	}
	return d.RefreshPanel(ctx, governor.PanelUsers)
}

var ErrAdminRequired = errors.New("admin access required")

func (d *Dashboard) requireAdmin() bool {
	return d.session.IsAdmin()
}
