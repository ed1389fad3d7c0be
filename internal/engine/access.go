package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolMinter/internal/events"
	"poolMinter/internal/state"
)

// AddAdmin grants the admin role. Granting it to an existing admin is a no-op.
func (e *Engine) AddAdmin(ctx context.Context, caller, account common.Address) error {
	if account == (common.Address{}) {
		return fmt.Errorf("%w: zero admin address", ErrInvalidConfig)
	}
	err := e.updateAdmin(ctx, "add_admin", caller, func(s *state.State) ([]events.Event, error) {
		if s.Admins[account] {
			return nil, nil
		}
		s.Admins[account] = true
		return []events.Event{events.AdminChanged{Admin: caller, Account: account, Added: true}}, nil
	})
	if err == nil {
		e.logger.Info("admin added", zap.String("by", caller.Hex()), zap.String("account", account.Hex()))
	}
	return err
}

// RemoveAdmin revokes the admin role. The last admin cannot be removed.
func (e *Engine) RemoveAdmin(ctx context.Context, caller, account common.Address) error {
	err := e.updateAdmin(ctx, "remove_admin", caller, func(s *state.State) ([]events.Event, error) {
		if !s.Admins[account] {
			return nil, fmt.Errorf("%w: %s", ErrAdminNotFound, account.Hex())
		}
		if len(s.AdminList()) <= 1 {
			return nil, ErrCannotRemoveLastAdmin
		}
		delete(s.Admins, account)
		return []events.Event{events.AdminChanged{Admin: caller, Account: account, Added: false}}, nil
	})
	if err == nil {
		e.logger.Info("admin removed", zap.String("by", caller.Hex()), zap.String("account", account.Hex()))
	}
	return err
}

// GetAdminList returns every admin sorted by address.
func (e *Engine) GetAdminList(ctx context.Context) ([]common.Address, error) {
	var out []common.Address
	err := e.view(ctx, func(s *state.State) error {
		out = s.AdminList()
		return nil
	})
	return out, err
}

func (e *Engine) IsAdmin(ctx context.Context, account common.Address) (bool, error) {
	var ok bool
	err := e.view(ctx, func(s *state.State) error {
		ok = s.Admins[account]
		return nil
	})
	return ok, err
}
