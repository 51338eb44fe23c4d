package db

import (
	"context"
	"log/slog"
	"strings"
)

type AdminPromoter interface {
	PromoteAdmin(ctx context.Context, email string) (bool, error)
}

// EnsureAdminUser grants ADMIN to the configured account. Accounts are
// created through signup, so a missing row is only logged.
func EnsureAdminUser(ctx context.Context, users AdminPromoter, email string, log *slog.Logger) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	changed, err := users.PromoteAdmin(ctx, email)
	if err != nil {
		return err
	}

	if changed {
		log.InfoContext(ctx, "admin_promoted", "email", email)
	} else {
		log.DebugContext(ctx, "admin_promotion_skipped", "email", email)
	}

	return nil
}
