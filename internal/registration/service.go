package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/cohorthub/internal/domain/audit"
	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/geocoder89/cohorthub/internal/jsonlist"
	"github.com/geocoder89/cohorthub/internal/supabase"
	"github.com/google/uuid"
)

var ErrNoAuthUser = errors.New("identity provider returned no user")

type SignUpper interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*supabase.SignUpResult, error)
}

// Store persists the user, its profile and the audit entry in one transaction.
type Store interface {
	CreateWithProfile(ctx context.Context, u user.User, p user.Profile, entry audit.Entry) error
}

// SignUpError wraps a rejected signup at the identity provider.
type SignUpError struct {
	Err error
}

func (e *SignUpError) Error() string { return "sign up: " + e.Err.Error() }
func (e *SignUpError) Unwrap() error { return e.Err }

// PersistError means the auth account exists but the user rows do not.
type PersistError struct {
	AuthUserID string
	Err        error
}

func (e *PersistError) Error() string { return "create user record: " + e.Err.Error() }
func (e *PersistError) Unwrap() error { return e.Err }

type Result struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Status user.Status `json:"status"`
	Step   Step        `json:"step"`
	// ConfirmEmail is set when the provider held back the session until the
	// address is confirmed.
	ConfirmEmail bool `json:"confirmEmail"`
}

type Service struct {
	auth  SignUpper
	store Store
	now   func() time.Time
}

func NewService(auth SignUpper, store Store) *Service {
	return &Service{
		auth:  auth,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Complete runs the whole wizard: validation of steps 1 and 2, signup at the
// identity provider, then the user and profile rows.
func (s *Service) Complete(ctx context.Context, w *Wizard) (Result, error) {
	w.Error = ""

	if err := ValidateThrough(StepProfile, w.Form); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			w.Step = ve.Step
		}
		w.Error = err.Error()
		return Result{}, err
	}

	f := normalize(w.Form)

	res, err := s.auth.SignUp(ctx, f.Email, f.Password, map[string]any{
		"firstName": f.FirstName,
		"lastName":  f.LastName,
		"location":  f.Location,
		"headline":  f.Headline,
	})
	if err != nil {
		w.Error = err.Error()
		return Result{}, &SignUpError{Err: err}
	}

	authUser := res.User
	if authUser == nil && res.Session != nil {
		authUser = res.Session.User
	}
	if authUser == nil || authUser.ID == "" {
		w.Error = ErrNoAuthUser.Error()
		return Result{}, &SignUpError{Err: ErrNoAuthUser}
	}

	u, p := s.buildRows(authUser.ID, f)
	entry := audit.NewEntry(u.ID, audit.ActionUserRegistered, "user", u.ID, map[string]any{
		"email":  u.Email,
		"status": u.Status,
	})

	if err := s.store.CreateWithProfile(ctx, u, p, entry); err != nil {
		slog.Default().ErrorContext(ctx, "registration_persist_failed",
			"auth_user_id", authUser.ID,
			"email", f.Email,
			"err", err,
		)
		w.Step = StepCohort
		w.Error = err.Error()
		return Result{}, &PersistError{AuthUserID: authUser.ID, Err: err}
	}

	w.Step = StepComplete

	return Result{
		UserID:       u.ID,
		Email:        u.Email,
		Status:       u.Status,
		Step:         StepComplete,
		ConfirmEmail: res.Session == nil,
	}, nil
}

func (s *Service) buildRows(id string, f Form) (user.User, user.Profile) {
	now := s.now()

	u := user.User{
		ID:        id,
		Email:     f.Email,
		Name:      f.FirstName + " " + f.LastName,
		Initials:  user.Initials(f.FirstName, f.LastName),
		Role:      user.RoleMember,
		Status:    user.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	p := user.Profile{
		ID:         uuid.NewString(),
		UserID:     id,
		Title:      optional(f.Headline),
		Bio:        optional(f.Location),
		LinkedIn:   optional(f.LinkedInProfile),
		Experience: jsonlist.Of[user.Experience]{},
		Expertise:  jsonlist.Of[string]{},
		Skills:     jsonlist.Of[string]{},
		LookingFor: jsonlist.Of[string]{},
		Offering:   jsonlist.Of[string]{},
		UpdatedAt:  now,
	}

	if cohort := strings.TrimSpace(f.CohortProgram + " " + f.CohortYear); cohort != "" {
		p.Cohort = &cohort
	}

	return u, p
}

func normalize(f Form) Form {
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Location = strings.TrimSpace(f.Location)
	f.Headline = strings.TrimSpace(f.Headline)
	f.LinkedInProfile = strings.TrimSpace(f.LinkedInProfile)
	return f
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// UserMessage is the text shown for a failed completion.
func UserMessage(err error) string {
	var ve *ValidationError
	var se *SignUpError
	var pe *PersistError

	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &pe):
		return fmt.Sprintf("Failed to create user record: %s", causeMessage(pe.Err))
	case errors.As(err, &se):
		var apiErr *supabase.Error
		if errors.As(se.Err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return "An error occurred during registration"
	default:
		return "An error occurred during registration"
	}
}

// Driver errors are logged, never echoed.
func causeMessage(err error) string {
	if errors.Is(err, user.ErrEmailAlreadyUsed) {
		return user.ErrEmailAlreadyUsed.Error()
	}
	return "Unknown error"
}
