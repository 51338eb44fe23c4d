// Package registration is the four-step signup wizard: per-step validation,
// the step state machine, and completion against the identity provider and
// the users/profiles tables.
package registration

import "strings"

type Step int

const (
	StepAccount Step = iota + 1
	StepProfile
	StepCohort
	StepComplete
)

func (s Step) Name() string {
	switch s {
	case StepAccount:
		return "Account"
	case StepProfile:
		return "Profile"
	case StepCohort:
		return "Cohort"
	case StepComplete:
		return "Complete"
	default:
		return ""
	}
}

func (s Step) IsValid() bool {
	return s >= StepAccount && s <= StepComplete
}

const MinPasswordLength = 8

const (
	MsgFillAllFields      = "Please fill in all fields"
	MsgPasswordTooShort   = "Password must be at least 8 characters"
	MsgPasswordsMismatch  = "Passwords do not match"
	MsgTermsRequired      = "You must agree to the Terms of Service"
	MsgFillRequiredFields = "Please fill in all required fields"
)

type Form struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Terms           bool   `json:"terms"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Location        string `json:"location"`
	Headline        string `json:"headline"`
	LinkedInProfile string `json:"linkedinProfile"`
	InviteCode      string `json:"inviteCode"`
	CohortProgram   string `json:"cohortProgram"`
	CohortYear      string `json:"cohortYear"`
	Role            string `json:"role"`
	ReferralSource  string `json:"referralSource"`
}

// ValidationError is a failed step check. Message is shown to the user as is.
type ValidationError struct {
	Step    Step
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate runs the checks for one step. Steps without required fields
// always pass.
func Validate(step Step, f Form) error {
	switch step {
	case StepAccount:
		switch {
		case f.Email == "" || f.Password == "" || f.ConfirmPassword == "":
			return &ValidationError{Step: step, Message: MsgFillAllFields}
		case len(f.Password) < MinPasswordLength:
			return &ValidationError{Step: step, Message: MsgPasswordTooShort}
		case f.Password != f.ConfirmPassword:
			return &ValidationError{Step: step, Message: MsgPasswordsMismatch}
		case !f.Terms:
			return &ValidationError{Step: step, Message: MsgTermsRequired}
		}
	case StepProfile:
		if strings.TrimSpace(f.FirstName) == "" || strings.TrimSpace(f.LastName) == "" {
			return &ValidationError{Step: step, Message: MsgFillRequiredFields}
		}
	}
	return nil
}

// ValidateThrough checks every step up to and including last.
func ValidateThrough(last Step, f Form) error {
	for s := StepAccount; s <= last && s < StepComplete; s++ {
		if err := Validate(s, f); err != nil {
			return err
		}
	}
	return nil
}

// Wizard tracks the current step of one signup. Error holds the last
// failed check and is cleared on every move.
type Wizard struct {
	Step  Step   `json:"step"`
	Form  Form   `json:"-"`
	Error string `json:"error,omitempty"`
}

func NewWizard() *Wizard {
	return &Wizard{Step: StepAccount}
}

// Next validates the current step and advances on success. It never moves
// past StepComplete.
func (w *Wizard) Next() error {
	w.Error = ""

	if err := Validate(w.Step, w.Form); err != nil {
		w.Error = err.Error()
		return err
	}

	if w.Step < StepComplete {
		w.Step++
	}
	return nil
}

func (w *Wizard) Prev() {
	w.Error = ""
	if w.Step > StepAccount {
		w.Step--
	}
}

func (w *Wizard) Update(f Form) {
	w.Form = f
	w.Error = ""
}
