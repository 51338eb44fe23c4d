package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/geocoder89/cohorthub/internal/http/handlers"
	"github.com/geocoder89/cohorthub/internal/registration"
)

type fakeRegistrar struct {
	completeFn func(ctx context.Context, w *registration.Wizard) (registration.Result, error)
}

func (f *fakeRegistrar) Complete(ctx context.Context, w *registration.Wizard) (registration.Result, error) {
	return f.completeFn(ctx, w)
}

func TestValidateStep(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantMsg    string
		wantNext   int
	}{
		{
			name:       "account missing fields",
			body:       `{"step":1,"form":{"email":"a@b.co"}}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    registration.MsgFillAllFields,
		},
		{
			name:       "short password",
			body:       `{"step":1,"form":{"email":"a@b.co","password":"short","confirmPassword":"short","terms":true}}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    registration.MsgPasswordTooShort,
		},
		{
			name:       "terms not accepted",
			body:       `{"step":1,"form":{"email":"a@b.co","password":"longenough","confirmPassword":"longenough"}}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    registration.MsgTermsRequired,
		},
		{
			name:       "profile without last name",
			body:       `{"step":2,"form":{"firstName":"Asha","lastName":"  "}}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    registration.MsgFillRequiredFields,
		},
		{
			name:       "account ok",
			body:       `{"step":1,"form":{"email":"a@b.co","password":"longenough","confirmPassword":"longenough","terms":true}}`,
			wantStatus: http.StatusOK,
			wantNext:   2,
		},
		{
			name:       "cohort step has no required fields",
			body:       `{"step":3,"form":{}}`,
			wantStatus: http.StatusOK,
			wantNext:   4,
		},
		{
			name:       "step out of range",
			body:       `{"step":5,"form":{}}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewRegisterHandler(&fakeRegistrar{})
			r := setupRouter(http.MethodPost, "/api/register/validate", h.ValidateStep)

			w := perform(r, http.MethodPost, "/api/register/validate", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d body=%s", tt.wantStatus, w.Code, w.Body.String())
			}

			if tt.wantStatus != http.StatusOK {
				resp := decodeError(t, w)
				if resp.Error != tt.wantMsg {
					t.Fatalf("expected %q, got %q", tt.wantMsg, resp.Error)
				}
				return
			}

			var body struct {
				NextStep int `json:"nextStep"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body.NextStep != tt.wantNext {
				t.Fatalf("expected next step %d, got %d", tt.wantNext, body.NextStep)
			}
		})
	}
}

func TestRegister_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation",
			err:        &registration.ValidationError{Step: registration.StepAccount, Message: registration.MsgPasswordsMismatch},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_failed",
		},
		{
			name:       "email taken",
			err:        &registration.PersistError{AuthUserID: "auth-1", Err: user.ErrEmailAlreadyUsed},
			wantStatus: http.StatusConflict,
			wantCode:   "email_taken",
		},
		{
			name:       "persist failure",
			err:        &registration.PersistError{AuthUserID: "auth-1", Err: errors.New("connection reset")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
		{
			name:       "identity provider rejected",
			err:        &registration.SignUpError{Err: errors.New("rate limited")},
			wantStatus: http.StatusBadRequest,
			wantCode:   "signup_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRegistrar{
				completeFn: func(ctx context.Context, w *registration.Wizard) (registration.Result, error) {
					return registration.Result{}, tt.err
				},
			}
			h := handlers.NewRegisterHandler(svc)
			r := setupRouter(http.MethodPost, "/api/register", h.Register)

			w := perform(r, http.MethodPost, "/api/register", `{"email":"a@b.co"}`)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d body=%s", tt.wantStatus, w.Code, w.Body.String())
			}

			resp := decodeError(t, w)
			if resp.Code != tt.wantCode {
				t.Fatalf("expected code %q, got %q", tt.wantCode, resp.Code)
			}
			if resp.Error != registration.UserMessage(tt.err) {
				t.Fatalf("unexpected message %q", resp.Error)
			}
		})
	}
}

func TestRegister_Success(t *testing.T) {
	var gotEmail string
	svc := &fakeRegistrar{
		completeFn: func(ctx context.Context, w *registration.Wizard) (registration.Result, error) {
			gotEmail = w.Form.Email
			return registration.Result{
				UserID: "user-1",
				Email:  w.Form.Email,
				Status: user.StatusPending,
				Step:   registration.StepComplete,
			}, nil
		},
	}
	h := handlers.NewRegisterHandler(svc)
	r := setupRouter(http.MethodPost, "/api/register", h.Register)

	w := perform(r, http.MethodPost, "/api/register", `{"email":"new@cohort.org","password":"longenough"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}

	var res registration.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if gotEmail != "new@cohort.org" || res.UserID != "user-1" || res.Step != registration.StepComplete {
		t.Fatalf("unexpected result: %+v", res)
	}
}
