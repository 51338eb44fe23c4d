package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/geocoder89/cohorthub/internal/registration"
	"github.com/gin-gonic/gin"
)

type Registrar interface {
	Complete(ctx context.Context, w *registration.Wizard) (registration.Result, error)
}

type RegisterHandler struct {
	svc Registrar
}

func NewRegisterHandler(svc Registrar) *RegisterHandler {
	return &RegisterHandler{svc: svc}
}

type validateStepRequest struct {
	Step registration.Step `json:"step" binding:"required,min=1,max=4"`
	Form registration.Form `json:"form"`
}

// ValidateStep checks one wizard step without side effects.
func (h *RegisterHandler) ValidateStep(ctx *gin.Context) {
	var req validateStepRequest
	if !BindJSON(ctx, &req) {
		return
	}

	w := registration.NewWizard()
	w.Step = req.Step
	w.Update(req.Form)

	if err := w.Next(); err != nil {
		RespondError(ctx, http.StatusBadRequest, "validation_failed", err.Error(), gin.H{
			"step":     req.Step,
			"stepName": req.Step.Name(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"step":     req.Step,
		"nextStep": w.Step,
		"stepName": w.Step.Name(),
	})
}

// Register runs the whole wizard. The signup call leaves the request
// budget, so it gets the write timeout plus the identity provider's own.
func (h *RegisterHandler) Register(ctx *gin.Context) {
	var form registration.Form
	if !BindJSON(ctx, &form) {
		return
	}

	w := registration.NewWizard()
	w.Update(form)

	c, cancel := withTimeout(ctx, 2*writeTimeout)
	defer cancel()

	res, err := h.svc.Complete(c, w)
	if err != nil {
		msg := registration.UserMessage(err)
		details := gin.H{"step": w.Step, "stepName": w.Step.Name()}

		var ve *registration.ValidationError
		var se *registration.SignUpError
		var pe *registration.PersistError

		switch {
		case errors.As(err, &ve):
			RespondError(ctx, http.StatusBadRequest, "validation_failed", msg, details)
		case errors.As(err, &pe) && errors.Is(pe.Err, user.ErrEmailAlreadyUsed):
			RespondError(ctx, http.StatusConflict, "email_taken", msg, details)
		case errors.As(err, &pe):
			RespondInternal(ctx, msg, err)
		case errors.As(err, &se):
			RespondError(ctx, http.StatusBadRequest, "signup_failed", msg, details)
		default:
			RespondInternal(ctx, msg, err)
		}
		return
	}

	ctx.JSON(http.StatusCreated, res)
}
