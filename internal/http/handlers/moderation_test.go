package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/geocoder89/cohorthub/internal/domain/job"
	"github.com/geocoder89/cohorthub/internal/domain/moderation"
	"github.com/geocoder89/cohorthub/internal/http/handlers"
	"github.com/geocoder89/cohorthub/internal/jobs"
)

type fakeModerationRepo struct {
	createFn  func(ctx context.Context, rep moderation.Report, notify job.CreateRequest) (moderation.Report, error)
	listFn    func(ctx context.Context, status *moderation.Status, limit int) ([]moderation.Report, error)
	resolveFn func(ctx context.Context, actorID, id string, req moderation.ResolveRequest) (moderation.Report, error)
}

func (f *fakeModerationRepo) CreateReport(ctx context.Context, rep moderation.Report, notify job.CreateRequest) (moderation.Report, error) {
	return f.createFn(ctx, rep, notify)
}

func (f *fakeModerationRepo) ListReports(ctx context.Context, status *moderation.Status, limit int) ([]moderation.Report, error) {
	return f.listFn(ctx, status, limit)
}

func (f *fakeModerationRepo) ResolveReport(ctx context.Context, actorID, id string, req moderation.ResolveRequest) (moderation.Report, error) {
	return f.resolveFn(ctx, actorID, id, req)
}

func TestCreateReport_QueuesAdminNotification(t *testing.T) {
	var gotReport moderation.Report
	var gotJob job.CreateRequest
	repo := &fakeModerationRepo{
		createFn: func(ctx context.Context, rep moderation.Report, notify job.CreateRequest) (moderation.Report, error) {
			gotReport, gotJob = rep, notify
			return rep, nil
		},
	}

	h := handlers.NewModerationHandler(repo)
	r := setupAuthedRouter(http.MethodPost, "/api/reports", "user-1", "MEMBER", h.CreateReport)

	w := perform(r, http.MethodPost, "/api/reports", `{"contentId":"post-1","contentType":"post","reason":"spam link"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}

	if gotReport.ReportedBy != "user-1" || gotReport.Status != moderation.StatusPending {
		t.Fatalf("unexpected report: %+v", gotReport)
	}
	if gotJob.Type != string(jobs.JobContentReported) {
		t.Fatalf("expected %s job, got %q", jobs.JobContentReported, gotJob.Type)
	}
	if gotJob.IdempotencyKey == nil || *gotJob.IdempotencyKey != "content.reported:"+gotReport.ID {
		t.Fatalf("unexpected idempotency key: %v", gotJob.IdempotencyKey)
	}
}

func TestCreateReport_RejectsUnknownContentType(t *testing.T) {
	h := handlers.NewModerationHandler(&fakeModerationRepo{})
	r := setupAuthedRouter(http.MethodPost, "/api/reports", "user-1", "MEMBER", h.CreateReport)

	w := perform(r, http.MethodPost, "/api/reports", `{"contentId":"x","contentType":"event","reason":"spam"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListReports_StatusFilter(t *testing.T) {
	var gotStatus *moderation.Status
	repo := &fakeModerationRepo{
		listFn: func(ctx context.Context, status *moderation.Status, limit int) ([]moderation.Report, error) {
			gotStatus = status
			return []moderation.Report{}, nil
		},
	}

	h := handlers.NewModerationHandler(repo)
	r := setupAuthedRouter(http.MethodGet, "/api/admin/reports", "admin-1", "ADMIN", h.ListReports)

	if w := perform(r, http.MethodGet, "/api/admin/reports?status=CLOSED", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	if w := perform(r, http.MethodGet, "/api/admin/reports?status=PENDING", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotStatus == nil || *gotStatus != moderation.StatusPending {
		t.Fatalf("expected PENDING filter, got %v", gotStatus)
	}
}

func TestResolveReport(t *testing.T) {
	repo := &fakeModerationRepo{
		resolveFn: func(ctx context.Context, actorID, id string, req moderation.ResolveRequest) (moderation.Report, error) {
			if id == "missing" {
				return moderation.Report{}, moderation.ErrNotFound
			}
			return moderation.Report{ID: id, Status: req.Status, ActionTaken: req.ActionTaken, UpdatedAt: time.Now()}, nil
		},
	}

	h := handlers.NewModerationHandler(repo)
	r := setupAuthedRouter(http.MethodPatch, "/api/admin/reports/:id", "admin-1", "ADMIN", h.ResolveReport)

	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
	}{
		{name: "resolved", target: "/api/admin/reports/r-1", body: `{"status":"RESOLVED","actionTaken":"post removed"}`, wantStatus: http.StatusOK},
		{name: "cannot go back to pending", target: "/api/admin/reports/r-1", body: `{"status":"PENDING"}`, wantStatus: http.StatusBadRequest},
		{name: "unknown report", target: "/api/admin/reports/missing", body: `{"status":"DISMISSED"}`, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(r, http.MethodPatch, tt.target, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d body=%s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}
