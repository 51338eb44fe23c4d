package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/geocoder89/cohorthub/internal/domain/resource"
	"github.com/geocoder89/cohorthub/internal/http/handlers"
)

type fakeResourcesRepo struct {
	items      map[string]resource.Resource
	gotFilter  resource.ListFilter
	created    *resource.Resource
	deletedIDs []string
}

func newFakeResourcesRepo(rs ...resource.Resource) *fakeResourcesRepo {
	f := &fakeResourcesRepo{items: map[string]resource.Resource{}}
	for _, r := range rs {
		f.items[r.ID] = r
	}
	return f
}

func (f *fakeResourcesRepo) List(ctx context.Context, filter resource.ListFilter) ([]resource.Resource, error) {
	f.gotFilter = filter
	out := []resource.Resource{}
	for _, r := range f.items {
		for _, l := range filter.Levels {
			if r.AccessLevel == l {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeResourcesRepo) GetByID(ctx context.Context, id string) (resource.Resource, error) {
	r, ok := f.items[id]
	if !ok {
		return resource.Resource{}, resource.ErrNotFound
	}
	return r, nil
}

func (f *fakeResourcesRepo) Create(ctx context.Context, r resource.Resource) (resource.Resource, error) {
	f.created = &r
	return r, nil
}

func (f *fakeResourcesRepo) Update(ctx context.Context, r resource.Resource) (resource.Resource, error) {
	f.items[r.ID] = r
	return r, nil
}

func (f *fakeResourcesRepo) Delete(ctx context.Context, id string) error {
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeResourcesRepo) IncrementDownloads(ctx context.Context, id string) (resource.Resource, error) {
	r := f.items[id]
	r.Downloads++
	f.items[id] = r
	return r, nil
}

func sampleResources() []resource.Resource {
	link := "https://cohort.org/guide.pdf"
	return []resource.Resource{
		{ID: "r-public", Title: "Guide", AccessLevel: resource.AccessPublic, UploadedByID: "u-1", URL: &link, Downloads: 4},
		{ID: "r-members", Title: "Deck", AccessLevel: resource.AccessMembersOnly, UploadedByID: "u-1"},
		{ID: "r-admin", Title: "Board notes", AccessLevel: resource.AccessAdminOnly, UploadedByID: "a-1"},
	}
}

func TestListResources_VisibilityByRole(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		role   string
		want   int
	}{
		{name: "anonymous", want: 1},
		{name: "member", userID: "u-1", role: "MEMBER", want: 2},
		{name: "admin", userID: "a-1", role: "ADMIN", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeResourcesRepo(sampleResources()...)
			h := handlers.NewResourcesHandler(repo, &fakeAudit{})
			r := setupAuthedRouter(http.MethodGet, "/api/resources", tt.userID, tt.role, h.ListResources)

			w := perform(r, http.MethodGet, "/api/resources", "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}

			var items []resource.Resource
			if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(items) != tt.want || len(repo.gotFilter.Levels) != tt.want {
				t.Fatalf("expected %d visible, got %d (levels %v)", tt.want, len(items), repo.gotFilter.Levels)
			}
		})
	}
}

func TestGetResource_AdminOnlyHiddenFromMembers(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		role       string
		wantStatus int
	}{
		{name: "member", userID: "u-1", role: "MEMBER", wantStatus: http.StatusNotFound},
		{name: "anonymous", wantStatus: http.StatusNotFound},
		{name: "admin", userID: "a-1", role: "ADMIN", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewResourcesHandler(newFakeResourcesRepo(sampleResources()...), nil)
			r := setupAuthedRouter(http.MethodGet, "/api/resources/:id", tt.userID, tt.role, h.GetResource)

			if w := perform(r, http.MethodGet, "/api/resources/r-admin", ""); w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestCreateResource_AdminOnlyLevelRequiresAdmin(t *testing.T) {
	body := `{"title":"Board notes","type":"document","category":"Governance","accessLevel":"ADMIN_ONLY"}`

	repo := newFakeResourcesRepo()
	h := handlers.NewResourcesHandler(repo, nil)

	r := setupAuthedRouter(http.MethodPost, "/api/resources", "u-1", "MEMBER", h.CreateResource)
	if w := perform(r, http.MethodPost, "/api/resources", body); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if repo.created != nil {
		t.Fatalf("expected nothing stored")
	}

	r = setupAuthedRouter(http.MethodPost, "/api/resources", "a-1", "ADMIN", h.CreateResource)
	if w := perform(r, http.MethodPost, "/api/resources", body); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}
	if repo.created == nil || repo.created.UploadedByID != "a-1" {
		t.Fatalf("expected stored resource uploaded by a-1, got %+v", repo.created)
	}
}

func TestDeleteResource_OwnerOrAdmin(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		role       string
		wantStatus int
		wantAudit  int
	}{
		{name: "uploader", userID: "u-1", role: "MEMBER", wantStatus: http.StatusNoContent},
		{name: "other member", userID: "u-2", role: "MEMBER", wantStatus: http.StatusForbidden},
		{name: "admin is audited", userID: "a-1", role: "ADMIN", wantStatus: http.StatusNoContent, wantAudit: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trail := &fakeAudit{}
			h := handlers.NewResourcesHandler(newFakeResourcesRepo(sampleResources()...), trail)
			r := setupAuthedRouter(http.MethodDelete, "/api/resources/:id", tt.userID, tt.role, h.DeleteResource)

			if w := perform(r, http.MethodDelete, "/api/resources/r-members", ""); w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if len(trail.entries) != tt.wantAudit {
				t.Fatalf("expected %d audit entries, got %d", tt.wantAudit, len(trail.entries))
			}
		})
	}
}

func TestDownloadResource_CountsAndReturnsURL(t *testing.T) {
	h := handlers.NewResourcesHandler(newFakeResourcesRepo(sampleResources()...), nil)
	r := setupAuthedRouter(http.MethodPost, "/api/resources/:id/download", "", "", h.DownloadResource)

	w := perform(r, http.MethodPost, "/api/resources/r-public/download", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Downloads int    `json:"downloads"`
		URL       string `json:"url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Downloads != 5 || body.URL != "https://cohort.org/guide.pdf" {
		t.Fatalf("unexpected body: %+v", body)
	}

	// a members-only file stays hidden from anonymous callers
	if w := perform(r, http.MethodPost, "/api/resources/r-members/download", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
