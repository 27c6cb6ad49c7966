package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crimewatch/ingest/internal/database"
	"github.com/crimewatch/ingest/internal/domain"
	"github.com/crimewatch/ingest/internal/handlers"
	"github.com/crimewatch/ingest/internal/logger"
	"github.com/crimewatch/ingest/internal/refresh"
)

type mockRefresher struct {
	refreshFunc func(region string) (*refresh.Result, error)
}

func (m *mockRefresher) RefreshRegion(_ context.Context, region string) (*refresh.Result, error) {
	if m.refreshFunc != nil {
		return m.refreshFunc(region)
	}
	return &refresh.Result{Region: region}, nil
}

type mockJobRunner struct {
	startFunc  func(region string) (*domain.RefreshJob, error)
	statusFunc func(jobID string) (*domain.RefreshJob, error)
}

func (m *mockJobRunner) Start(_ context.Context, region string) (*domain.RefreshJob, error) {
	if m.startFunc != nil {
		return m.startFunc(region)
	}
	return &domain.RefreshJob{JobID: "job-1", Region: region, Status: domain.JobStatusPending}, nil
}

func (m *mockJobRunner) Status(_ context.Context, jobID string) (*domain.RefreshJob, error) {
	if m.statusFunc != nil {
		return m.statusFunc(jobID)
	}
	return &domain.RefreshJob{JobID: jobID, Status: domain.JobStatusPending}, nil
}

type mockIncidentLister struct {
	listFunc func(region string, limit int) ([]domain.IncidentView, error)
}

func (m *mockIncidentLister) ListByRegion(_ context.Context, region string, limit int) ([]domain.IncidentView, error) {
	if m.listFunc != nil {
		return m.listFunc(region, limit)
	}
	return nil, nil
}

type mockSourceLister struct {
	listFunc func() ([]*domain.Source, error)
}

func (m *mockSourceLister) List(_ context.Context) ([]*domain.Source, error) {
	if m.listFunc != nil {
		return m.listFunc()
	}
	return nil, nil
}

func setupRefreshRouter(t *testing.T, handler *handlers.RefreshHandler) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	router := gin.New()
	api := router.Group("/api")
	api.POST("/refresh", handler.Refresh)
	api.POST("/refresh-async", handler.RefreshAsync)
	api.GET("/refresh-status/:job_id", handler.RefreshStatus)

	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	bodyJSON, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	w := httptest.NewRecorder()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, path, bytes.NewBuffer(bodyJSON))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	return w
}

func getPath(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, path, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	router.ServeHTTP(w, req)

	return w
}

func TestRefreshHandler_Refresh_Success(t *testing.T) {
	refresher := &mockRefresher{
		refreshFunc: func(region string) (*refresh.Result, error) {
			return &refresh.Result{Region: region, NewArticles: 4, TotalIncidents: 19}, nil
		},
	}
	handler := handlers.NewRefreshHandler(refresher, &mockJobRunner{}, logger.NewNopLogger())
	router := setupRefreshRouter(t, handler)

	w := postJSON(t, router, "/api/refresh", map[string]any{"region": "langley"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var result refresh.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if result.NewArticles != 4 || result.TotalIncidents != 19 {
		t.Errorf("result = %+v, want 4 new articles and 19 total", result)
	}
}

func TestRefreshHandler_Refresh_NoActiveSources(t *testing.T) {
	refresher := &mockRefresher{
		refreshFunc: func(region string) (*refresh.Result, error) {
			return nil, refresh.ErrNoActiveSources
		},
	}
	handler := handlers.NewRefreshHandler(refresher, &mockJobRunner{}, logger.NewNopLogger())
	router := setupRefreshRouter(t, handler)

	w := postJSON(t, router, "/api/refresh", map[string]any{"region": "nowhere"})

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "No active sources found for region: nowhere" {
		t.Errorf("error = %q, want region-specific message", body["error"])
	}
}

func TestRefreshHandler_Refresh_MissingRegion(t *testing.T) {
	handler := handlers.NewRefreshHandler(&mockRefresher{}, &mockJobRunner{}, logger.NewNopLogger())
	router := setupRefreshRouter(t, handler)

	w := postJSON(t, router, "/api/refresh", map[string]any{})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRefreshHandler_Refresh_InternalError(t *testing.T) {
	refresher := &mockRefresher{
		refreshFunc: func(string) (*refresh.Result, error) {
			return nil, errors.New("database unavailable")
		},
	}
	handler := handlers.NewRefreshHandler(refresher, &mockJobRunner{}, logger.NewNopLogger())
	router := setupRefreshRouter(t, handler)

	w := postJSON(t, router, "/api/refresh", map[string]any{"region": "langley"})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestRefreshHandler_RefreshAsync_ReturnsPendingJob(t *testing.T) {
	handler := handlers.NewRefreshHandler(&mockRefresher{}, &mockJobRunner{}, logger.NewNopLogger())
	router := setupRefreshRouter(t, handler)

	w := postJSON(t, router, "/api/refresh-async", map[string]any{"region": "langley"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["job_id"] != "job-1" {
		t.Errorf("job_id = %q, want job-1", body["job_id"])
	}
	if body["status"] != domain.JobStatusPending {
		t.Errorf("status = %q, want %q", body["status"], domain.JobStatusPending)
	}
	if body["message"] == "" {
		t.Errorf("message should be populated")
	}
}

func TestRefreshHandler_RefreshStatus_NotFound(t *testing.T) {
	jobs := &mockJobRunner{
		statusFunc: func(string) (*domain.RefreshJob, error) {
			return nil, database.ErrJobNotFound
		},
	}
	handler := handlers.NewRefreshHandler(&mockRefresher{}, jobs, logger.NewNopLogger())
	router := setupRefreshRouter(t, handler)

	w := getPath(t, router, "/api/refresh-status/missing-job")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRefreshHandler_RefreshStatus_Succeeded(t *testing.T) {
	completed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	jobs := &mockJobRunner{
		statusFunc: func(jobID string) (*domain.RefreshJob, error) {
			n := 7
			tot := 42
			return &domain.RefreshJob{
				JobID:          jobID,
				Region:         "langley",
				Status:         domain.JobStatusSucceeded,
				NewArticles:    &n,
				TotalIncidents: &tot,
				CompletedAt:    &completed,
			}, nil
		},
	}
	handler := handlers.NewRefreshHandler(&mockRefresher{}, jobs, logger.NewNopLogger())
	router := setupRefreshRouter(t, handler)

	w := getPath(t, router, "/api/refresh-status/job-9")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var job domain.RefreshJob
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if job.Status != domain.JobStatusSucceeded {
		t.Errorf("status = %q, want %q", job.Status, domain.JobStatusSucceeded)
	}
	if job.NewArticles == nil || *job.NewArticles != 7 {
		t.Errorf("new_articles = %v, want 7", job.NewArticles)
	}
}

func setupIncidentRouter(t *testing.T, handler *handlers.IncidentHandler) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/api/incidents", handler.List)

	return router
}

func sampleIncidentView() domain.IncidentView {
	published := time.Date(2025, 2, 10, 18, 30, 0, 0, time.UTC)
	location := "200 block of Fraser Hwy"
	lat := 49.05
	lng := -122.3

	return domain.IncidentView{
		Article: domain.Article{
			ID:          17,
			Title:       "Langley RCMP investigating armed robbery",
			Body:        "Officers responded to a report of an armed robbery.",
			URL:         "https://bc-cb.rcmp-grc.gc.ca/news/2025/release",
			PublishedAt: &published,
			CreatedAt:   published.Add(time.Hour),
		},
		Incident: domain.EnrichedIncident{
			ID:            17,
			Severity:      domain.SeverityHigh,
			Tags:          domain.StringArray{"robbery", "weapons"},
			Entities:      domain.EntityList{{Type: "LOCATION", Name: "Fraser Hwy"}},
			LocationLabel: &location,
			Lat:           &lat,
			Lng:           &lng,
		},
		Source: domain.Source{
			AgencyName:  "Langley RCMP",
			RegionLabel: "langley",
			Topology:    domain.TopologyRCMPNewsroom,
		},
	}
}

func TestIncidentHandler_List_Success(t *testing.T) {
	lister := &mockIncidentLister{
		listFunc: func(region string, limit int) ([]domain.IncidentView, error) {
			return []domain.IncidentView{sampleIncidentView()}, nil
		},
	}
	handler := handlers.NewIncidentHandler(lister, logger.NewNopLogger())
	router := setupIncidentRouter(t, handler)

	w := getPath(t, router, "/api/incidents?region=langley")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var body struct {
		Region    string `json:"region"`
		Count     int    `json:"count"`
		Incidents []struct {
			ID          string `json:"id"`
			Timestamp   string `json:"timestamp"`
			Source      string `json:"source"`
			Location    string `json:"location"`
			Coordinates struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"coordinates"`
			Summary  string   `json:"summary"`
			Severity string   `json:"severity"`
			Tags     []string `json:"tags"`
			Entities []string `json:"entities"`
		} `json:"incidents"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	if body.Count != 1 || len(body.Incidents) != 1 {
		t.Fatalf("count = %d with %d incidents, want 1", body.Count, len(body.Incidents))
	}

	inc := body.Incidents[0]
	if inc.ID != "17" {
		t.Errorf("id = %q, want 17", inc.ID)
	}
	if inc.Timestamp != "2025-02-10T18:30:00Z" {
		t.Errorf("timestamp = %q, want published_at", inc.Timestamp)
	}
	if inc.Source != "Local Police" {
		t.Errorf("source = %q, want Local Police", inc.Source)
	}
	if inc.Location != "200 block of Fraser Hwy" {
		t.Errorf("location = %q, want enriched label", inc.Location)
	}
	if inc.Coordinates.Lat != 49.05 || inc.Coordinates.Lng != -122.3 {
		t.Errorf("coordinates = %+v, want enriched values", inc.Coordinates)
	}
	if inc.Severity != "High" {
		t.Errorf("severity = %q, want High", inc.Severity)
	}
	if len(inc.Entities) != 1 || inc.Entities[0] != "Fraser Hwy" {
		t.Errorf("entities = %v, want entity names", inc.Entities)
	}
}

func TestIncidentHandler_List_Defaults(t *testing.T) {
	view := sampleIncidentView()
	view.Article.PublishedAt = nil
	view.Incident.LocationLabel = nil
	view.Incident.Lat = nil
	view.Incident.Lng = nil
	view.Incident.Severity = "WEIRD"
	view.Incident.Tags = nil

	lister := &mockIncidentLister{
		listFunc: func(string, int) ([]domain.IncidentView, error) {
			return []domain.IncidentView{view}, nil
		},
	}
	handler := handlers.NewIncidentHandler(lister, logger.NewNopLogger())
	router := setupIncidentRouter(t, handler)

	w := getPath(t, router, "/api/incidents?region=langley")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Incidents []struct {
			Timestamp   string `json:"timestamp"`
			Location    string `json:"location"`
			Coordinates struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"coordinates"`
			Severity string   `json:"severity"`
			Tags     []string `json:"tags"`
		} `json:"incidents"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	inc := body.Incidents[0]
	if inc.Timestamp != "2025-02-10T19:30:00Z" {
		t.Errorf("timestamp = %q, want created_at fallback", inc.Timestamp)
	}
	if inc.Location != "langley" {
		t.Errorf("location = %q, want region label fallback", inc.Location)
	}
	if inc.Coordinates.Lat != 49.1042 || inc.Coordinates.Lng != -122.6604 {
		t.Errorf("coordinates = %+v, want defaults", inc.Coordinates)
	}
	if inc.Severity != "Medium" {
		t.Errorf("severity = %q, want Medium fallback", inc.Severity)
	}
	if inc.Tags == nil {
		t.Errorf("tags should serialize as an empty array, not null")
	}
}

func TestIncidentHandler_List_RequiresRegion(t *testing.T) {
	handler := handlers.NewIncidentHandler(&mockIncidentLister{}, logger.NewNopLogger())
	router := setupIncidentRouter(t, handler)

	w := getPath(t, router, "/api/incidents")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestIncidentHandler_List_LimitHandling(t *testing.T) {
	var gotLimit int
	lister := &mockIncidentLister{
		listFunc: func(_ string, limit int) ([]domain.IncidentView, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	handler := handlers.NewIncidentHandler(lister, logger.NewNopLogger())
	router := setupIncidentRouter(t, handler)

	w := getPath(t, router, "/api/incidents?region=langley")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotLimit != 100 {
		t.Errorf("default limit = %d, want 100", gotLimit)
	}

	w = getPath(t, router, "/api/incidents?region=langley&limit=2000")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotLimit != 500 {
		t.Errorf("clamped limit = %d, want 500", gotLimit)
	}

	w = getPath(t, router, "/api/incidents?region=langley&limit=0")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d for limit=0, want %d", w.Code, http.StatusBadRequest)
	}

	w = getPath(t, router, "/api/incidents?region=langley&limit=abc")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d for limit=abc, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSourceHandler_List(t *testing.T) {
	lister := &mockSourceLister{
		listFunc: func() ([]*domain.Source, error) {
			return []*domain.Source{
				{ID: 1, AgencyName: "Langley RCMP", RegionLabel: "langley", Topology: domain.TopologyRCMPNewsroom, Active: true},
				{ID: 2, AgencyName: "Abbotsford PD", RegionLabel: "abbotsford", Topology: domain.TopologyAbbyPD, Active: false},
			}, nil
		},
	}
	handler := handlers.NewSourceHandler(lister, logger.NewNopLogger())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/sources", handler.List)

	w := getPath(t, router, "/api/sources")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Count   int             `json:"count"`
		Sources []domain.Source `json:"sources"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Count != 2 || len(body.Sources) != 2 {
		t.Fatalf("count = %d with %d sources, want 2", body.Count, len(body.Sources))
	}
	if body.Sources[1].AgencyName != "Abbotsford PD" {
		t.Errorf("agency = %q, want Abbotsford PD", body.Sources[1].AgencyName)
	}

	w = getPath(t, router, "/api/sources?region=abbotsford")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body.Sources = nil
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Count != 1 || len(body.Sources) != 1 {
		t.Fatalf("filtered count = %d with %d sources, want 1", body.Count, len(body.Sources))
	}
	if body.Sources[0].RegionLabel != "abbotsford" {
		t.Errorf("region = %q, want abbotsford", body.Sources[0].RegionLabel)
	}
}

func TestSourceHandler_List_Error(t *testing.T) {
	lister := &mockSourceLister{
		listFunc: func() ([]*domain.Source, error) {
			return nil, errors.New("connection refused")
		},
	}
	handler := handlers.NewSourceHandler(lister, logger.NewNopLogger())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/sources", handler.List)

	w := getPath(t, router, "/api/sources")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
