package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gdg-garage/wedding-api/internal/auth"
	"github.com/gdg-garage/wedding-api/internal/config"
	"github.com/gdg-garage/wedding-api/internal/database"
	"github.com/gdg-garage/wedding-api/internal/metrics"
	"github.com/gdg-garage/wedding-api/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testAdminKey = "test-admin-key"

type recordingNotifier struct {
	mu     sync.Mutex
	rsvps  []models.RSVP
	photos []models.Photo
	err    error
}

func (n *recordingNotifier) NotifyRSVP(ctx context.Context, r models.RSVP) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rsvps = append(n.rsvps, r)
	return n.err
}

func (n *recordingNotifier) NotifyPhoto(ctx context.Context, p models.Photo) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.photos = append(n.photos, p)
	return n.err
}

type testServer struct {
	t        *testing.T
	db       *gorm.DB
	router   *chi.Mux
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	cfg      *config.Config
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	// Every pooled connection to :memory: would open a fresh database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cfg := &config.Config{
		UploadDir:       t.TempDir(),
		MaxUploadSize:   maxUpload,
		AdminKey:        testAdminKey,
		JWTSecret:       "test-secret",
		AdminSessionTTL: time.Hour,
	}

	n := &recordingNotifier{}
	m := metrics.New()
	authHandler := auth.NewAdminAuth(cfg)

	r := chi.NewRouter()
	RegisterRoutes(r, cfg, zerolog.Nop(), Handlers{
		Auth:    authHandler,
		RSVP:    NewRSVPHandler(db, n, authHandler, m),
		Photo:   NewPhotoHandler(db, n, authHandler, m, cfg.UploadDir, cfg.MaxUploadSize),
		Metrics: m,
	})

	return &testServer{t: t, db: db, router: r, notifier: n, metrics: m, cfg: cfg}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	s.t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) postJSON(path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		s.t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *testServer) admin(method, path string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(auth.HeaderName, testAdminKey)
	return s.do(req)
}

type upload struct {
	fields   map[string]string
	filename string
	mimeType string
	data     []byte
}

func (s *testServer) upload(u upload) *httptest.ResponseRecorder {
	s.t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range u.fields {
		if err := mw.WriteField(k, v); err != nil {
			s.t.Fatalf("write field: %v", err)
		}
	}
	if u.data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="`+u.filename+`"`)
		h.Set("Content-Type", u.mimeType)
		part, err := mw.CreatePart(h)
		if err != nil {
			s.t.Fatalf("create part: %v", err)
		}
		part.Write(u.data)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/photos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

type problem struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Errors []struct {
		Location string `json:"location"`
		Message  string `json:"message"`
	} `json:"errors"`
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) problem {
	t.Helper()
	var p problem
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return p
}

func (p problem) locations() map[string]bool {
	locs := make(map[string]bool, len(p.Errors))
	for _, e := range p.Errors {
		locs[e.Location] = true
	}
	return locs
}

func ptr[T any](v T) *T {
	return &v
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}
