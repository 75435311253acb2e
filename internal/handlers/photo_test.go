package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gdg-garage/wedding-api/internal/auth"
	"github.com/gdg-garage/wedding-api/internal/models"
)

func validUpload() upload {
	return upload{
		fields:   map[string]string{"guestName": "Anna Muster", "message": "  Congratulations!  "},
		filename: "IMG_0001.jpg",
		mimeType: "image/jpeg",
		data:     []byte("not really a jpeg but the server stores bytes as received"),
	}
}

func uploadID(t *testing.T, s *testServer, u upload) uint {
	t.Helper()
	rec := s.upload(u)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success bool   `json:"success"`
		ID      uint   `json:"id"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.Success || body.ID == 0 {
		t.Fatalf("unexpected response: %+v", body)
	}
	return body.ID
}

func TestHandleUpload(t *testing.T) {
	t.Run("Stored", func(t *testing.T) {
		s := newTestServer(t, 1<<20)
		u := validUpload()
		id := uploadID(t, s, u)

		var photo models.Photo
		if err := s.db.First(&photo, id).Error; err != nil {
			t.Fatalf("failed to load photo: %v", err)
		}
		if photo.Approved {
			t.Error("expected new photo to await moderation")
		}
		if photo.GuestName != "Anna Muster" || photo.Message == nil || *photo.Message != "Congratulations!" {
			t.Errorf("unexpected details: %q %v", photo.GuestName, photo.Message)
		}
		if photo.OriginalName != "IMG_0001.jpg" || photo.MimeType != "image/jpeg" || filepath.Ext(photo.Filename) != ".jpg" {
			t.Errorf("unexpected file metadata: %+v", photo)
		}

		data, err := os.ReadFile(filepath.Join(s.cfg.UploadDir, photo.Filename))
		if err != nil {
			t.Fatalf("stored file missing: %v", err)
		}
		if !bytes.Equal(data, u.data) || photo.FileSize != int64(len(u.data)) {
			t.Errorf("stored file differs from upload")
		}
		if len(s.notifier.photos) != 1 {
			t.Errorf("expected 1 notification, got %d", len(s.notifier.photos))
		}
	})

	t.Run("TooLarge", func(t *testing.T) {
		s := newTestServer(t, 1024)
		u := validUpload()
		u.data = bytes.Repeat([]byte{0xff}, 2048)

		rec := s.upload(u)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
		}
		assertNoPhotos(t, s)
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		s := newTestServer(t, 1<<20)
		u := validUpload()
		u.filename = "anim.gif"
		u.mimeType = "image/gif"

		rec := s.upload(u)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
		if !decodeProblem(t, rec).locations()["body.image"] {
			t.Errorf("expected error at body.image")
		}
		assertNoPhotos(t, s)
	})

	t.Run("AllFieldsReported", func(t *testing.T) {
		s := newTestServer(t, 1<<20)
		u := validUpload()
		u.fields = map[string]string{"guestName": " A "}
		u.data = nil

		rec := s.upload(u)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
		locs := decodeProblem(t, rec).locations()
		if !locs["body.guestName"] || !locs["body.image"] {
			t.Errorf("expected guestName and image errors, got %v", locs)
		}
		assertNoPhotos(t, s)
	})
}

func assertNoPhotos(t *testing.T, s *testServer) {
	t.Helper()
	var count int64
	s.db.Model(&models.Photo{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no stored photo, got %d", count)
	}
	entries, _ := os.ReadDir(s.cfg.UploadDir)
	if len(entries) != 0 {
		t.Errorf("expected empty upload dir, got %d files", len(entries))
	}
}

func TestModeration(t *testing.T) {
	s := newTestServer(t, 1<<20)
	first := uploadID(t, s, validUpload())
	second := uploadID(t, s, validUpload())

	listApproved := func() []PhotoResponse {
		t.Helper()
		rec := s.do(newRequest(http.MethodGet, "/api/photos"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var photos []PhotoResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &photos); err != nil {
			t.Fatalf("failed to decode photos: %v", err)
		}
		return photos
	}

	var firstPhoto models.Photo
	s.db.First(&firstPhoto, first)
	fileURL := uploadsPath + firstPhoto.Filename

	t.Run("PendingHidden", func(t *testing.T) {
		if photos := listApproved(); len(photos) != 0 {
			t.Errorf("expected no approved photos, got %d", len(photos))
		}
		if rec := s.do(newRequest(http.MethodGet, fileURL)); rec.Code != http.StatusNotFound {
			t.Errorf("expected pending file to be hidden, got %d", rec.Code)
		}
		if rec := s.admin(http.MethodGet, fileURL); rec.Code != http.StatusOK {
			t.Errorf("expected admin to see pending file, got %d", rec.Code)
		}
	})

	t.Run("AdminRequired", func(t *testing.T) {
		paths := []struct{ method, path string }{
			{http.MethodGet, "/api/admin/photos"},
			{http.MethodPatch, fmt.Sprintf("/api/admin/photos/%d/approval", first)},
			{http.MethodDelete, fmt.Sprintf("/api/admin/photos/%d", first)},
			{http.MethodGet, "/metrics"},
		}
		for _, p := range paths {
			req := newRequest(p.method, p.path)
			req.Header.Set(auth.HeaderName, "wrong-key")
			if rec := s.do(req); rec.Code != http.StatusUnauthorized {
				t.Errorf("%s %s: expected 401, got %d", p.method, p.path, rec.Code)
			}
		}
	})

	t.Run("Approve", func(t *testing.T) {
		rec := s.admin(http.MethodPatch, fmt.Sprintf("/api/admin/photos/%d/approval", first))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var photo AdminPhotoResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &photo); err != nil {
			t.Fatalf("failed to decode photo: %v", err)
		}
		if !photo.Approved {
			t.Error("expected photo to be approved")
		}

		photos := listApproved()
		if len(photos) != 1 || photos[0].ID != first {
			t.Fatalf("expected only photo %d in gallery, got %+v", first, photos)
		}
		if photos[0].URL != fileURL {
			t.Errorf("expected url %s, got %s", fileURL, photos[0].URL)
		}
		if rec := s.do(newRequest(http.MethodGet, fileURL)); rec.Code != http.StatusOK {
			t.Errorf("expected approved file to be public, got %d", rec.Code)
		}
	})

	t.Run("AdminListIncludesPending", func(t *testing.T) {
		rec := s.admin(http.MethodGet, "/api/admin/photos")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var photos []AdminPhotoResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &photos); err != nil {
			t.Fatalf("failed to decode photos: %v", err)
		}
		if len(photos) != 2 {
			t.Fatalf("expected 2 photos, got %d", len(photos))
		}
		approved := map[uint]bool{}
		for _, p := range photos {
			approved[p.ID] = p.Approved
		}
		if !approved[first] || approved[second] {
			t.Errorf("unexpected approval flags: %v", approved)
		}
	})

	t.Run("Unapprove", func(t *testing.T) {
		rec := s.admin(http.MethodPatch, fmt.Sprintf("/api/admin/photos/%d/approval", first))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if photos := listApproved(); len(photos) != 0 {
			t.Errorf("expected empty gallery, got %d", len(photos))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		rec := s.admin(http.MethodDelete, fmt.Sprintf("/api/admin/photos/%d", first))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
		}
		if _, err := os.Stat(filepath.Join(s.cfg.UploadDir, firstPhoto.Filename)); !os.IsNotExist(err) {
			t.Errorf("expected file removed, got %v", err)
		}
		var count int64
		s.db.Unscoped().Model(&models.Photo{}).Where("id = ?", first).Count(&count)
		if count != 0 {
			t.Errorf("expected photo row removed")
		}

		rec = s.admin(http.MethodDelete, fmt.Sprintf("/api/admin/photos/%d", first))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 on second delete, got %d", rec.Code)
		}
	})

	t.Run("ToggleMissing", func(t *testing.T) {
		rec := s.admin(http.MethodPatch, "/api/admin/photos/9999/approval")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}
