package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/naudiz/internal/testutil"
	"github.com/starford/naudiz/internal/valsvc"
)

// testEnv sets up a temp workspace, SQLite DB, service, and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (string, *valsvc.Service, http.Handler) {
	t.Helper()

	dir, store := testutil.TestWorkspace(t)
	db := testutil.TestDB(t)

	svc := valsvc.NewService(store, db)
	router := NewRouter(svc, authToken != "", authToken, nil)
	return dir, svc, router
}

func writeManifest(t *testing.T, dir, rel, content string) {
	t.Helper()
	abs := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestValidateAndGetManifest(t *testing.T) {
	dir, _, router := testEnv(t, "")
	writeManifest(t, dir, "package.json", `{"name": "demo", "dependencies": {"left-pad": "^1.0.0"}}`)

	// Force validation.
	req := httptest.NewRequest(http.MethodPost, "/validate/package.json", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("validate status = %d, body = %s", w.Code, w.Body.String())
	}

	// Read the stored result back.
	req = httptest.NewRequest(http.MethodGet, "/manifests/package.json", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var detail ManifestDetail
	_ = json.Unmarshal(w.Body.Bytes(), &detail)
	if detail.Path != "package.json" || detail.Valid {
		t.Errorf("detail = %+v", detail)
	}
	if len(detail.Diagnostics) != 1 || detail.Diagnostics[0].Name != "left-pad" {
		t.Errorf("diagnostics = %+v", detail.Diagnostics)
	}
}

func TestGetManifest_NotFound(t *testing.T) {
	_, _, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodGet, "/manifests/nope/package.json", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestValidate_MissingManifest(t *testing.T) {
	_, _, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/validate/missing/package.json", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListManifests(t *testing.T) {
	dir, _, router := testEnv(t, "")
	writeManifest(t, dir, "package.json", `{"name": "root"}`)
	writeManifest(t, dir, "packages/web/package.json", `{"name": "web", "dependencies": {"vue": "^3.0.0"}}`)

	for _, p := range []string{"package.json", "packages/web/package.json"} {
		req := httptest.NewRequest(http.MethodPost, "/validate/"+p, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("validate %s = %d", p, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/manifests", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp ManifestListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Manifests) != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestInstallEndpoint(t *testing.T) {
	dir, svc, router := testEnv(t, "")
	writeManifest(t, dir, "package.json", `{"dependencies": {"left-pad": "^1.0.0"}}`)

	svc.WithInstallRunner(func(_ context.Context, root, name, rng string) error {
		testutil.InstallPackage(t, root, "left-pad", "1.3.0")
		return nil
	})

	body, _ := json.Marshal(InstallRequest{Name: "left-pad", Range: "^1.0.0"})
	req := httptest.NewRequest(http.MethodPost, "/install/package.json", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("install status = %d, body = %s", w.Code, w.Body.String())
	}

	var report valsvc.InstallReport
	_ = json.Unmarshal(w.Body.Bytes(), &report)
	if report.Command != "npm install left-pad@^1.0.0" {
		t.Errorf("command = %q", report.Command)
	}

	// The fresh result should now be clean.
	req = httptest.NewRequest(http.MethodGet, "/manifests/package.json", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var detail ManifestDetail
	_ = json.Unmarshal(w.Body.Bytes(), &detail)
	if !detail.Valid {
		t.Errorf("detail = %+v, want valid after install", detail)
	}
}

func TestInstallEndpoint_InvalidBody(t *testing.T) {
	dir, _, router := testEnv(t, "")
	writeManifest(t, dir, "package.json", `{"name": "x"}`)

	req := httptest.NewRequest(http.MethodPost, "/install/package.json", bytes.NewReader([]byte("{broken")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	dir, _, router := testEnv(t, "")
	writeManifest(t, dir, "package.json", `{"dependencies": {"react": "^18.0.0"}}`)

	req := httptest.NewRequest(http.MethodPost, "/validate/package.json", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	req = httptest.NewRequest(http.MethodGet, "/search?q=react", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Dependency != "react" {
		t.Errorf("results = %+v", resp.Results)
	}

	// Missing query parameter.
	req = httptest.NewRequest(http.MethodGet, "/search", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	dir, _, router := testEnv(t, "")
	writeManifest(t, dir, "package.json", `{"dependencies": {"left-pad": "^1.0.0"}}`)

	req := httptest.NewRequest(http.MethodPost, "/validate/package.json", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	req = httptest.NewRequest(http.MethodGet, "/summary", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("summary status = %d", w.Code)
	}
	var resp SummaryResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Manifests != 1 || resp.Invalid != 1 || resp.Diagnostics != 1 {
		t.Errorf("summary = %+v", resp)
	}
}

func TestAuth_TokenRequired(t *testing.T) {
	_, _, router := testEnv(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/manifests", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/manifests", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status with bad token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/manifests", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status with token = %d, want 200", w.Code)
	}
}
