//go:build !integration

package apiv1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	apiv1 "ai-doc-generator/internal/infra/api/apiv1"

	"ai-doc-generator/internal/domain"
	"ai-doc-generator/internal/domain/model"
)

//
// ---------------- use case fake ----------------
//

type started struct {
	id        string
	files     []model.SourceFile
	batchSize int
}

type fakeUC struct {
	mu        sync.Mutex
	jobs      map[string]*model.GenerationJob
	starts    []started
	cancels   []string
	startErr  error
	createErr error
}

func newFakeUC(ids ...string) *fakeUC {
	uc := &fakeUC{jobs: map[string]*model.GenerationJob{}}
	for _, id := range ids {
		uc.jobs[id] = model.NewGenerationJob(id)
	}
	return uc
}

func (f *fakeUC) CreateID(ctx context.Context) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("gen-%d", len(f.jobs)+1)
	f.jobs[id] = model.NewGenerationJob(id)
	return id, nil
}

func (f *fakeUC) StartGeneration(ctx context.Context, id string, files []model.SourceFile, batchSize int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(files) == 0 {
		return fmt.Errorf("%w: no supported files uploaded", domain.ErrInvalidArgument)
	}
	if f.startErr != nil {
		return f.startErr
	}
	if _, ok := f.jobs[id]; !ok {
		return domain.ErrNotFound
	}
	f.starts = append(f.starts, started{id: id, files: files, batchSize: batchSize})
	return nil
}

func (f *fakeUC) GetProgress(ctx context.Context, id string) (string, error) {
	job, err := f.GetJob(ctx, id)
	if err != nil {
		return "", err
	}
	return job.ProgressString(), nil
}

func (f *fakeUC) Cancel(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return domain.ErrNotFound
	}
	f.cancels = append(f.cancels, id)
	return nil
}

func (f *fakeUC) GetJob(ctx context.Context, id string) (*model.GenerationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job.Clone(), nil
}

type fakeExporter struct{ err error }

func (fakeExporter) ContentType() string { return "text/csv" }
func (e fakeExporter) Export(w io.Writer, job *model.GenerationJob) error {
	if e.err != nil {
		return e.err
	}
	for _, d := range job.Result.Descriptions {
		fmt.Fprintf(w, "%s,%s\n", d.Name, d.Text)
	}
	return nil
}

//
// -------------------- test helpers --------------------
//

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

var defaultIntake = apiv1.Intake{
	AllowedExtensions: []string{".py", ".js", ".css"},
	MaxFileBytes:      64,
	MaxUploadBytes:    1 << 20,
}

func newRouter(uc *fakeUC, guard apiv1.Guard) *chi.Mux {
	r := chi.NewRouter()
	apiv1.RegisterAPIV1(r, apiv1.NewServer(uc, fakeExporter{}, defaultIntake, guard, newLogger()))
	return r
}

type part struct{ name, body string }

func multipartBody(t *testing.T, fields map[string]string, files ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("files[]", f.name)
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		_, _ = fw.Write([]byte(f.body))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, r http.Handler, fields map[string]string, files ...part) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	return do(r, req)
}

//
// -------------------- tests --------------------
//

func TestGenerateID(t *testing.T) {
	t.Run("200 with a fresh id", func(t *testing.T) {
		r := newRouter(newFakeUC(), nil)
		rec := do(r, httptest.NewRequest(http.MethodGet, "/generate-id", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
		var body struct {
			GenerationID string `json:"generation_id"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.GenerationID == "" {
			t.Fatal("empty generation_id")
		}
	})

	t.Run("store failure maps to 500", func(t *testing.T) {
		uc := newFakeUC()
		uc.createErr = domain.ErrFatal
		rec := do(newRouter(uc, nil), httptest.NewRequest(http.MethodGet, "/generate-id", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("want 500, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "fatal") {
			t.Errorf("internal error details leaked: %s", rec.Body.String())
		}
	})

	t.Run("guard runs on the named route", func(t *testing.T) {
		var seen []string
		guard := func(route string) func(http.Handler) http.Handler {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					seen = append(seen, route)
					w.WriteHeader(http.StatusTooManyRequests)
				})
			}
		}
		rec := do(newRouter(newFakeUC(), guard), httptest.NewRequest(http.MethodGet, "/generate-id", nil))
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("want 429, got %d", rec.Code)
		}
		if len(seen) != 1 || seen[0] != apiv1.RouteGenerateID {
			t.Fatalf("guard saw %v", seen)
		}
	})
}

func TestUpload(t *testing.T) {
	t.Run("202 and start with accepted files", func(t *testing.T) {
		uc := newFakeUC("gen-a")
		rec := upload(t, newRouter(uc, nil),
			map[string]string{"generation_id": "gen-a", "batch_size": "7"},
			part{"a.py", "def f():\n    pass\n"},
			part{"notes.txt", "ignored"},
			part{"b.js", "function g() {}"},
		)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("want 202, got %d, body=%s", rec.Code, rec.Body.String())
		}
		var body struct {
			Success      bool   `json:"success"`
			GenerationID string `json:"generation_id"`
			HTMLPath     string `json:"htmlPath"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !body.Success || body.GenerationID != "gen-a" || body.HTMLPath != "/docs/documentation_gen-a.html" {
			t.Fatalf("unexpected body %+v", body)
		}
		if len(uc.starts) != 1 {
			t.Fatalf("expected one start, got %d", len(uc.starts))
		}
		st := uc.starts[0]
		if st.batchSize != 7 {
			t.Errorf("batch size not forwarded: %d", st.batchSize)
		}
		if len(st.files) != 2 || st.files[0].Name != "a.py" || st.files[1].Name != "b.js" {
			t.Errorf("unexpected files %+v", st.files)
		}
	})

	t.Run("non-integer batch size is treated as missing", func(t *testing.T) {
		uc := newFakeUC("gen-a")
		rec := upload(t, newRouter(uc, nil),
			map[string]string{"generation_id": "gen-a", "batch_size": "lots"},
			part{"a.py", "x = 1"},
		)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("want 202, got %d", rec.Code)
		}
		if uc.starts[0].batchSize != 0 {
			t.Errorf("expected 0 for unparsable batch size, got %d", uc.starts[0].batchSize)
		}
	})

	t.Run("extensions field narrows the accepted set", func(t *testing.T) {
		uc := newFakeUC("gen-a")
		rec := upload(t, newRouter(uc, nil),
			map[string]string{"generation_id": "gen-a", "extensions": "js, .java"},
			part{"a.py", "x = 1"},
			part{"b.js", "let y = 2"},
		)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("want 202, got %d", rec.Code)
		}
		if got := uc.starts[0].files; len(got) != 1 || got[0].Name != "b.js" {
			t.Fatalf("expected only b.js, got %+v", got)
		}
	})

	cases := []struct {
		name   string
		fields map[string]string
		files  []part
		setup  func(*fakeUC)
		want   int
	}{
		{"missing generation id", map[string]string{}, []part{{"a.py", "x"}}, nil, http.StatusBadRequest},
		{"no supported files", map[string]string{"generation_id": "gen-a"}, []part{{"a.txt", "x"}}, nil, http.StatusBadRequest},
		{"file too large", map[string]string{"generation_id": "gen-a"}, []part{{"a.py", strings.Repeat("x", 65)}}, nil, http.StatusBadRequest},
		{"unknown id", map[string]string{"generation_id": "nope"}, []part{{"a.py", "x"}}, nil, http.StatusNotFound},
		{"already started", map[string]string{"generation_id": "gen-a"}, []part{{"a.py", "x"}},
			func(uc *fakeUC) { uc.startErr = domain.ErrNotQueued }, http.StatusConflict},
		{"pool saturated", map[string]string{"generation_id": "gen-a"}, []part{{"a.py", "x"}},
			func(uc *fakeUC) { uc.startErr = fmt.Errorf("%w: queue full", domain.ErrBusy) }, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := newFakeUC("gen-a")
			if tc.setup != nil {
				tc.setup(uc)
			}
			rec := upload(t, newRouter(uc, nil), tc.fields, tc.files...)
			if rec.Code != tc.want {
				t.Fatalf("want %d, got %d, body=%s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}

	t.Run("malformed multipart is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("not multipart"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
		if rec := do(newRouter(newFakeUC(), nil), req); rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})
}

func TestProgress(t *testing.T) {
	uc := newFakeUC("gen-a")
	r := newRouter(uc, nil)

	rec := do(r, httptest.NewRequest(http.MethodGet, "/generation-progress/gen-a", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var body struct {
		Status string `json:"status"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Status != "generating:0" {
		t.Fatalf("queued job should poll as generating:0, got %q", body.Status)
	}

	rec = do(r, httptest.NewRequest(http.MethodGet, "/generation-progress/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("expected error body, got %s", rec.Body.String())
	}
}

func TestCancel(t *testing.T) {
	post := func(r http.Handler, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/cancel-generation", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return do(r, req)
	}

	t.Run("acknowledged", func(t *testing.T) {
		uc := newFakeUC("gen-a")
		rec := post(newRouter(uc, nil), `{"generation_id":"gen-a"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
		if strings.TrimSpace(rec.Body.String()) != `{"acknowledged":true}` {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
		if len(uc.cancels) != 1 || uc.cancels[0] != "gen-a" {
			t.Errorf("cancel not forwarded: %v", uc.cancels)
		}
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		if rec := post(newRouter(newFakeUC(), nil), `{"generation_id":"nope"}`); rec.Code != http.StatusNotFound {
			t.Fatalf("want 404, got %d", rec.Code)
		}
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		for _, body := range []string{`{`, `{"generation_id":""}`, ``} {
			if rec := post(newRouter(newFakeUC("gen-a"), nil), body); rec.Code != http.StatusBadRequest {
				t.Fatalf("body %q: want 400, got %d", body, rec.Code)
			}
		}
	})

	t.Run("path variant is not served", func(t *testing.T) {
		rec := do(newRouter(newFakeUC("gen-a"), nil), httptest.NewRequest(http.MethodGet, "/cancel-generation/gen-a", nil))
		if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("want 404/405, got %d", rec.Code)
		}
	})
}

func TestExport(t *testing.T) {
	uc := newFakeUC("gen-a", "gen-b")
	done := uc.jobs["gen-a"]
	_ = done.Transition(model.JobStatusGenerating)
	_ = done.SetResult(model.Result{Descriptions: []model.Description{{Name: "f", Text: "Does f."}}})
	_ = done.Transition(model.JobStatusDone)
	r := newRouter(uc, nil)

	rec := do(r, httptest.NewRequest(http.MethodGet, "/docs/gen-a/export.xlsx", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("content type not taken from exporter: %s", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "documentation_gen-a.xlsx") {
		t.Errorf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
	if rec.Body.String() != "f,Does f.\n" {
		t.Errorf("unexpected export %q", rec.Body.String())
	}

	if rec := do(r, httptest.NewRequest(http.MethodGet, "/docs/gen-b/export.xlsx", nil)); rec.Code != http.StatusConflict {
		t.Fatalf("unfinished job: want 409, got %d", rec.Code)
	}
	if rec := do(r, httptest.NewRequest(http.MethodGet, "/docs/missing/export.xlsx", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown job: want 404, got %d", rec.Code)
	}
}
