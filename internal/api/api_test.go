package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kovalyov-valentin/news-ingest/internal/ingest"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
	"github.com/kovalyov-valentin/news-ingest/internal/storage"
	"github.com/kovalyov-valentin/news-ingest/internal/webhook"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRunner struct {
	summary model.BatchSummary
	err     error
	calls   int
}

func (s *stubRunner) RunOnce(context.Context) (model.BatchSummary, error) {
	s.calls++
	return s.summary, s.err
}

type recordingIngestor struct {
	payloads []webhook.Payload
	err      error
}

func (r *recordingIngestor) Ingest(_ context.Context, p webhook.Payload) (model.Article, error) {
	if r.err != nil {
		return model.Article{}, r.err
	}
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Content) == "" {
		return model.Article{}, webhook.ErrValidation
	}
	r.payloads = append(r.payloads, p)
	return model.Article{ID: "a-1", Slug: "t-1"}, nil
}

type stubLister struct {
	views []model.ArticleView
	query storage.ListQuery
}

func (s *stubLister) List(_ context.Context, q storage.ListQuery) ([]model.ArticleView, error) {
	s.query = q
	return s.views, nil
}

func serve(t *testing.T, h Handlers, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	w := serve(t, Handlers{}, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCronAuth(t *testing.T) {
	cases := []struct {
		name   string
		auth   CronAuth
		header map[string]string
		want   int
	}{
		{"open in development", CronAuth{}, nil, http.StatusOK},
		{"bearer secret", CronAuth{Secret: "s3cret"}, map[string]string{"Authorization": "Bearer s3cret"}, http.StatusOK},
		{"wrong secret", CronAuth{Secret: "s3cret"}, map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"secret prefix", CronAuth{Secret: "s3cret"}, map[string]string{"Authorization": "Bearer s3cre"}, http.StatusUnauthorized},
		{"secret with suffix", CronAuth{Secret: "s3cret"}, map[string]string{"Authorization": "Bearer s3cret2"}, http.StatusUnauthorized},
		{"secret without scheme", CronAuth{Secret: "s3cret"}, map[string]string{"Authorization": "s3cret"}, http.StatusUnauthorized},
		{"trusted header", CronAuth{Secret: "s3cret"}, map[string]string{"x-vercel-cron": "1"}, http.StatusOK},
		{"production without secret", CronAuth{Production: true}, nil, http.StatusUnauthorized},
		{"production empty bearer", CronAuth{Production: true}, map[string]string{"Authorization": "Bearer "}, http.StatusUnauthorized},
		{"custom trusted header", CronAuth{Production: true, TrustedHeader: "x-cron"}, map[string]string{"x-cron": "1"}, http.StatusOK},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			runner := &stubRunner{}
			req := httptest.NewRequest(http.MethodGet, "/api/cron/fetch-and-process", nil)
			for k, v := range c.header {
				req.Header.Set(k, v)
			}

			w := serve(t, Handlers{Cron: NewCronHandler(runner, c.auth)}, req)
			if w.Code != c.want {
				t.Fatalf("status = %d; want %d", w.Code, c.want)
			}
			if c.want == http.StatusUnauthorized {
				if runner.calls != 0 {
					t.Error("runner called without authorization")
				}
				if decode(t, w)["error"] != "Unauthorized" {
					t.Errorf("unexpected body %s", w.Body.String())
				}
			}
		})
	}
}

func TestCronResponses(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		runner := &stubRunner{summary: model.BatchSummary{
			TotalStored:  3,
			TotalSkipped: 2,
			AllErrors:    []model.ItemError{{SourceID: 2, Stage: model.StageFetch, Message: "down"}},
			SourceResults: []model.IngestionResult{
				{SourceID: 1, SourceName: "one", Stored: 3, Skipped: 2, Errors: []model.ItemError{}},
				{SourceID: 2, SourceName: "two", Errors: []model.ItemError{{SourceID: 2, Stage: model.StageFetch, Message: "down"}}},
			},
		}}

		req := httptest.NewRequest(http.MethodPost, "/api/cron/fetch-and-process", nil)
		w := serve(t, Handlers{Cron: NewCronHandler(runner, CronAuth{})}, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}

		var body cronResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := cronSummary{TotalStored: 3, TotalSkipped: 2, ErrorCount: 1}
		if !body.Success || body.Summary != want || len(body.Results) != 2 {
			t.Fatalf("unexpected body %s", w.Body.String())
		}
	})

	errorCases := []struct {
		name    string
		err     error
		status  int
		key     string
		message string
	}{
		{"no author", ingest.ErrPrecondition, http.StatusInternalServerError, "error", "System author not found"},
		{"no sources", ingest.ErrNoActiveSources, http.StatusOK, "message", "No active sources found"},
		{"database down", errors.New("connection refused"), http.StatusInternalServerError, "error", "Internal Server Error"},
	}
	for _, c := range errorCases {
		t.Run(c.name, func(t *testing.T) {
			runner := &stubRunner{err: c.err}
			req := httptest.NewRequest(http.MethodGet, "/api/cron/fetch-and-process", nil)
			w := serve(t, Handlers{Cron: NewCronHandler(runner, CronAuth{})}, req)

			if w.Code != c.status {
				t.Fatalf("status = %d; want %d", w.Code, c.status)
			}
			if got := decode(t, w)[c.key]; got != c.message {
				t.Errorf("%s = %v; want %q", c.key, got, c.message)
			}
		})
	}
}

func webhookRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/n8n-blog", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("blog", "token")
	return req
}

func TestWebhookJSON(t *testing.T) {
	ingestor := &recordingIngestor{}
	h := Handlers{Webhook: NewWebhookHandler(ingestor, "token")}

	w := serve(t, h, webhookRequest(`{"title":"T","content":"C"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	body := decode(t, w)
	if body["message"] != "Blog created successfully" {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	article, _ := body["article"].(map[string]any)
	if article["id"] != "a-1" || article["slug"] != "t-1" {
		t.Errorf("unexpected article %v", article)
	}
	if _, ok := article["image"]; !ok {
		t.Error("image key must be present even when empty")
	}
	if ingestor.payloads[0].Category != "" {
		t.Errorf("category = %q", ingestor.payloads[0].Category)
	}
}

func TestWebhookMissingContent(t *testing.T) {
	ingestor := &recordingIngestor{}
	h := Handlers{Webhook: NewWebhookHandler(ingestor, "token")}

	w := serve(t, h, webhookRequest(`{"title":"T"}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if decode(t, w)["error"] != "Title and Content are required" {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if len(ingestor.payloads) != 0 {
		t.Error("payload accepted")
	}
}

func TestWebhookAuth(t *testing.T) {
	cases := []struct {
		name   string
		token  string
		header string
	}{
		{"wrong header", "token", "other"},
		{"token prefix", "token", "tok"},
		{"token with suffix", "token", "token2"},
		{"missing header", "token", ""},
		{"token not configured", "", ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ingestor := &recordingIngestor{}
			req := webhookRequest(`{"title":"T","content":"C"}`)
			req.Header.Set("blog", c.header)

			w := serve(t, Handlers{Webhook: NewWebhookHandler(ingestor, c.token)}, req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d", w.Code)
			}
			if len(ingestor.payloads) != 0 {
				t.Error("unauthorized payload accepted")
			}
		})
	}
}

func TestWebhookCategoryShapes(t *testing.T) {
	cases := map[string]string{
		`{"title":"T","content":"C","category":"Tech"}`:                  "Tech",
		`{"title":"T","content":"C","categories":["World News","x"]}`:    "World News",
		`{"title":"T","content":"C","category":"","categories":"Sport"}`: "Sport",
		`{"title":"T","content":"C","categories":[]}`:                    "",
	}

	for body, want := range cases {
		ingestor := &recordingIngestor{}
		w := serve(t, Handlers{Webhook: NewWebhookHandler(ingestor, "token")}, webhookRequest(body))
		if w.Code != http.StatusCreated {
			t.Fatalf("%s: status = %d", body, w.Code)
		}
		if got := ingestor.payloads[0].Category; got != want {
			t.Errorf("%s: category = %q; want %q", body, got, want)
		}
	}
}

func TestWebhookImageURL(t *testing.T) {
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png"))
	}))
	defer images.Close()

	ingestor := &recordingIngestor{}
	h := Handlers{Webhook: NewWebhookHandler(ingestor, "token")}

	w := serve(t, h, webhookRequest(`{"title":"T","content":"C","imageUrl":"`+images.URL+`/photos/cat.png?w=200"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	img := ingestor.payloads[0].Image
	if img == nil || string(img.Data) != "png" || img.FileName != "cat.png" || img.MimeType != "image/png" {
		t.Fatalf("unexpected image %+v", img)
	}

	w = serve(t, h, webhookRequest(`{"title":"T","content":"C","featuredImageUrl":"`+images.URL+`/missing.png"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	if ingestor.payloads[1].Image != nil {
		t.Error("failed download must leave the article without an image")
	}
}

func TestWebhookImageBase64(t *testing.T) {
	ingestor := &recordingIngestor{}
	h := Handlers{Webhook: NewWebhookHandler(ingestor, "token")}

	encoded := base64.StdEncoding.EncodeToString([]byte("gif-bytes"))
	w := serve(t, h, webhookRequest(`{"title":"T","content":"C","imageBase64":"`+encoded+`","imageMimeType":"image/gif"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}

	img := ingestor.payloads[0].Image
	if img == nil || string(img.Data) != "gif-bytes" || img.FileName != "image.jpg" || img.MimeType != "image/gif" {
		t.Fatalf("unexpected image %+v", img)
	}
}

func TestWebhookMultipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("title", "Multipart title")
	mw.WriteField("content", "Body")
	mw.WriteField("category", "science")
	part, _ := mw.CreateFormFile("image", "photo.jpg")
	part.Write([]byte("jpeg-bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/n8n-blog", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("blog", "token")

	ingestor := &recordingIngestor{}
	w := serve(t, Handlers{Webhook: NewWebhookHandler(ingestor, "token")}, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	p := ingestor.payloads[0]
	if p.Title != "Multipart title" || p.Category != "science" {
		t.Errorf("unexpected payload %+v", p)
	}
	if p.Image == nil || string(p.Image.Data) != "jpeg-bytes" || p.Image.FileName != "photo.jpg" {
		t.Errorf("unexpected image %+v", p.Image)
	}
}

func TestWebhookStorageErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		message string
	}{
		{"upload", &webhook.StorageError{Op: "upload image", Err: errors.New("denied")}, "S3 Upload Failed"},
		{"write", &webhook.StorageError{Op: "store article", Err: errors.New("db down")}, "Internal Server Error"},
		{"no author", webhook.ErrPrecondition, "Internal Server Error"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ingestor := &recordingIngestor{err: c.err}
			w := serve(t, Handlers{Webhook: NewWebhookHandler(ingestor, "token")}, webhookRequest(`{"title":"T","content":"C"}`))
			if w.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d", w.Code)
			}
			if decode(t, w)["error"] != c.message {
				t.Errorf("unexpected body %s", w.Body.String())
			}
		})
	}
}

func TestArticlesListing(t *testing.T) {
	image := "https://cdn.example.com/a.jpg"
	lister := &stubLister{views: []model.ArticleView{
		{
			Article: model.Article{
				ID:          "1",
				Title:       "Hello",
				Slug:        "hello-1",
				Content:     "<p>" + strings.Repeat("x", 200) + "</p>",
				Image:       &image,
				PublishedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			},
			CategoryName: "Technology",
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/articles?category=technology&limit=5", nil)
	w := serve(t, Handlers{Articles: NewArticlesHandler(lister)}, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if lister.query != (storage.ListQuery{Category: "technology", Limit: 5}) {
		t.Errorf("query = %+v", lister.query)
	}

	var body struct {
		Articles []articleItem `json:"articles"`
		Count    int           `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 {
		t.Fatalf("count = %d", body.Count)
	}

	got := body.Articles[0]
	if got.Link != "/article/hello-1" || got.Category != "Technology" || got.Author != "Editorial Team" {
		t.Errorf("unexpected item %+v", got)
	}
	if got.PubDate != "2024-01-02T03:04:05Z" {
		t.Errorf("pubDate = %q", got.PubDate)
	}
	if !strings.HasSuffix(got.Description, "...") || strings.Contains(got.Description, "<p>") {
		t.Errorf("description = %q", got.Description)
	}
}

func TestArticlesInvalidLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/articles?limit=ten", nil)
	w := serve(t, Handlers{Articles: NewArticlesHandler(&stubLister{})}, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}
