package app

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

// newTestRouter builds the real route table with auth bypassed and no backing
// DB, storage or engine.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	t.Setenv("AUTH_DISABLED", "true")
	gin.SetMode(gin.TestMode)

	router, err := NewRouter()
	if err != nil {
		t.Fatalf("NewRouter error: %v", err)
	}
	return router
}

func postForm(t *testing.T, router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func multipartUpload(t *testing.T, voiceName, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if voiceName != "" {
		if err := w.WriteField("voice_name", voiceName); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("part write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("multipart close: %v", err)
	}
	return &body, w.FormDataContentType()
}

// installFakeEngine swaps the package-global engine for one that writes the
// requested output file and reports done.
func installFakeEngine(t *testing.T) {
	t.Helper()
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()

	go func() {
		commands := bufio.NewScanner(stdinR)
		for commands.Scan() {
			var cmd synthCommand
			if err := json.Unmarshal(commands.Bytes(), &cmd); err != nil {
				continue
			}
			_ = os.WriteFile(cmd.Output, []byte("RIFF"), 0o600)
			_, _ = fmt.Fprintln(stdoutW, "done")
		}
	}()

	prev := engine
	engine = &TTSEngine{
		in:     bufio.NewWriter(stdinW),
		out:    bufio.NewScanner(stdoutR),
		status: EngineReady,
		slots:  make(chan struct{}, 1),
	}
	t.Cleanup(func() {
		engine = prev
		stdinW.Close()
		stdoutW.Close()
	})
}

func expectProfileRow(mock sqlmock.Sqlmock, used, limit int) {
	rows := sqlmock.NewRows([]string{
		"email", "tier", "generations_used", "generations_limit",
		"stripe_customer_id", "stripe_subscription_id",
	}).AddRow("local-dev@localhost", "free", used, limit, nil, nil)
	mock.ExpectQuery(`SELECT email, tier`).WithArgs("local-dev").WillReturnRows(rows)
}

func expectVoiceRow(mock sqlmock.Sqlmock, voiceID string) {
	rows := sqlmock.NewRows([]string{"id", "name", "storage_path", "duration", "created_at"}).
		AddRow(voiceID, "sample", "local-dev/voices/"+voiceID+".wav", 10.0, time.Now())
	mock.ExpectQuery(`FROM voices`).WithArgs(voiceID, "local-dev").WillReturnRows(rows)
}

func TestGenerateSuccessIncrementsUsageOnce(t *testing.T) {
	installFakeEngine(t)
	mock := withMockDB(t)
	expectProfileRow(mock, 0, 10)
	expectVoiceRow(mock, "voice-1")
	mock.ExpectExec(`INSERT INTO generations`).
		WithArgs(sqlmock.AnyArg(), "local-dev", "voice-1", "hello there", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET generations_used = generations_used \+ 1`).
		WithArgs("local-dev").
		WillReturnResult(sqlmock.NewResult(0, 1))

	router := newTestRouter(t)
	resp := postForm(t, router, "/api/voice/generate", url.Values{
		"voice_id": {"voice-1"},
		"text":     {"hello there"},
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}
	// Remaining is computed from the pre-increment snapshot: 10 - 0 - 1.
	if !strings.Contains(resp.Body.String(), `"generations_remaining":9`) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGenerateSurfacesIncrementFailure(t *testing.T) {
	installFakeEngine(t)
	mock := withMockDB(t)
	expectProfileRow(mock, 0, 10)
	expectVoiceRow(mock, "voice-1")
	mock.ExpectExec(`INSERT INTO generations`).
		WithArgs(sqlmock.AnyArg(), "local-dev", "voice-1", "hello", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET generations_used = generations_used \+ 1`).
		WithArgs("local-dev").
		WillReturnResult(sqlmock.NewResult(0, 0))

	router := newTestRouter(t)
	resp := postForm(t, router, "/api/voice/generate", url.Values{
		"voice_id": {"voice-1"},
		"text":     {"hello"},
	})

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when the usage increment fails, got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestGenerateQuotaExhausted(t *testing.T) {
	mock := withMockDB(t)
	expectProfileRow(mock, 10, 10)

	router := newTestRouter(t)
	resp := postForm(t, router, "/api/voice/generate", url.Values{
		"voice_id": {"voice-1"},
		"text":     {"hello"},
	})

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "Generation limit reached. Upgrade to Pro for more.") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestGenerateRejectsTextTooLong(t *testing.T) {
	router := newTestRouter(t)

	resp := postForm(t, router, "/api/voice/generate", url.Values{
		"voice_id": {"voice-1"},
		"text":     {strings.Repeat("a", 5001)},
	})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "Text too long (max 5000 chars)") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestGenerateUnknownVoice(t *testing.T) {
	router := newTestRouter(t)

	resp := postForm(t, router, "/api/voice/generate", url.Values{
		"voice_id": {"no-such-voice"},
		"text":     {"hello"},
	})

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "Voice not found") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestGenerateMissingParams(t *testing.T) {
	router := newTestRouter(t)

	resp := postForm(t, router, "/api/voice/generate", url.Values{"text": {"hello"}})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestUploadRejectsNonAudio(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartUpload(t, "sample", "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/voice/upload-voice", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "File must be audio") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestUploadRejectsLongAudioAndCleansUp(t *testing.T) {
	router := newTestRouter(t)

	wavPath := filepath.Join(t.TempDir(), "long.wav")
	writeTestWAV(t, wavPath, 31)
	data, err := os.ReadFile(wavPath)
	if err != nil {
		t.Fatalf("read test wav: %v", err)
	}

	body, contentType := multipartUpload(t, "too-long", "long.wav", "audio/wav", data)
	req := httptest.NewRequest(http.MethodPost, "/api/voice/upload-voice", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "Audio must be under 30s") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}

	// The scratch file staged for duration measurement must be gone.
	leftovers, _ := filepath.Glob(filepath.Join(scratchDir, "upload_*"))
	if len(leftovers) != 0 {
		t.Fatalf("scratch files left behind: %v", leftovers)
	}
}

func TestUploadMissingVoiceName(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartUpload(t, "", "sample.wav", "audio/wav", []byte("riff"))
	req := httptest.NewRequest(http.MethodPost, "/api/voice/upload-voice", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestUploadTenSecondSample(t *testing.T) {
	router := newTestRouter(t)

	wavPath := filepath.Join(t.TempDir(), "sample.wav")
	writeTestWAV(t, wavPath, 10)
	data, err := os.ReadFile(wavPath)
	if err != nil {
		t.Fatalf("read test wav: %v", err)
	}

	body, contentType := multipartUpload(t, "sample", "sample.wav", "audio/wav", data)
	req := httptest.NewRequest(http.MethodPost, "/api/voice/upload-voice", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"name":"sample"`) {
		t.Fatalf("response missing voice name: %s", resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"voice_id"`) {
		t.Fatalf("response missing voice_id: %s", resp.Body.String())
	}
}

func TestMyVoicesAndUsageWithoutDB(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/voice/my-voices", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"voices"`) {
		t.Fatalf("my-voices: %d %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/voice/usage", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("usage: %d %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"generations_limit":10`) {
		t.Fatalf("usage body: %s", resp.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "VoiceClone Studio API") {
		t.Fatalf("root: %d %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "healthy") {
		t.Fatalf("health: %d %s", resp.Code, resp.Body.String())
	}
}
