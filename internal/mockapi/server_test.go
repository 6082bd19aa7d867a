package mockapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kumbo-archives/archives-client/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer() *gin.Engine {
	return NewServer(ServerParams{}).Router()
}

type testEnvelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *errorBody         `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env testEnvelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func login(t *testing.T, router *gin.Engine, email string) (string, models.User) {
	t.Helper()
	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": DevPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User
}

func TestLoginWithSeededAccount(t *testing.T) {
	router := newTestServer()
	token, user := login(t, router, "admin@kumbo.org")
	assert.NotEmpty(t, token)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	router := newTestServer()
	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@kumbo.org",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
}

func TestLoginValidationReportsFields(t *testing.T) {
	router := newTestServer()
	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.NotEmpty(t, env.Error.Fields)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestServer()
	rec, env := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestUserRoutesRequireAdmin(t *testing.T) {
	router := newTestServer()
	token, _ := login(t, router, "researcher@kumbo.org")

	rec, env := doJSON(t, router, http.MethodGet, "/api/v1/users", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}

func TestListUsersFiltersAndPaginates(t *testing.T) {
	router := newTestServer()
	token, _ := login(t, router, "admin@kumbo.org")

	rec, env := doJSON(t, router, http.MethodGet, "/api/v1/users?role=staff", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []models.User
	require.NoError(t, json.Unmarshal(env.Data, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "staff@kumbo.org", users[0].Email)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.Total)
}

func TestRegisterAndDuplicateEmail(t *testing.T) {
	router := newTestServer()
	payload := map[string]string{
		"email":      "new@kumbo.org",
		"full_name":  "New Person",
		"department": "Research",
		"password":   "long-enough-pw",
	}

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, models.RoleResearcher, resp.User.Role)

	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", payload)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestDocumentSearchAndStar(t *testing.T) {
	router := newTestServer()
	token, _ := login(t, router, "staff@kumbo.org")

	rec, env := doJSON(t, router, http.MethodGet, "/api/v1/documents?search=land", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var docs []models.Document
	require.NoError(t, json.Unmarshal(env.Data, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "Land Grant Deeds", docs[0].Title)

	rec, env = doJSON(t, router, http.MethodPut, "/api/v1/documents/"+docs[0].ID+"/star", token, map[string]bool{"starred": true})
	require.Equal(t, http.StatusOK, rec.Code)

	var starred models.Document
	require.NoError(t, json.Unmarshal(env.Data, &starred))
	assert.True(t, starred.Starred)
}

func TestDocumentUploadAndDownloadRoundTrip(t *testing.T) {
	router := newTestServer()
	token, _ := login(t, router, "staff@kumbo.org")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("title", "Survey Report"))
	require.NoError(t, writer.WriteField("category", "Research"))
	require.NoError(t, writer.WriteField("department", "Records"))
	part, err := writer.CreateFormFile("file", "survey.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("survey-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var doc models.Document
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.Equal(t, "Survey Report", doc.Title)
	assert.Equal(t, int64(len("survey-bytes")), doc.FileSize)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID+"/download", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "survey-bytes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "survey.pdf")
}

func TestUploadRequiresMetadata(t *testing.T) {
	router := newTestServer()
	token, _ := login(t, router, "staff@kumbo.org")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "orphan.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.NotEmpty(t, env.Error.Fields)
}

func TestDashboardAnalyticsCountsSeedData(t *testing.T) {
	router := newTestServer()
	token, _ := login(t, router, "admin@kumbo.org")

	rec, env := doJSON(t, router, http.MethodGet, "/api/v1/analytics/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dashboard models.DashboardAnalytics
	require.NoError(t, json.Unmarshal(env.Data, &dashboard))
	assert.Equal(t, 3, dashboard.TotalDocuments)
	assert.Equal(t, 3, dashboard.TotalUsers)
	assert.NotZero(t, dashboard.StorageUsed)
	assert.NotEmpty(t, dashboard.RecentDocuments)
}

func TestDetailedAnalyticsRejectsUnknownRange(t *testing.T) {
	router := newTestServer()
	token, _ := login(t, router, "admin@kumbo.org")

	rec, env := doJSON(t, router, http.MethodGet, "/api/v1/analytics/detailed?range=2w", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
}

func TestPasswordResetFlow(t *testing.T) {
	router := newTestServer()

	// Unknown addresses still get a 204 so the endpoint can't enumerate
	// accounts.
	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{
		"email": "nobody@kumbo.org",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	srv := NewServer(ServerParams{})
	router = srv.Router()
	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{
		"email": "staff@kumbo.org",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	srv.state.mu.RLock()
	var resetToken string
	for token := range srv.state.resetTokens {
		resetToken = token
	}
	srv.state.mu.RUnlock()
	require.NotEmpty(t, resetToken)

	rec, _ = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/auth/reset-password/%s", resetToken), "", map[string]string{
		"password": "fresh-password",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "staff@kumbo.org",
		"password": "fresh-password",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
