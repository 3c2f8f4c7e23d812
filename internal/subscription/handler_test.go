// AngelaMos | 2026
// handler_test.go

package subscription

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(f *fixture) chi.Router {
	r := chi.NewRouter()
	NewHandler(f.service).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, router chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Create(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	body := `{"user_id":"` + uuid.New().String() + `","plan":"PREMIUM"}`
	rec := doJSON(t, router, http.MethodPost, "/subscriptions", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"plan":"PREMIUM"`)
	assert.Contains(t, rec.Body.String(), `"status":"PENDING"`)
}

func TestHandler_Create_InvalidPlan(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	body := `{"user_id":"` + uuid.New().String() + `","plan":"GOLD"}`
	rec := doJSON(t, router, http.MethodPost, "/subscriptions", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Create_UserNotFound(t *testing.T) {
	f := newFixture()
	f.users.exists = false
	router := newTestRouter(f)

	body := `{"user_id":"` + uuid.New().String() + `","plan":"BASIC"}`
	rec := doJSON(t, router, http.MethodPost, "/subscriptions", body)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Create_NoWallet(t *testing.T) {
	f := newFixture()
	f.payment.walletExists = false
	router := newTestRouter(f)

	body := `{"user_id":"` + uuid.New().String() + `","plan":"BASIC"}`
	rec := doJSON(t, router, http.MethodPost, "/subscriptions", body)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandler_Create_ActiveConflict(t *testing.T) {
	f := newFixture()
	userID := uuid.New().String()
	active := canceledSubscription(userID, PlanBasic)
	active.Status = StatusActive
	f.repo.put(active)
	router := newTestRouter(f)

	body := `{"user_id":"` + userID + `","plan":"FAMILY"}`
	rec := doJSON(t, router, http.MethodPost, "/subscriptions", body)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_Cancel(t *testing.T) {
	f := newFixture()
	sub := canceledSubscription(uuid.New().String(), PlanBasic)
	sub.Status = StatusActive
	f.repo.put(sub)
	router := newTestRouter(f)

	rec := doJSON(t, router, http.MethodDelete, "/subscriptions/"+sub.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/subscriptions/"+sub.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_Cancel_NotFound(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	rec := doJSON(t, router, http.MethodDelete, "/subscriptions/"+uuid.New().String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_UpdateStatus(t *testing.T) {
	f := newFixture()
	sub := canceledSubscription(uuid.New().String(), PlanPremium)
	sub.Status = StatusSuspended
	f.repo.put(sub)
	router := newTestRouter(f)

	body := `{"subscription_id":"` + sub.ID + `","status":"ACTIVE"}`
	rec := doJSON(t, router, http.MethodPut, "/subscriptions/status", body)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, StatusActive, f.repo.byID[sub.ID].Status)
}

func TestHandler_UpdateStatus_InvalidStatus(t *testing.T) {
	f := newFixture()
	sub := canceledSubscription(uuid.New().String(), PlanPremium)
	f.repo.put(sub)
	router := newTestRouter(f)

	body := `{"subscription_id":"` + sub.ID + `","status":"FROZEN"}`
	rec := doJSON(t, router, http.MethodPut, "/subscriptions/status", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Renew(t *testing.T) {
	f := newFixture()
	sub := dueSubscription(PlanBasic, 0)
	f.repo.put(&sub)
	f.repo.due = []Subscription{sub}
	router := newTestRouter(f)

	rec := doJSON(t, router, http.MethodPost, "/subscriptions/renewal", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"processed":1`)
	assert.Contains(t, rec.Body.String(), `"renewed_count":1`)
}

func TestHandler_GetActive(t *testing.T) {
	f := newFixture()
	userID := uuid.New().String()
	sub := canceledSubscription(userID, PlanFamily)
	sub.Status = StatusActive
	f.repo.put(sub)
	router := newTestRouter(f)

	rec := doJSON(t, router, http.MethodGet, "/active-subscriptions/"+userID, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), sub.ID)

	rec = doJSON(t, router, http.MethodGet, "/active-subscriptions/"+uuid.New().String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
