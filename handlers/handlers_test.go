package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"snaplink/middleware"
	"snaplink/models"
	"snaplink/services/backend"
	"snaplink/services/booking"
	"snaplink/services/registration"
	"snaplink/services/session"

	"github.com/gin-gonic/gin"
)

// fakeWizard answers every call with the configured view and error.
type fakeWizard struct {
	view   *booking.SessionView
	result *booking.SubmitResult
	err    error

	lastOwner string
	lastCode  string
	lastDate  *string
	lastPatch *models.BookingPatch
}

func (f *fakeWizard) answer(owner string) (*booking.SessionView, error) {
	f.lastOwner = owner
	return f.view, f.err
}

func (f *fakeWizard) Start(_ context.Context, _ booking.Backend, owner, _ string) (*booking.SessionView, error) {
	return f.answer(owner)
}
func (f *fakeWizard) Get(_ context.Context, _ booking.Backend, owner, _ string) (*booking.SessionView, error) {
	return f.answer(owner)
}
func (f *fakeWizard) Retry(_ context.Context, _ booking.Backend, owner, _ string, _ booking.Resource) (*booking.SessionView, error) {
	return f.answer(owner)
}
func (f *fakeWizard) SelectDate(_ context.Context, _ booking.Backend, owner, _ string, date *string) (*booking.SessionView, error) {
	f.lastDate = date
	return f.answer(owner)
}
func (f *fakeWizard) Update(_ context.Context, _ booking.Backend, owner, _ string, patch models.BookingPatch) (*booking.SessionView, error) {
	f.lastPatch = &patch
	return f.answer(owner)
}
func (f *fakeWizard) ApplyDiscount(_ context.Context, _ booking.Backend, owner, _, code string) (*booking.SessionView, error) {
	f.lastCode = code
	return f.answer(owner)
}
func (f *fakeWizard) ClearDiscount(_ context.Context, _ booking.Backend, owner, _ string) (*booking.SessionView, error) {
	return f.answer(owner)
}
func (f *fakeWizard) Next(_ context.Context, _ booking.Backend, owner, _ string) (*booking.SessionView, error) {
	return f.answer(owner)
}
func (f *fakeWizard) Prev(_ context.Context, _ booking.Backend, owner, _ string) (*booking.SessionView, error) {
	return f.answer(owner)
}
func (f *fakeWizard) Submit(_ context.Context, _ booking.Backend, owner, _ string) (*booking.SubmitResult, error) {
	f.lastOwner = owner
	return f.result, f.err
}
func (f *fakeWizard) Abandon(_ context.Context, owner, _ string) error {
	f.lastOwner = owner
	return f.err
}

type fakeRegistrar struct {
	err error
}

func (f *fakeRegistrar) Register(_ context.Context, req models.RegisterRequest) (*models.RegisteredUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.RegisteredUser{UserID: "u1", Email: req.Email, Role: req.Role}, nil
}

// fakeAuth stands in for JWTAuthMiddleware.
func fakeAuth(c *gin.Context) {
	c.Set(middleware.AuthSessionKey, "auth-1")
	c.Set(middleware.BackendClientKey, backend.NewClient("http://127.0.0.1:1", time.Second, nil))
	c.Next()
}

func newTestRouter(wiz booking.BookingWizardService, reg registration.RegistrationService, requireAuth gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	bundle := NewHandlerBundle(requireAuth, NewBookingHandler(wiz), NewRegistrationHandler(reg), NewAuthHandler(nil))

	b := r.Group("/api/booking", bundle.RequireAuth)
	b.POST("/wizard", bundle.StartBookingHandler)
	b.GET("/wizard/:sessionID", bundle.GetBookingWizard)
	b.DELETE("/wizard/:sessionID", bundle.AbandonBookingHandler)
	b.PATCH("/wizard/:sessionID", bundle.UpdateBookingWizard)
	b.PUT("/wizard/:sessionID/date", bundle.SelectDateHandler)
	b.PUT("/wizard/:sessionID/discount", bundle.ApplyDiscountHandler)
	b.POST("/wizard/:sessionID/retry/:resource", bundle.RetryFetchHandler)
	b.POST("/wizard/:sessionID/submit", bundle.SubmitBookingHandler)

	g := r.Group("/api/registration")
	g.POST("", bundle.StartRegistrationHandler)
	g.PATCH("/:sessionID", bundle.UpdateRegistrationHandler)
	g.POST("/:sessionID/next", bundle.NextRegistrationStep)
	g.POST("/:sessionID/submit", bundle.SubmitRegistrationHandler)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestBooking_RequiresAuthContext(t *testing.T) {
	wiz := &fakeWizard{view: &booking.SessionView{SessionID: "s1"}}
	passThrough := func(c *gin.Context) { c.Next() }
	r := newTestRouter(wiz, nil, passThrough)

	w, _ := do(t, r, http.MethodGet, "/api/booking/wizard/s1", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestBooking_StartAndOwner(t *testing.T) {
	wiz := &fakeWizard{view: &booking.SessionView{SessionID: "s1", Step: 1, StepName: "date"}}
	r := newTestRouter(wiz, nil, fakeAuth)

	w, _ := do(t, r, http.MethodPost, "/api/booking/wizard", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing slug, got %d", w.Code)
	}

	w, body := do(t, r, http.MethodPost, "/api/booking/wizard", map[string]string{"slug": "anna"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if body["sessionId"] != "s1" || wiz.lastOwner != "auth-1" {
		t.Fatalf("expected session s1 owned by auth-1, got %v / %q", body["sessionId"], wiz.lastOwner)
	}
}

func TestBooking_SelectDateNullClears(t *testing.T) {
	wiz := &fakeWizard{view: &booking.SessionView{SessionID: "s1"}}
	r := newTestRouter(wiz, nil, fakeAuth)

	w, _ := do(t, r, http.MethodPut, "/api/booking/wizard/s1/date", map[string]any{"date": nil})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if wiz.lastDate != nil {
		t.Fatalf("expected nil date, got %q", *wiz.lastDate)
	}
}

func TestBooking_UpdateBoundsQuantity(t *testing.T) {
	wiz := &fakeWizard{view: &booking.SessionView{SessionID: "s1"}}
	r := newTestRouter(wiz, nil, fakeAuth)

	w, _ := do(t, r, http.MethodPatch, "/api/booking/wizard/s1", map[string]any{"quantity": models.MaxQuantity + 1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if wiz.lastPatch != nil {
		t.Fatalf("expected the service not to be called")
	}

	w, _ = do(t, r, http.MethodPatch, "/api/booking/wizard/s1", map[string]any{"quantity": 3})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if wiz.lastPatch == nil || wiz.lastPatch.Quantity == nil || *wiz.lastPatch.Quantity != 3 {
		t.Fatalf("expected quantity 3 to reach the service, got %+v", wiz.lastPatch)
	}
}

func TestBooking_RejectionCarriesSession(t *testing.T) {
	wiz := &fakeWizard{
		view: &booking.SessionView{SessionID: "s1", Step: 5},
		err:  booking.ErrDiscountExpired,
	}
	r := newTestRouter(wiz, nil, fakeAuth)

	w, body := do(t, r, http.MethodPut, "/api/booking/wizard/s1/discount", map[string]string{"code": "OLD"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if body["code"] != "discountExpired" || body["message"] != "discount is not valid at this time" {
		t.Fatalf("unexpected body %v", body)
	}
	sess, ok := body["session"].(map[string]any)
	if !ok || sess["sessionId"] != "s1" {
		t.Fatalf("expected session in body, got %v", body["session"])
	}
	if wiz.lastCode != "OLD" {
		t.Fatalf("expected code OLD to reach the service, got %q", wiz.lastCode)
	}
}

func TestBooking_ErrorStatuses(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{"not found", session.ErrNotFound, http.StatusNotFound, false},
		{"conflict", session.ErrConflict, http.StatusConflict, true},
		{"unauthorized", backend.ErrUnauthorized, http.StatusUnauthorized, false},
		{"backend down", &backend.TransportError{Method: "GET", Path: "/x", Err: errors.New("refused")}, http.StatusServiceUnavailable, true},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&fakeWizard{err: tc.err}, nil, fakeAuth)
			w, body := do(t, r, http.MethodGet, "/api/booking/wizard/s1", nil)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			if body["retryable"] != tc.retryable {
				t.Fatalf("expected retryable=%v, got %v", tc.retryable, body["retryable"])
			}
			if _, ok := body["session"]; ok {
				t.Fatalf("expected no session in body, got %v", body["session"])
			}
		})
	}
}

func TestBooking_RetryUnknownResource(t *testing.T) {
	r := newTestRouter(&fakeWizard{}, nil, fakeAuth)
	w, body := do(t, r, http.MethodPost, "/api/booking/wizard/s1/retry/weather", nil)
	if w.Code != http.StatusUnprocessableEntity || body["code"] != "unknownResource" {
		t.Fatalf("expected 422 unknownResource, got %d %v", w.Code, body)
	}
}

func TestBooking_Submit(t *testing.T) {
	created := &booking.SubmitResult{Booking: models.Booking{BookingCode: "BK-1"}}
	r := newTestRouter(&fakeWizard{result: created}, nil, fakeAuth)
	w, body := do(t, r, http.MethodPost, "/api/booking/wizard/s1/submit", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if b, _ := body["booking"].(map[string]any); b["booking_code"] != "BK-1" {
		t.Fatalf("expected booking BK-1, got %v", body["booking"])
	}

	replayed := &booking.SubmitResult{Booking: models.Booking{BookingCode: "BK-1"}, Replayed: true}
	r = newTestRouter(&fakeWizard{result: replayed}, nil, fakeAuth)
	if w, _ := do(t, r, http.MethodPost, "/api/booking/wizard/s1/submit", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for a replay, got %d", w.Code)
	}
}

func TestBooking_SubmitFailures(t *testing.T) {
	rejected := &backend.APIError{Status: http.StatusConflict, Method: "POST", Path: "/bookings", Message: "date not available"}
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"retryable", &booking.SubmissionError{Retryable: true, Err: errors.New("timeout")}, http.StatusServiceUnavailable, "Booking could not be submitted, please try again"},
		{"rejected", &booking.SubmissionError{Err: rejected}, http.StatusUnprocessableEntity, "date not available"},
		{"in progress", booking.ErrSubmissionInProgress, http.StatusConflict, booking.ErrSubmissionInProgress.Message},
		{"not final", booking.ErrNotFinalStep, http.StatusUnprocessableEntity, booking.ErrNotFinalStep.Message},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&fakeWizard{err: tc.err}, nil, fakeAuth)
			w, body := do(t, r, http.MethodPost, "/api/booking/wizard/s1/submit", nil)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			if body["message"] != tc.message {
				t.Fatalf("expected message %q, got %v", tc.message, body["message"])
			}
		})
	}
}

func TestBooking_Abandon(t *testing.T) {
	r := newTestRouter(&fakeWizard{}, nil, fakeAuth)
	if w, _ := do(t, r, http.MethodDelete, "/api/booking/wizard/s1", nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestRegistration_Flow(t *testing.T) {
	reg := &registration.DefaultRegistrationService{Sessions: session.NewMemoryStore(), Backend: &fakeRegistrar{}}
	r := newTestRouter(nil, reg, fakeAuth)

	w, _ := do(t, r, http.MethodPost, "/api/registration", map[string]string{"role": "admin"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", w.Code)
	}

	w, body := do(t, r, http.MethodPost, "/api/registration", map[string]string{"role": "customer"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	id, _ := body["sessionId"].(string)

	do(t, r, http.MethodPatch, "/api/registration/"+id, map[string]string{"email": "not-an-email", "password": "longenough"})
	w, body = do(t, r, http.MethodPost, "/api/registration/"+id+"/next", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if body["step"] != "account" || body["message"] != "email must be a valid email address" {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["session"]; !ok {
		t.Fatalf("expected the wizard state alongside the rejection")
	}

	do(t, r, http.MethodPatch, "/api/registration/"+id, map[string]string{"email": "linh@example.com"})
	w, body = do(t, r, http.MethodPost, "/api/registration/"+id+"/next", nil)
	if w.Code != http.StatusOK || body["stepName"] != "profile" {
		t.Fatalf("expected profile step, got %d %v", w.Code, body)
	}

	w, body = do(t, r, http.MethodPost, "/api/registration/"+id+"/submit", nil)
	if w.Code != http.StatusUnprocessableEntity || body["code"] != "notFinalStep" {
		t.Fatalf("expected notFinalStep, got %d %v", w.Code, body)
	}
}

func TestRegistration_UnknownSession(t *testing.T) {
	reg := &registration.DefaultRegistrationService{Sessions: session.NewMemoryStore(), Backend: &fakeRegistrar{}}
	r := newTestRouter(nil, reg, fakeAuth)
	if w, _ := do(t, r, http.MethodPost, "/api/registration/missing/next", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
