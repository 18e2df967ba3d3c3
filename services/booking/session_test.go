package booking

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	submissionsRepo "snaplink/database/repository/submissions"
	"snaplink/models"
	"snaplink/services/backend"
	"snaplink/services/session"
	"snaplink/services/wizard"
)

const testOwner = "owner-1"

type fakeAPI struct {
	mu           sync.Mutex
	photographer models.Photographer
	availability []models.AvailabilityEntry
	services     []models.Service
	saved        []models.SavedDiscount
	validations  map[string]models.DiscountValidation

	servicesErr error
	createErr   error

	calls   map[string]int
	created []models.CreateBookingRequest
	keys    []string
}

func newFakeAPI() *fakeAPI {
	now := testNow()
	return &fakeAPI{
		photographer: models.Photographer{
			PhotographerID: "p1", Slug: "anna", FullName: "Anna Tran",
			Province: "Ho Chi Minh", Address: "12 Le Loi, District 1",
		},
		availability: []models.AvailabilityEntry{
			{AvailabilityID: "a1", AvailableDate: "2025-05-10", Status: models.AvailabilityAvailable},
			{AvailabilityID: "a2", AvailableDate: "2025-05-11T03:00:00Z", Status: models.AvailabilityBooked},
		},
		services: []models.Service{
			{ServiceID: "s1", PhotographerID: "p1", Name: "Portrait", Price: 500000, Unit: models.UnitPerson},
			{ServiceID: "s2", PhotographerID: "p1", Name: "Wedding", Price: 300000, Unit: "package"},
		},
		saved: []models.SavedDiscount{
			{SavedID: "sd1", Discount: models.Discount{
				Code: "TEN", PhotographerID: "p1", DiscountType: models.DiscountPercent, Value: 10,
				ValidFrom: now.AddDate(0, 0, -1), ValidTo: now.AddDate(0, 1, 0),
			}},
			{SavedID: "sd2", Discount: models.Discount{
				Code: "ELSEWHERE", PhotographerID: "p2", DiscountType: models.DiscountFixed, Value: 50000,
			}},
		},
		validations: map[string]models.DiscountValidation{},
		calls:       map[string]int{},
	}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) GetPhotographer(_ context.Context, slug string) (*models.Photographer, error) {
	f.record("photographer")
	if slug != f.photographer.Slug {
		return nil, &backend.APIError{Status: http.StatusNotFound, Message: "photographer not found"}
	}
	p := f.photographer
	return &p, nil
}

func (f *fakeAPI) ListAvailability(context.Context, string) ([]models.AvailabilityEntry, error) {
	f.record("availability")
	return f.availability, nil
}

func (f *fakeAPI) ListServices(context.Context, string) ([]models.Service, error) {
	f.record("services")
	if f.servicesErr != nil {
		return nil, f.servicesErr
	}
	return f.services, nil
}

func (f *fakeAPI) ListSavedDiscounts(context.Context) ([]models.SavedDiscount, error) {
	f.record("discounts")
	return f.saved, nil
}

func (f *fakeAPI) ValidateDiscount(_ context.Context, code, _ string) (*models.DiscountValidation, error) {
	f.record("validate")
	v, ok := f.validations[code]
	if !ok {
		return nil, &backend.APIError{Status: http.StatusNotFound, Message: "discount not found"}
	}
	return &v, nil
}

func (f *fakeAPI) CreateBooking(_ context.Context, req models.CreateBookingRequest, key string) (*models.Booking, error) {
	f.record("create")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &models.Booking{
		BookingCode:    "BK-100",
		PhotographerID: req.PhotographerID,
		ServiceID:      req.ServiceID,
		BookingDate:    req.BookingDate,
		Status:         "pending",
		TotalPrice:     req.TotalPrice,
	}, nil
}

func (f *fakeAPI) GetBooking(_ context.Context, code string) (*models.Booking, error) {
	return &models.Booking{BookingCode: code}, nil
}

type fakeReminders struct {
	payloads []models.ReminderPayload
	fireAt   []time.Time
}

func (r *fakeReminders) ScheduleReminder(_ context.Context, p models.ReminderPayload, at time.Time) error {
	r.payloads = append(r.payloads, p)
	r.fireAt = append(r.fireAt, at)
	return nil
}

type fakeIllustrations struct {
	uploads int
}

func (u *fakeIllustrations) UploadIllustration(_ context.Context, _, publicID string) (string, error) {
	u.uploads++
	return "https://cdn.example.com/" + publicID + ".png", nil
}

func (u *fakeIllustrations) DeleteIllustration(context.Context, string) error { return nil }

func testNow() time.Time {
	return time.Date(2025, 5, 1, 10, 0, 0, 0, hcm)
}

type fixture struct {
	svc       *DefaultBookingWizardService
	api       *fakeAPI
	store     *session.MemoryStore
	journal   *submissionsRepo.MemorySubmissionRepo
	reminders *fakeReminders
	uploads   *fakeIllustrations
}

func newFixture() *fixture {
	f := &fixture{
		api:       newFakeAPI(),
		store:     session.NewMemoryStore(),
		journal:   submissionsRepo.NewMemorySubmissionRepo(),
		reminders: &fakeReminders{},
		uploads:   &fakeIllustrations{},
	}
	f.svc = &DefaultBookingWizardService{
		Sessions:      f.store,
		Journal:       f.journal,
		Illustrations: f.uploads,
		Reminders:     f.reminders,
		Location:      hcm,
		ReminderLead:  24 * time.Hour,
		Now:           testNow,
	}
	return f
}

func (f *fixture) start(t *testing.T) *SessionView {
	t.Helper()
	v, err := f.svc.Start(context.Background(), f.api, testOwner, "anna")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return v
}

func must(t *testing.T) func(*SessionView, error) *SessionView {
	return func(v *SessionView, err error) *SessionView {
		t.Helper()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		return v
	}
}

// walkToService fills steps 1 and 2 and lands on the service step.
func (f *fixture) walkToService(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	id := f.start(t).SessionID
	must(t)(f.svc.SelectDate(ctx, f.api, testOwner, id, strPtr("2025-05-10")))
	must(t)(f.svc.Next(ctx, f.api, testOwner, id))
	studio := models.ShootingStudio
	must(t)(f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{ShootingType: &studio}))
	v := must(t)(f.svc.Next(ctx, f.api, testOwner, id))
	if v.Step != StepService {
		t.Fatalf("expected service step, got %d", v.Step)
	}
	return id
}

// walkToConfirm books two people on the per-person service and lands on the final step.
func (f *fixture) walkToConfirm(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	id := f.walkToService(t)
	svcID, qty := "s1", 2
	must(t)(f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{ServiceID: &svcID, Quantity: &qty}))
	for i := 0; i < 3; i++ {
		must(t)(f.svc.Next(ctx, f.api, testOwner, id))
	}
	v := must(t)(f.svc.Get(ctx, f.api, testOwner, id))
	if !v.IsFinal {
		t.Fatalf("expected final step, got %d", v.Step)
	}
	return id
}

func (f *fixture) stored(t *testing.T, id string) Session {
	t.Helper()
	var sess Session
	if _, err := f.store.Load(context.Background(), id, &sess); err != nil {
		t.Fatalf("load session: %v", err)
	}
	return sess
}

func TestStart_LoadsPhotographerAndAvailabilityOnly(t *testing.T) {
	f := newFixture()
	v := f.start(t)

	if v.Step != StepDate || v.StepName != "date" || len(v.Steps) != 6 {
		t.Fatalf("unexpected initial position %d %q %v", v.Step, v.StepName, v.Steps)
	}
	if v.CanProceed {
		t.Fatalf("expected step 1 to be blocked without a date")
	}
	if len(v.Calendar) != 2 || !v.Calendar[0].Selectable || v.Calendar[1].Selectable {
		t.Fatalf("unexpected calendar %+v", v.Calendar)
	}
	if got := f.api.count("services"); got != 0 {
		t.Fatalf("expected services to load lazily, got %d calls", got)
	}
	if v.Draft.Quantity != models.DefaultQuantity {
		t.Fatalf("expected default quantity, got %d", v.Draft.Quantity)
	}
}

func TestStart_UnknownPhotographer(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Start(context.Background(), f.api, testOwner, "nobody")
	if !backend.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if f.store.Len() != 0 {
		t.Fatalf("expected no session to be created")
	}
}

func TestSelectDate_BookedDayLeavesDraftUntouched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.start(t).SessionID

	must(t)(f.svc.SelectDate(ctx, f.api, testOwner, id, strPtr("2025-05-10")))
	_, err := f.svc.SelectDate(ctx, f.api, testOwner, id, strPtr("2025-05-11"))
	if !errors.Is(err, ErrDateUnavailable) {
		t.Fatalf("expected ErrDateUnavailable, got %v", err)
	}

	v := must(t)(f.svc.Get(ctx, f.api, testOwner, id))
	if v.Draft.BookingDate != "2025-05-10" || v.Draft.AvailabilityID != "a1" {
		t.Fatalf("expected previous selection to survive, got %+v", v.Draft)
	}
	if !v.CanProceed {
		t.Fatalf("expected step 1 to be satisfied")
	}
}

func TestSelectDate_ClearFallsBackToToday(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.start(t).SessionID

	must(t)(f.svc.SelectDate(ctx, f.api, testOwner, id, strPtr("2025-05-10")))
	v := must(t)(f.svc.SelectDate(ctx, f.api, testOwner, id, nil))
	if v.Draft.BookingDate != "2025-05-01" || v.Draft.AvailabilityID != "" {
		t.Fatalf("expected today with no slot, got %+v", v.Draft)
	}
	if v.CanProceed {
		t.Fatalf("expected a cleared date to block step 1")
	}
}

func TestNext_BlockedStepStaysPut(t *testing.T) {
	f := newFixture()
	id := f.start(t).SessionID

	v, err := f.svc.Next(context.Background(), f.api, testOwner, id)
	if !errors.Is(err, wizard.ErrIncompleteStep) {
		t.Fatalf("expected ErrIncompleteStep, got %v", err)
	}
	if v == nil || v.Step != StepDate {
		t.Fatalf("expected to remain on step 1, got %+v", v)
	}
}

func TestPrev_ClampsAtFirstStep(t *testing.T) {
	f := newFixture()
	id := f.start(t).SessionID

	v := must(t)(f.svc.Prev(context.Background(), f.api, testOwner, id))
	if v.Step != StepDate {
		t.Fatalf("expected step 1, got %d", v.Step)
	}
}

func TestUpdate_StudioUsesPhotographerAddress(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.start(t).SessionID

	studio, userProvince := models.ShootingStudio, "Da Nang"
	v := must(t)(f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{ShootingType: &studio, Province: &userProvince}))
	if v.Draft.Province != "Ho Chi Minh" || v.Draft.CustomLocation != "12 Le Loi, District 1" {
		t.Fatalf("expected photographer address, got %+v", v.Draft)
	}

	outdoor := models.ShootingOutdoor
	v = must(t)(f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{ShootingType: &outdoor}))
	if v.Draft.Province != "" || v.Draft.CustomLocation != "" {
		t.Fatalf("expected location to be cleared for outdoor, got %+v", v.Draft)
	}

	bad := models.ShootingType("underwater")
	if _, err := f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{ShootingType: &bad}); !errors.Is(err, ErrInvalidShootingType) {
		t.Fatalf("expected ErrInvalidShootingType, got %v", err)
	}
}

func TestUpdate_ServiceRulesAndPricing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.walkToService(t)

	if got := f.api.count("services"); got != 1 {
		t.Fatalf("expected services to load on the service step, got %d calls", got)
	}

	svcID, qty := "s2", 5
	v := must(t)(f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{ServiceID: &svcID, Quantity: &qty}))
	if v.Draft.Quantity != 1 || v.Draft.TotalPrice != 300000 {
		t.Fatalf("expected flat service booked once at 300000, got qty %d total %d", v.Draft.Quantity, v.Draft.TotalPrice)
	}

	svcID = "s1"
	v = must(t)(f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{ServiceID: &svcID, Quantity: &qty}))
	if v.Quote == nil || v.Quote.BasePrice != 2500000 || v.Draft.TotalPrice != 2500000 {
		t.Fatalf("expected per-person pricing, got %+v", v.Quote)
	}

	unknown := "s9"
	if _, err := f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{ServiceID: &unknown}); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}

	zero := 0
	v, err := f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{Quantity: &zero})
	if err != nil {
		t.Fatalf("expected update to succeed, got %v", err)
	}
	if v.CanProceed {
		t.Fatalf("expected zero quantity to block the service step")
	}
}

func TestUpdate_RejectsQuantityPastLimit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.walkToService(t)

	svcID, qty := "s1", 2
	must(t)(f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{ServiceID: &svcID, Quantity: &qty}))

	for _, n := range []int{models.MaxQuantity + 1, 1 << 62} {
		huge := n
		v, err := f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{Quantity: &huge})
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity for %d, got %v", n, err)
		}
		if v == nil || v.Draft.Quantity != 2 || v.Quote == nil || v.Quote.TotalPrice != 1000000 {
			t.Fatalf("expected draft and quote to be unchanged, got %+v", v)
		}
	}
	if got := f.stored(t, id).Wizard.Draft.Quantity; got != 2 {
		t.Fatalf("expected stored quantity 2, got %d", got)
	}

	limit := models.MaxQuantity
	v := must(t)(f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{Quantity: &limit}))
	if !v.CanProceed || v.Draft.TotalPrice != 500000*int64(models.MaxQuantity) {
		t.Fatalf("expected the limit itself to be accepted, got total %d", v.Draft.TotalPrice)
	}
}

func TestServicesFetchFailure_IsNotRetriedAutomatically(t *testing.T) {
	f := newFixture()
	f.api.servicesErr = &backend.APIError{Status: http.StatusBadGateway, Message: "upstream down"}
	ctx := context.Background()
	id := f.walkToService(t)

	v := must(t)(f.svc.Get(ctx, f.api, testOwner, id))
	if v.Errors[ResourceServices] != "upstream down" {
		t.Fatalf("expected services error in view, got %+v", v.Errors)
	}
	if v.CanProceed {
		t.Fatalf("expected service step to be blocked without services")
	}
	if got := f.api.count("services"); got != 1 {
		t.Fatalf("expected a single fetch attempt, got %d", got)
	}

	f.api.servicesErr = nil
	v = must(t)(f.svc.Retry(ctx, f.api, testOwner, id, ResourceServices))
	if len(v.Services) != 2 || len(v.Errors) != 0 {
		t.Fatalf("expected services after retry, got %+v errors %+v", v.Services, v.Errors)
	}

	if _, err := f.svc.Retry(ctx, f.api, testOwner, id, Resource("photos")); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("expected ErrUnknownResource, got %v", err)
	}
}

func TestApplyDiscount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.walkToService(t)

	if _, err := f.svc.ApplyDiscount(ctx, f.api, testOwner, id, "TEN"); !errors.Is(err, ErrServiceRequired) {
		t.Fatalf("expected ErrServiceRequired, got %v", err)
	}

	svcID, qty := "s1", 2
	must(t)(f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{ServiceID: &svcID, Quantity: &qty}))

	v := must(t)(f.svc.ApplyDiscount(ctx, f.api, testOwner, id, " ten "))
	if v.Quote.DiscountAmount != 100000 || v.Draft.TotalPrice != 900000 || v.Draft.DiscountCode != "TEN" {
		t.Fatalf("expected 10%% off to give 900000, got %+v", v.Quote)
	}

	if _, err := f.svc.ApplyDiscount(ctx, f.api, testOwner, id, "ELSEWHERE"); !errors.Is(err, ErrDiscountPhotographerMismatch) {
		t.Fatalf("expected ErrDiscountPhotographerMismatch, got %v", err)
	}
	if _, err := f.svc.ApplyDiscount(ctx, f.api, testOwner, id, "NOPE"); !errors.Is(err, ErrDiscountNotFound) {
		t.Fatalf("expected ErrDiscountNotFound, got %v", err)
	}

	v = must(t)(f.svc.Get(ctx, f.api, testOwner, id))
	if v.Draft.TotalPrice != 900000 {
		t.Fatalf("expected rejected codes to keep the applied discount, got %d", v.Draft.TotalPrice)
	}

	v = must(t)(f.svc.ClearDiscount(ctx, f.api, testOwner, id))
	if v.Draft.TotalPrice != 1000000 || v.SelectedDiscount != nil {
		t.Fatalf("expected full price after clearing, got %d", v.Draft.TotalPrice)
	}
}

func TestApplyDiscount_RemoteCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.walkToService(t)
	svcID := "s2"
	must(t)(f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{ServiceID: &svcID}))

	f.api.validations["PROMO"] = models.DiscountValidation{Valid: true, Discount: models.Discount{
		Code: "PROMO", PhotographerID: "p1", DiscountType: models.DiscountFixed, Value: 400000,
	}}
	v := must(t)(f.svc.ApplyDiscount(ctx, f.api, testOwner, id, "PROMO"))
	if v.Draft.TotalPrice != 0 || !v.Quote.Capped {
		t.Fatalf("expected an oversized discount to cap at zero, got %+v", v.Quote)
	}

	f.api.validations["USED"] = models.DiscountValidation{Valid: false, Message: "code already used"}
	_, err := f.svc.ApplyDiscount(ctx, f.api, testOwner, id, "USED")
	var rej *RejectionError
	if !errors.As(err, &rej) || rej.Message != "code already used" {
		t.Fatalf("expected backend rejection message, got %v", err)
	}
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.walkToConfirm(t)
	must(t)(f.svc.ApplyDiscount(ctx, f.api, testOwner, id, "TEN"))
	key := f.stored(t, id).IdempotencyKey

	res, err := f.svc.Submit(ctx, f.api, testOwner, id)
	if err != nil {
		t.Fatalf("expected submission to succeed, got %v", err)
	}
	if res.Booking.BookingCode != "BK-100" || res.Replayed {
		t.Fatalf("unexpected result %+v", res)
	}

	req := f.api.created[0]
	if req.TotalPrice != 900000 || req.Quantity != 2 || req.DiscountCode != "TEN" || req.AvailabilityID != "a1" {
		t.Fatalf("unexpected booking request %+v", req)
	}
	if req.Province != "Ho Chi Minh" || req.ShootingType != models.ShootingStudio {
		t.Fatalf("expected studio address in request, got %+v", req)
	}
	if f.api.keys[0] != key {
		t.Fatalf("expected idempotency key %s, got %s", key, f.api.keys[0])
	}

	if res.View.Step != StepDate || res.View.Draft.ServiceID != "" || res.View.LastBooking == nil {
		t.Fatalf("expected wizard to reset after success, got %+v", res.View)
	}
	if next := f.stored(t, id).IdempotencyKey; next == key || next == "" {
		t.Fatalf("expected a fresh idempotency key, got %q", next)
	}

	sub, err := f.journal.FindByKey(ctx, key)
	if err != nil || sub.Status != models.SubmissionSucceeded || sub.Attempts != 1 {
		t.Fatalf("expected succeeded journal entry, got %+v (%v)", sub, err)
	}

	if len(f.reminders.payloads) != 1 {
		t.Fatalf("expected one reminder, got %d", len(f.reminders.payloads))
	}
	if want := time.Date(2025, 5, 9, 0, 0, 0, 0, hcm); !f.reminders.fireAt[0].Equal(want) {
		t.Fatalf("expected reminder at %v, got %v", want, f.reminders.fireAt[0])
	}
}

func TestSubmit_FailureKeepsDraftAndKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.walkToConfirm(t)
	f.api.createErr = &backend.APIError{Status: http.StatusServiceUnavailable, Message: "try later"}

	_, err := f.svc.Submit(ctx, f.api, testOwner, id)
	var subErr *SubmissionError
	if !errors.As(err, &subErr) || !subErr.Retryable {
		t.Fatalf("expected retryable SubmissionError, got %v", err)
	}

	v := must(t)(f.svc.Get(ctx, f.api, testOwner, id))
	if !v.IsFinal || v.Draft.ServiceID != "s1" || v.Draft.Quantity != 2 {
		t.Fatalf("expected draft to survive the failure, got step %d %+v", v.Step, v.Draft)
	}

	f.api.createErr = nil
	if _, err := f.svc.Submit(ctx, f.api, testOwner, id); err != nil {
		t.Fatalf("expected resubmit to succeed, got %v", err)
	}
	if len(f.api.keys) != 2 || f.api.keys[0] != f.api.keys[1] {
		t.Fatalf("expected both attempts to share one idempotency key, got %v", f.api.keys)
	}
	sub, _ := f.journal.FindByKey(ctx, f.api.keys[0])
	if sub.Attempts != 2 || sub.Status != models.SubmissionSucceeded {
		t.Fatalf("expected two journaled attempts, got %+v", sub)
	}
}

func TestSubmit_BusinessRejectionIsNotRetryable(t *testing.T) {
	f := newFixture()
	id := f.walkToConfirm(t)
	f.api.createErr = &backend.APIError{Status: http.StatusConflict, Message: "date not available"}

	_, err := f.svc.Submit(context.Background(), f.api, testOwner, id)
	var subErr *SubmissionError
	if !errors.As(err, &subErr) || subErr.Retryable {
		t.Fatalf("expected non-retryable SubmissionError, got %v", err)
	}
	if backend.MessageOf(err) != "date not available" {
		t.Fatalf("expected backend message to be preserved, got %q", backend.MessageOf(err))
	}
}

func TestSubmit_ReplaysRecordedBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.walkToConfirm(t)
	key := f.stored(t, id).IdempotencyKey

	_ = f.journal.Begin(ctx, models.Submission{IdempotencyKey: key, SessionID: id, Owner: testOwner})
	_ = f.journal.MarkSucceeded(ctx, key, models.Booking{BookingCode: "BK-OLD"})

	res, err := f.svc.Submit(ctx, f.api, testOwner, id)
	if err != nil {
		t.Fatalf("expected replay, got %v", err)
	}
	if !res.Replayed || res.Booking.BookingCode != "BK-OLD" {
		t.Fatalf("expected recorded booking to be returned, got %+v", res)
	}
	if got := f.api.count("create"); got != 0 {
		t.Fatalf("expected no backend call on replay, got %d", got)
	}
	if res.View.Step != StepDate {
		t.Fatalf("expected wizard reset after replay, got step %d", res.View.Step)
	}
}

func TestSubmit_Preconditions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.start(t).SessionID

	if _, err := f.svc.Submit(ctx, f.api, testOwner, id); !errors.Is(err, ErrNotFinalStep) {
		t.Fatalf("expected ErrNotFinalStep, got %v", err)
	}

	id = f.walkToConfirm(t)
	unlock, err := f.store.Lock(ctx, id, time.Minute)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := f.svc.Submit(ctx, f.api, testOwner, id); !errors.Is(err, ErrSubmissionInProgress) {
		t.Fatalf("expected ErrSubmissionInProgress, got %v", err)
	}
	unlock()
}

type countingStore struct {
	*session.MemoryStore
	locks int
}

func (s *countingStore) Lock(ctx context.Context, id string, ttl time.Duration) (func(), error) {
	s.locks++
	return s.MemoryStore.Lock(ctx, id, ttl)
}

func TestSubmit_ForeignOwnerNeverLocks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.walkToConfirm(t)
	counting := &countingStore{MemoryStore: f.store}
	f.svc.Sessions = counting

	if _, err := f.svc.Submit(ctx, f.api, "intruder", id); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected session.ErrNotFound, got %v", err)
	}
	if counting.locks != 0 {
		t.Fatalf("expected no lock for a foreign owner, got %d", counting.locks)
	}
	if len(f.api.created) != 0 {
		t.Fatalf("expected no booking to be created, got %d", len(f.api.created))
	}

	if _, err := f.svc.Submit(ctx, f.api, testOwner, id); err != nil {
		t.Fatalf("expected owner submit to succeed, got %v", err)
	}
	if counting.locks != 1 {
		t.Fatalf("expected one lock for the owner, got %d", counting.locks)
	}
}

func TestSubmit_UploadsIllustrationOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.walkToConfirm(t)
	img := "data:image/png;base64,iVBORw0KGgo="
	must(t)(f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{Illustration: &img}))
	key := f.stored(t, id).IdempotencyKey

	f.api.createErr = &backend.TransportError{Err: errors.New("connection reset")}
	if _, err := f.svc.Submit(ctx, f.api, testOwner, id); err == nil {
		t.Fatalf("expected first attempt to fail")
	}
	f.api.createErr = nil
	if _, err := f.svc.Submit(ctx, f.api, testOwner, id); err != nil {
		t.Fatalf("expected second attempt to succeed, got %v", err)
	}
	if f.uploads.uploads != 1 {
		t.Fatalf("expected a single upload across retries, got %d", f.uploads.uploads)
	}
	if want := "https://cdn.example.com/" + key + ".png"; f.api.created[0].IllustrationURL != want {
		t.Fatalf("expected illustration url %s, got %s", want, f.api.created[0].IllustrationURL)
	}

	bad := "https://example.com/not-a-data-uri.png"
	if _, err := f.svc.Update(ctx, f.api, testOwner, id, models.BookingPatch{Illustration: &bad}); !errors.Is(err, ErrInvalidIllustration) {
		t.Fatalf("expected ErrInvalidIllustration, got %v", err)
	}
}

func TestSession_OwnerMismatchReadsAsMissing(t *testing.T) {
	f := newFixture()
	id := f.start(t).SessionID

	if _, err := f.svc.Get(context.Background(), f.api, "intruder", id); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected session.ErrNotFound, got %v", err)
	}
	if err := f.svc.Abandon(context.Background(), "intruder", id); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected session.ErrNotFound on abandon, got %v", err)
	}
	if err := f.svc.Abandon(context.Background(), testOwner, id); err != nil {
		t.Fatalf("expected owner to abandon, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), f.api, testOwner, id); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected abandoned session to be gone, got %v", err)
	}
}

func TestSession_CancelledContextDoesNotSave(t *testing.T) {
	f := newFixture()
	id := f.start(t).SessionID

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.svc.SelectDate(ctx, f.api, testOwner, id, strPtr("2025-05-10")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	v := must(t)(f.svc.Get(context.Background(), f.api, testOwner, id))
	if v.Draft.BookingDate != "" {
		t.Fatalf("expected cancelled update to be dropped, got %+v", v.Draft)
	}
}
