package registration

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"snaplink/models"
	"snaplink/services/backend"
	"snaplink/services/session"
	"snaplink/services/wizard"
)

type fakeRegistrar struct {
	requests []models.RegisterRequest
	err      error
}

func (f *fakeRegistrar) Register(_ context.Context, req models.RegisterRequest) (*models.RegisteredUser, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.RegisteredUser{UserID: "u1", Email: req.Email, FullName: req.FullName, Role: req.Role}, nil
}

func newTestService() (*DefaultRegistrationService, *fakeRegistrar, *session.MemoryStore) {
	reg := &fakeRegistrar{}
	store := session.NewMemoryStore()
	return &DefaultRegistrationService{Sessions: store, Backend: reg}, reg, store
}

func ptr[T any](v T) *T { return &v }

func mustView(t *testing.T) func(*View, error) *View {
	return func(v *View, err error) *View {
		t.Helper()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		return v
	}
}

func TestStart_StepsPerRole(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	c := mustView(t)(svc.Start(ctx, models.RoleCustomer))
	if strings.Join(c.Steps, ",") != "account,profile,confirm" {
		t.Fatalf("unexpected customer steps %v", c.Steps)
	}
	p := mustView(t)(svc.Start(ctx, models.RolePhotographer))
	if strings.Join(p.Steps, ",") != "account,profile,studio,portfolio,confirm" {
		t.Fatalf("unexpected photographer steps %v", p.Steps)
	}
	if _, err := svc.Start(ctx, models.Role("admin")); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestNext_ValidatesAccountStep(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	id := mustView(t)(svc.Start(ctx, models.RoleCustomer)).SessionID

	mustView(t)(svc.Update(ctx, id, models.RegistrationPatch{Email: ptr("not-an-email"), Password: ptr("longenough")}))
	v, err := svc.Next(ctx, id)
	if !errors.Is(err, wizard.ErrIncompleteStep) {
		t.Fatalf("expected ErrIncompleteStep, got %v", err)
	}
	if v.Step != 1 || v.Missing != "email must be a valid email address" {
		t.Fatalf("unexpected view step %d missing %q", v.Step, v.Missing)
	}

	v = mustView(t)(svc.Update(ctx, id, models.RegistrationPatch{Email: ptr(" Mai@Example.com "), Password: ptr("short")}))
	if v.Draft.Email != "mai@example.com" {
		t.Fatalf("expected normalized email, got %q", v.Draft.Email)
	}
	if v.Missing != "password must be at least 8 characters" {
		t.Fatalf("unexpected missing message %q", v.Missing)
	}
	if v.Draft.Password != "********" {
		t.Fatalf("expected password to be masked, got %q", v.Draft.Password)
	}
}

func TestCustomerFlow_SubmitsAndDeletesSession(t *testing.T) {
	svc, reg, store := newTestService()
	ctx := context.Background()
	id := mustView(t)(svc.Start(ctx, models.RoleCustomer)).SessionID

	mustView(t)(svc.Update(ctx, id, models.RegistrationPatch{Email: ptr("mai@example.com"), Password: ptr("s3cretpass")}))
	mustView(t)(svc.Next(ctx, id))
	mustView(t)(svc.Update(ctx, id, models.RegistrationPatch{FullName: ptr("Mai Nguyen"), PhoneNumber: ptr("0901 234 567")}))
	v := mustView(t)(svc.Next(ctx, id))
	if !v.IsFinal {
		t.Fatalf("expected final step, got %d", v.Step)
	}

	if _, err := svc.Submit(ctx, id); !errors.Is(err, wizard.ErrIncompleteStep) {
		t.Fatalf("expected terms to be required, got %v", err)
	}
	mustView(t)(svc.Update(ctx, id, models.RegistrationPatch{AcceptedTerms: ptr(true)}))

	user, err := svc.Submit(ctx, id)
	if err != nil {
		t.Fatalf("expected registration to succeed, got %v", err)
	}
	if user.UserID != "u1" || user.Role != models.RoleCustomer {
		t.Fatalf("unexpected user %+v", user)
	}
	req := reg.requests[0]
	if req.Password != "s3cretpass" || req.PhoneNumber != "0901234567" || req.StudioName != "" {
		t.Fatalf("unexpected register request %+v", req)
	}
	if store.Len() != 0 {
		t.Fatalf("expected session to be deleted after registration")
	}
}

func TestPhotographerFlow_StudioStepRequired(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	id := mustView(t)(svc.Start(ctx, models.RolePhotographer)).SessionID

	mustView(t)(svc.Update(ctx, id, models.RegistrationPatch{Email: ptr("anna@example.com"), Password: ptr("s3cretpass")}))
	mustView(t)(svc.Next(ctx, id))
	mustView(t)(svc.Update(ctx, id, models.RegistrationPatch{
		FullName: ptr("Anna Tran"), PhoneNumber: ptr("+84901234567"), Province: ptr("Ho Chi Minh"),
	}))
	mustView(t)(svc.Next(ctx, id))

	v, err := svc.Next(ctx, id)
	if !errors.Is(err, wizard.ErrIncompleteStep) || v.StepName != "studio" {
		t.Fatalf("expected studio step to block, got %v at %q", err, v.StepName)
	}
	if v.Missing != "studio_name is required" {
		t.Fatalf("unexpected missing message %q", v.Missing)
	}

	mustView(t)(svc.Update(ctx, id, models.RegistrationPatch{StudioName: ptr("Anna Studio"), Address: ptr("12 Le Loi")}))
	mustView(t)(svc.Next(ctx, id))
	mustView(t)(svc.Update(ctx, id, models.RegistrationPatch{Tags: ptr([]string{"wedding", ""})}))
	if _, err := svc.Next(ctx, id); !errors.Is(err, wizard.ErrIncompleteStep) {
		t.Fatalf("expected an empty tag to be rejected, got %v", err)
	}
	mustView(t)(svc.Update(ctx, id, models.RegistrationPatch{Tags: ptr([]string{"wedding"}), ExperienceYears: ptr(4)}))
	v = mustView(t)(svc.Next(ctx, id))
	if v.StepName != "confirm" {
		t.Fatalf("expected confirm step, got %q", v.StepName)
	}
}

func TestSubmit_PreconditionsAndBackendFailure(t *testing.T) {
	svc, reg, store := newTestService()
	ctx := context.Background()
	id := mustView(t)(svc.Start(ctx, models.RoleCustomer)).SessionID

	if _, err := svc.Submit(ctx, id); !errors.Is(err, ErrNotFinalStep) {
		t.Fatalf("expected ErrNotFinalStep, got %v", err)
	}

	mustView(t)(svc.Update(ctx, id, models.RegistrationPatch{
		Email: ptr("mai@example.com"), Password: ptr("s3cretpass"),
		FullName: ptr("Mai Nguyen"), PhoneNumber: ptr("0901234567"), AcceptedTerms: ptr(true),
	}))
	mustView(t)(svc.Next(ctx, id))
	mustView(t)(svc.Next(ctx, id))

	reg.err = &backend.APIError{Status: http.StatusConflict, Message: "email already registered"}
	_, err := svc.Submit(ctx, id)
	if backend.StatusOf(err) != http.StatusConflict {
		t.Fatalf("expected backend conflict, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected session to survive a rejected registration")
	}
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected session.ErrNotFound, got %v", err)
	}
}
