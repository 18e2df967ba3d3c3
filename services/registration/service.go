package registration

import (
	"context"
	"errors"
	"strings"
	"time"

	"snaplink/models"
	"snaplink/services/session"
	"snaplink/services/wizard"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidRole  = errors.New("role must be customer or photographer")
	ErrNotFinalStep = errors.New("registration can only be submitted from the final step")
	ErrInProgress   = errors.New("a registration for this session is already in progress")
)

// Registrar creates accounts on the backend.
type Registrar interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.RegisteredUser, error)
}

// RegistrationService drives the public sign-up wizard.
type RegistrationService interface {
	Start(ctx context.Context, role models.Role) (*View, error)
	Get(ctx context.Context, sessionID string) (*View, error)
	Update(ctx context.Context, sessionID string, patch models.RegistrationPatch) (*View, error)
	Next(ctx context.Context, sessionID string) (*View, error)
	Prev(ctx context.Context, sessionID string) (*View, error)
	Submit(ctx context.Context, sessionID string) (*models.RegisteredUser, error)
	Abandon(ctx context.Context, sessionID string) error
}

type DefaultRegistrationService struct {
	Sessions session.Store
	Backend  Registrar
	Logger   *zap.Logger
}

// Session is the persisted registration wizard.
type Session struct {
	ID        string                                 `json:"id"`
	Wizard    wizard.State[models.RegistrationDraft] `json:"wizard"`
	CreatedAt time.Time                              `json:"createdAt"`
}

// View is the registration wizard as rendered. The password is masked.
type View struct {
	SessionID  string                   `json:"sessionId"`
	Role       models.Role              `json:"role"`
	Step       int                      `json:"step"`
	StepName   string                   `json:"stepName"`
	Steps      []string                 `json:"steps"`
	IsFinal    bool                     `json:"isFinal"`
	CanProceed bool                     `json:"canProceed"`
	Missing    string                   `json:"missing,omitempty"`
	Draft      models.RegistrationDraft `json:"draft"`
}

func (s *DefaultRegistrationService) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

func (s *DefaultRegistrationService) Start(ctx context.Context, role models.Role) (*View, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	seq := newSequencer(role)
	sess := &Session{ID: uuid.New().String(), Wizard: seq.Snapshot(), CreatedAt: time.Now()}
	if err := s.Sessions.Create(ctx, sess.ID, sess); err != nil {
		return nil, err
	}
	s.logger().Info("Registration started", zap.String("sessionID", sess.ID), zap.String("role", string(role)))
	return view(sess, seq), nil
}

func (s *DefaultRegistrationService) Get(ctx context.Context, sessionID string) (*View, error) {
	sess, seq, _, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return view(sess, seq), nil
}

func (s *DefaultRegistrationService) Update(ctx context.Context, sessionID string, patch models.RegistrationPatch) (*View, error) {
	if patch.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*patch.Email))
		patch.Email = &normalized
	}
	return s.mutate(ctx, sessionID, func(seq *Sequencer) error {
		seq.Update(patch)
		return nil
	})
}

func (s *DefaultRegistrationService) Next(ctx context.Context, sessionID string) (*View, error) {
	return s.mutate(ctx, sessionID, func(seq *Sequencer) error {
		return seq.Next()
	})
}

func (s *DefaultRegistrationService) Prev(ctx context.Context, sessionID string) (*View, error) {
	return s.mutate(ctx, sessionID, func(seq *Sequencer) error {
		seq.Prev()
		return nil
	})
}

// Submit creates the account and deletes the session. A failed call leaves
// the session intact so the user can correct the draft and resubmit.
func (s *DefaultRegistrationService) Submit(ctx context.Context, sessionID string) (*models.RegisteredUser, error) {
	unlock, err := s.Sessions.Lock(ctx, sessionID, 30*time.Second)
	if errors.Is(err, session.ErrLocked) {
		return nil, ErrInProgress
	}
	if err != nil {
		return nil, err
	}
	defer unlock()

	_, seq, _, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !seq.IsFinal() {
		return nil, ErrNotFinalStep
	}
	if err := seq.Ready(); err != nil {
		return nil, err
	}
	if err := seq.Check(seq.Current()); err != nil {
		return nil, err
	}

	d := seq.Draft()
	user, err := s.Backend.Register(ctx, models.RegisterRequest{
		Role:            d.Role,
		Email:           d.Email,
		Password:        d.Password,
		FullName:        strings.TrimSpace(d.FullName),
		PhoneNumber:     strings.ReplaceAll(d.PhoneNumber, " ", ""),
		Province:        d.Province,
		StudioName:      d.StudioName,
		Address:         d.Address,
		Bio:             d.Bio,
		Tags:            d.Tags,
		ExperienceYears: d.ExperienceYears,
	})
	if err != nil {
		s.logger().Warn("Registration rejected", zap.String("sessionID", sessionID), zap.Error(err))
		return nil, err
	}

	if err := s.Sessions.Delete(context.WithoutCancel(ctx), sessionID); err != nil {
		s.logger().Error("Failed to delete finished registration", zap.String("sessionID", sessionID), zap.Error(err))
	}
	s.logger().Info("Account registered", zap.String("userID", user.UserID), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *DefaultRegistrationService) Abandon(ctx context.Context, sessionID string) error {
	if _, _, _, err := s.load(ctx, sessionID); err != nil {
		return err
	}
	return s.Sessions.Delete(ctx, sessionID)
}

func (s *DefaultRegistrationService) load(ctx context.Context, sessionID string) (*Session, *Sequencer, int64, error) {
	var sess Session
	version, err := s.Sessions.Load(ctx, sessionID, &sess)
	if err != nil {
		return nil, nil, 0, err
	}
	seq := newSequencer(sess.Wizard.Draft.Role)
	seq.Restore(sess.Wizard)
	return &sess, seq, version, nil
}

func (s *DefaultRegistrationService) mutate(ctx context.Context, sessionID string, op func(*Sequencer) error) (*View, error) {
	sess, seq, version, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if opErr := op(seq); opErr != nil {
		return view(sess, seq), opErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess.Wizard = seq.Snapshot()
	if _, err := s.Sessions.Save(ctx, sessionID, sess, version); err != nil {
		return nil, err
	}
	return view(sess, seq), nil
}

func view(sess *Session, seq *Sequencer) *View {
	d := seq.Draft()
	v := &View{
		SessionID: sess.ID,
		Role:      d.Role,
		Step:      seq.Current(),
		StepName:  seq.CurrentStep().Name,
		Steps:     seq.Names(),
		IsFinal:   seq.IsFinal(),
		Draft:     d.Redacted(),
	}
	if err := seq.Check(seq.Current()); err != nil {
		var stepErr *wizard.StepError
		if errors.As(err, &stepErr) {
			v.Missing = stepErr.Err.Error()
		}
	} else {
		v.CanProceed = true
	}
	return v
}
