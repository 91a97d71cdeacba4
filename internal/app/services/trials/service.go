// Package trials schedules coach evaluations and feeds their outcome back
// into the application review.
package trials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/core/service"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/application"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/coach"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/trial"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/events"
	"github.com/clubhouse-sports/clubhouse/internal/app/metrics"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/applications"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	svcerrors "github.com/clubhouse-sports/clubhouse/internal/errors"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
)

// ScheduleInput books a trial.
type ScheduleInput struct {
	ApplicationID string    `json:"application_id"`
	CoachID       string    `json:"coach_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Location      string    `json:"location"`
}

// UpdateInput reschedules a pending trial. Nil fields are left untouched.
type UpdateInput struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
	Location    *string    `json:"location"`
	CoachID     *string    `json:"coach_id"`
}

// CompleteInput is the coach's evaluation.
type CompleteInput struct {
	Outcome trial.Outcome  `json:"outcome"`
	Scores  map[string]int `json:"scores"`
	Notes   string         `json:"notes"`
}

// ListInput narrows List.
type ListInput struct {
	Status        trial.Status
	ApplicationID string
	CoachID       string
	storage.ListParams
}

// Service manages trials.
type Service struct {
	trials  storage.TrialStore
	coaches storage.CoachStore
	apps    *applications.Service
	events  events.Publisher
	log     *logger.Logger
	now     func() time.Time
}

// New constructs the trials service.
func New(trials storage.TrialStore, coaches storage.CoachStore, apps *applications.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("trials")
	}
	return &Service{trials: trials, coaches: coaches, apps: apps, log: log, now: time.Now}
}

// AttachPublisher wires the live event stream.
func (s *Service) AttachPublisher(pub events.Publisher) {
	s.events = pub
}

// Descriptor advertises the service.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "trials",
		Domain:       "trial",
		Capabilities: []string{"schedule", "complete", "cancel", "outcome-feedback"},
	}
}

// Schedule books a trial for an application awaiting review and moves the
// application to UNDER_REVIEW.
func (s *Service) Schedule(ctx context.Context, actor user.Principal, in ScheduleInput) (trial.Trial, error) {
	if !actor.IsAdmin() {
		return trial.Trial{}, svcerrors.Forbidden("")
	}
	in.ApplicationID = strings.TrimSpace(in.ApplicationID)
	in.CoachID = strings.TrimSpace(in.CoachID)
	switch {
	case in.ApplicationID == "":
		return trial.Trial{}, svcerrors.Validation("application_id", "is required")
	case in.CoachID == "":
		return trial.Trial{}, svcerrors.Validation("coach_id", "is required")
	case in.ScheduledAt.IsZero():
		return trial.Trial{}, svcerrors.Validation("scheduled_at", "is required")
	}

	app, err := s.apps.Get(ctx, actor, in.ApplicationID)
	if err != nil {
		return trial.Trial{}, err
	}
	switch app.Status {
	case application.StatusSubmitted, application.StatusUnderReview, application.StatusHold:
	default:
		return trial.Trial{}, svcerrors.Conflict("application must be SUBMITTED, UNDER_REVIEW or HOLD to schedule a trial").
			WithDetails("status", app.Status)
	}
	_, pending, err := s.trials.ListTrials(ctx, storage.TrialFilter{
		ApplicationID: app.ID,
		Status:        trial.StatusPending,
		ListParams:    storage.ListParams{Limit: 1},
	})
	if err != nil {
		return trial.Trial{}, service.StoreError("trial", "", err)
	}
	if pending > 0 {
		return trial.Trial{}, svcerrors.Conflict("application already has a pending trial")
	}
	if _, err := s.activeCoach(ctx, in.CoachID); err != nil {
		return trial.Trial{}, err
	}

	created, err := s.trials.CreateTrial(ctx, trial.Trial{
		ApplicationID: app.ID,
		CoachID:       in.CoachID,
		ScheduledAt:   in.ScheduledAt.UTC(),
		Location:      strings.TrimSpace(in.Location),
		Status:        trial.StatusPending,
	})
	if errors.Is(err, storage.ErrConflict) {
		return trial.Trial{}, svcerrors.Conflict("application already has a pending trial")
	}
	if err != nil {
		return trial.Trial{}, service.StoreError("trial", "", err)
	}
	if app.Status != application.StatusUnderReview {
		if _, err := s.apps.Transition(ctx, app, application.StatusUnderReview, actor.UserID, "trial scheduled"); err != nil {
			if derr := s.trials.DeleteTrial(ctx, created.ID); derr != nil {
				s.log.WithError(derr).WithField("trial_id", created.ID).Error("roll back trial after failed transition")
			}
			return trial.Trial{}, err
		}
	}
	service.Publish(s.events, events.TypeTrialScheduled, map[string]interface{}{
		"trial_id":       created.ID,
		"application_id": created.ApplicationID,
		"coach_id":       created.CoachID,
		"scheduled_at":   created.ScheduledAt,
	})
	s.log.WithField("trial_id", created.ID).WithField("application_id", app.ID).Info("trial scheduled")
	return created, nil
}

// Complete records the evaluation of a pending trial and applies its
// outcome to the application. The outcome only moves an application that is
// UNDER_REVIEW; otherwise it is recorded and the admin's decision stands.
func (s *Service) Complete(ctx context.Context, actor user.Principal, id string, in CompleteInput) (trial.Trial, error) {
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return trial.Trial{}, err
	}
	if !actor.IsAdmin() {
		assigned, err := s.assigned(ctx, actor, t)
		if err != nil {
			return trial.Trial{}, err
		}
		if !assigned {
			return trial.Trial{}, svcerrors.Forbidden("only the assigned coach or an admin can complete this trial")
		}
	}
	if t.Status != trial.StatusPending {
		return trial.Trial{}, svcerrors.InvalidTransition("trial", string(t.Status), string(trial.StatusCompleted))
	}
	if !in.Outcome.Valid() {
		return trial.Trial{}, svcerrors.Validation("outcome", "must be RECOMMENDED, NOT_RECOMMENDED or NEEDS_RETEST")
	}
	scores, err := validateScores(in.Scores)
	if err != nil {
		return trial.Trial{}, err
	}
	notes := strings.TrimSpace(in.Notes)
	if in.Outcome == trial.OutcomeNeedsRetest && notes == "" {
		return trial.Trial{}, svcerrors.Validation("notes", "are required when a retest is needed")
	}

	now := s.now().UTC()
	t.Status = trial.StatusCompleted
	t.Outcome = in.Outcome
	t.Scores = scores
	t.Notes = notes
	t.CompletedAt = &now
	updated, err := s.trials.UpdateTrial(ctx, t)
	if err != nil {
		return trial.Trial{}, service.StoreError("trial", id, err)
	}
	metrics.RecordTrialCompletion(string(in.Outcome))
	service.Publish(s.events, events.TypeTrialCompleted, map[string]interface{}{
		"trial_id":       updated.ID,
		"application_id": updated.ApplicationID,
		"coach_id":       updated.CoachID,
		"outcome":        updated.Outcome,
	})

	if err := s.applyOutcome(ctx, actor, updated); err != nil {
		return trial.Trial{}, err
	}
	return updated, nil
}

func (s *Service) applyOutcome(ctx context.Context, actor user.Principal, t trial.Trial) error {
	app, err := s.apps.Get(ctx, actor, t.ApplicationID)
	if err != nil {
		return err
	}
	target := t.Outcome.ApplicationStatus()
	if app.Status != application.StatusUnderReview || !application.CanTransition(app.Status, target) {
		s.log.WithFields(map[string]interface{}{
			"trial_id":       t.ID,
			"application_id": app.ID,
			"status":         app.Status,
			"outcome":        t.Outcome,
		}).Warn("trial outcome recorded without changing the application")
		return nil
	}
	note := t.Notes
	if note == "" {
		note = fmt.Sprintf("trial outcome %s", t.Outcome)
	}
	_, err = s.apps.Transition(ctx, app, target, actor.UserID, note)
	return err
}

func validateScores(in map[string]int) (map[string]int, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]int, len(in))
	for skill, score := range in {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			return nil, svcerrors.Validation("scores", "skill names must not be empty")
		}
		if score < trial.MinScore || score > trial.MaxScore {
			return nil, svcerrors.Validation("scores", fmt.Sprintf("%s must be between %d and %d", skill, trial.MinScore, trial.MaxScore))
		}
		out[skill] = score
	}
	return out, nil
}

// Cancel calls off a pending trial.
func (s *Service) Cancel(ctx context.Context, actor user.Principal, id, reason string) (trial.Trial, error) {
	if !actor.IsAdmin() {
		return trial.Trial{}, svcerrors.Forbidden("")
	}
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return trial.Trial{}, err
	}
	if t.Status != trial.StatusPending {
		return trial.Trial{}, svcerrors.InvalidTransition("trial", string(t.Status), string(trial.StatusCancelled))
	}
	t.Status = trial.StatusCancelled
	t.Notes = strings.TrimSpace(reason)
	updated, err := s.trials.UpdateTrial(ctx, t)
	if err != nil {
		return trial.Trial{}, service.StoreError("trial", id, err)
	}
	service.Publish(s.events, events.TypeTrialCancelled, map[string]interface{}{
		"trial_id":       updated.ID,
		"application_id": updated.ApplicationID,
		"coach_id":       updated.CoachID,
	})
	s.log.WithField("trial_id", id).Info("trial cancelled")
	return updated, nil
}

// Update reschedules or reassigns a pending trial.
func (s *Service) Update(ctx context.Context, actor user.Principal, id string, in UpdateInput) (trial.Trial, error) {
	if !actor.IsAdmin() {
		return trial.Trial{}, svcerrors.Forbidden("")
	}
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return trial.Trial{}, err
	}
	if t.Status != trial.StatusPending {
		return trial.Trial{}, svcerrors.Conflict("only PENDING trials can be changed")
	}
	if in.ScheduledAt != nil {
		if in.ScheduledAt.IsZero() {
			return trial.Trial{}, svcerrors.Validation("scheduled_at", "must not be empty")
		}
		t.ScheduledAt = in.ScheduledAt.UTC()
	}
	if in.Location != nil {
		t.Location = strings.TrimSpace(*in.Location)
	}
	if in.CoachID != nil && strings.TrimSpace(*in.CoachID) != t.CoachID {
		c, err := s.activeCoach(ctx, strings.TrimSpace(*in.CoachID))
		if err != nil {
			return trial.Trial{}, err
		}
		t.CoachID = c.ID
	}
	updated, err := s.trials.UpdateTrial(ctx, t)
	if err != nil {
		return trial.Trial{}, service.StoreError("trial", id, err)
	}
	return updated, nil
}

// Get returns a trial visible to actor: admins see all, coaches their own
// and players those of their own applications.
func (s *Service) Get(ctx context.Context, actor user.Principal, id string) (trial.Trial, error) {
	t, err := s.trials.GetTrial(ctx, id)
	if err != nil {
		return trial.Trial{}, service.StoreError("trial", id, err)
	}
	switch actor.Role {
	case user.RoleAdmin:
		return t, nil
	case user.RoleCoach:
		assigned, err := s.assigned(ctx, actor, t)
		if err != nil {
			return trial.Trial{}, err
		}
		if assigned {
			return t, nil
		}
	case user.RolePlayer:
		if _, err := s.apps.Get(ctx, actor, t.ApplicationID); err == nil {
			return t, nil
		} else if !svcerrors.HasCode(err, svcerrors.CodeNotFound) {
			return trial.Trial{}, err
		}
	}
	return trial.Trial{}, svcerrors.NotFound("trial", id)
}

// List returns trials visible to actor, newest first.
func (s *Service) List(ctx context.Context, actor user.Principal, in ListInput) (storage.Page[trial.Trial], error) {
	params := in.ListParams.Normalize()
	if in.Status != "" && !in.Status.Valid() {
		return storage.Page[trial.Trial]{}, svcerrors.Validation("status", "unknown status")
	}
	filter := storage.TrialFilter{
		ApplicationID: strings.TrimSpace(in.ApplicationID),
		CoachID:       strings.TrimSpace(in.CoachID),
		Status:        in.Status,
		ListParams:    params,
	}
	switch actor.Role {
	case user.RoleAdmin:
	case user.RoleCoach:
		c, err := s.coachFor(ctx, actor)
		if err != nil {
			return storage.Page[trial.Trial]{}, err
		}
		if c == nil {
			return storage.NewPage[trial.Trial](nil, 0, params), nil
		}
		filter.CoachID = c.ID
	case user.RolePlayer:
		filter.ApplicantID = actor.UserID
	default:
		return storage.Page[trial.Trial]{}, svcerrors.Forbidden("")
	}
	items, total, err := s.trials.ListTrials(ctx, filter)
	if err != nil {
		return storage.Page[trial.Trial]{}, service.StoreError("trial", "", err)
	}
	return storage.NewPage(items, total, params), nil
}

func (s *Service) assigned(ctx context.Context, actor user.Principal, t trial.Trial) (bool, error) {
	if actor.Role != user.RoleCoach {
		return false, nil
	}
	c, err := s.coachFor(ctx, actor)
	if err != nil || c == nil {
		return false, err
	}
	return c.ID == t.CoachID, nil
}

func (s *Service) coachFor(ctx context.Context, actor user.Principal) (*coach.Coach, error) {
	c, err := s.coaches.GetCoachByUserID(ctx, actor.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, service.StoreError("coach", "", err)
	}
	return &c, nil
}

func (s *Service) activeCoach(ctx context.Context, id string) (coach.Coach, error) {
	c, err := s.coaches.GetCoach(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return coach.Coach{}, svcerrors.Validation("coach_id", "unknown coach")
	}
	if err != nil {
		return coach.Coach{}, service.StoreError("coach", id, err)
	}
	if !c.Active {
		return coach.Coach{}, svcerrors.Validation("coach_id", "coach is not active")
	}
	return c, nil
}
