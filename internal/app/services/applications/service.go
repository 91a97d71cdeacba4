// Package applications implements player application intake and review.
package applications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/core/service"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/application"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/events"
	"github.com/clubhouse-sports/clubhouse/internal/app/metrics"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	svcerrors "github.com/clubhouse-sports/clubhouse/internal/errors"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
)

const dateLayout = "2006-01-02"

var openStatuses = []application.Status{
	application.StatusDraft,
	application.StatusSubmitted,
	application.StatusUnderReview,
	application.StatusHold,
}

// Fields carries application form values. Nil pointers leave a field
// untouched; ApplicantID is honoured only on create.
type Fields struct {
	ApplicantID     string  `json:"applicant_id"`
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	DateOfBirth     *string `json:"date_of_birth"`
	Gender          *string `json:"gender"`
	Phone           *string `json:"phone"`
	Email           *string `json:"email"`
	Address         *string `json:"address"`
	Position        *string `json:"position"`
	DominantFoot    *string `json:"dominant_foot"`
	PreviousClub    *string `json:"previous_club"`
	GuardianName    *string `json:"guardian_name"`
	GuardianPhone   *string `json:"guardian_phone"`
	PreferredTeamID *string `json:"preferred_team_id"`
	Notes           *string `json:"notes"`
}

// Decision is an admin review outcome.
type Decision struct {
	Status application.Status `json:"status"`
	Reason string             `json:"reason"`
}

// ListInput narrows List.
type ListInput struct {
	Status application.Status
	Query  string
	TeamID string
	storage.ListParams
}

// Service manages applications.
type Service struct {
	apps    storage.ApplicationStore
	users   storage.UserStore
	teams   storage.TeamStore
	coaches storage.CoachStore
	trials  storage.TrialStore
	events  events.Publisher
	log     *logger.Logger
	now     func() time.Time
}

// New constructs the applications service.
func New(apps storage.ApplicationStore, users storage.UserStore, teams storage.TeamStore, coaches storage.CoachStore, trials storage.TrialStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("applications")
	}
	return &Service{apps: apps, users: users, teams: teams, coaches: coaches, trials: trials, log: log, now: time.Now}
}

// AttachPublisher wires the live event stream.
func (s *Service) AttachPublisher(pub events.Publisher) {
	s.events = pub
}

// Descriptor advertises the service.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "applications",
		Domain:       "application",
		Capabilities: []string{"intake", "review", "history"},
	}
}

// Create opens a DRAFT application. Players apply for themselves; admins
// must name the applicant.
func (s *Service) Create(ctx context.Context, actor user.Principal, f Fields) (application.Application, error) {
	applicantID := strings.TrimSpace(f.ApplicantID)
	switch actor.Role {
	case user.RolePlayer:
		if applicantID != "" && applicantID != actor.UserID {
			return application.Application{}, svcerrors.Forbidden("players can only apply for themselves")
		}
		applicantID = actor.UserID
	case user.RoleAdmin:
		if applicantID == "" {
			return application.Application{}, svcerrors.Validation("applicant_id", "is required")
		}
	default:
		return application.Application{}, svcerrors.Forbidden("only players and admins can create applications")
	}

	applicant, err := s.users.GetUser(ctx, applicantID)
	if errors.Is(err, storage.ErrNotFound) {
		return application.Application{}, svcerrors.Validation("applicant_id", "unknown user")
	}
	if err != nil {
		return application.Application{}, service.StoreError("user", applicantID, err)
	}
	if applicant.Role != user.RolePlayer {
		return application.Application{}, svcerrors.Validation("applicant_id", "applicant must be a player")
	}

	_, open, err := s.apps.ListApplications(ctx, storage.ApplicationFilter{
		ApplicantID: applicantID,
		Statuses:    openStatuses,
		ListParams:  storage.ListParams{Limit: 1},
	})
	if err != nil {
		return application.Application{}, service.StoreError("application", "", err)
	}
	if open > 0 {
		return application.Application{}, svcerrors.Conflict("applicant already has an open application")
	}

	app := application.Application{
		ApplicantID: applicantID,
		Phone:       applicant.Phone,
		Email:       applicant.Email,
		Status:      application.StatusDraft,
	}
	if err := s.applyFields(ctx, &app, f); err != nil {
		return application.Application{}, err
	}
	created, err := s.apps.CreateApplication(ctx, app)
	if errors.Is(err, storage.ErrConflict) {
		return application.Application{}, svcerrors.Conflict("applicant already has an open application")
	}
	if err != nil {
		return application.Application{}, service.StoreError("application", "", err)
	}
	s.record(ctx, created, "", actor.UserID, "")
	return created, nil
}

// Update edits a DRAFT application.
func (s *Service) Update(ctx context.Context, actor user.Principal, id string, f Fields) (application.Application, error) {
	app, err := s.editable(ctx, actor, id)
	if err != nil {
		return application.Application{}, err
	}
	if err := s.applyFields(ctx, &app, f); err != nil {
		return application.Application{}, err
	}
	updated, err := s.apps.UpdateApplication(ctx, app)
	if err != nil {
		return application.Application{}, service.StoreError("application", id, err)
	}
	return updated, nil
}

// Delete removes a DRAFT application.
func (s *Service) Delete(ctx context.Context, actor user.Principal, id string) error {
	if _, err := s.editable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.apps.DeleteApplication(ctx, id); err != nil {
		return service.StoreError("application", id, err)
	}
	s.log.WithField("application_id", id).WithField("actor_id", actor.UserID).Info("draft application deleted")
	return nil
}

func (s *Service) editable(ctx context.Context, actor user.Principal, id string) (application.Application, error) {
	app, err := s.Get(ctx, actor, id)
	if err != nil {
		return application.Application{}, err
	}
	if !CanEdit(actor, app) {
		return application.Application{}, svcerrors.Forbidden("only the applicant or an admin can change this application")
	}
	if app.Status != application.StatusDraft {
		return application.Application{}, svcerrors.Conflict("only DRAFT applications can be changed")
	}
	return app, nil
}

// CanEdit reports whether actor owns app or is an admin.
func CanEdit(actor user.Principal, app application.Application) bool {
	return actor.IsAdmin() || (actor.Role == user.RolePlayer && app.ApplicantID == actor.UserID)
}

// Submit validates a DRAFT and moves it to SUBMITTED.
func (s *Service) Submit(ctx context.Context, actor user.Principal, id string) (application.Application, error) {
	app, err := s.Get(ctx, actor, id)
	if err != nil {
		return application.Application{}, err
	}
	if !CanEdit(actor, app) {
		return application.Application{}, svcerrors.Forbidden("only the applicant or an admin can submit")
	}
	if app.Status != application.StatusDraft {
		return application.Application{}, svcerrors.InvalidTransition("application", string(app.Status), string(application.StatusSubmitted))
	}
	if problems := app.SubmissionProblems(s.now().UTC()); len(problems) > 0 {
		return application.Application{}, svcerrors.Validation("application", "incomplete for submission").
			WithDetails("fields", problems)
	}
	return s.Transition(ctx, app, application.StatusSubmitted, actor.UserID, "")
}

// StartReview moves a SUBMITTED application to UNDER_REVIEW.
func (s *Service) StartReview(ctx context.Context, actor user.Principal, id string) (application.Application, error) {
	if !actor.IsAdmin() {
		return application.Application{}, svcerrors.Forbidden("")
	}
	app, err := s.Get(ctx, actor, id)
	if err != nil {
		return application.Application{}, err
	}
	if app.Status != application.StatusSubmitted {
		return application.Application{}, svcerrors.InvalidTransition("application", string(app.Status), string(application.StatusUnderReview))
	}
	app.ReviewerID = actor.UserID
	return s.Transition(ctx, app, application.StatusUnderReview, actor.UserID, "")
}

// Decide records an admin decision. UNDER_REVIEW resumes a HOLD.
func (s *Service) Decide(ctx context.Context, actor user.Principal, id string, d Decision) (application.Application, error) {
	if !actor.IsAdmin() {
		return application.Application{}, svcerrors.Forbidden("")
	}
	switch d.Status {
	case application.StatusApproved, application.StatusUnderReview:
	case application.StatusRejected, application.StatusHold:
		if strings.TrimSpace(d.Reason) == "" {
			return application.Application{}, svcerrors.Validation("reason", "is required for "+string(d.Status))
		}
	default:
		return application.Application{}, svcerrors.Validation("status", "must be APPROVED, REJECTED, HOLD or UNDER_REVIEW")
	}
	app, err := s.Get(ctx, actor, id)
	if err != nil {
		return application.Application{}, err
	}
	if d.Status == application.StatusUnderReview && app.Status != application.StatusHold {
		return application.Application{}, svcerrors.InvalidTransition("application", string(app.Status), string(d.Status))
	}
	app.ReviewerID = actor.UserID
	return s.Transition(ctx, app, d.Status, actor.UserID, strings.TrimSpace(d.Reason))
}

// Transition moves app to another status, persists it and appends a
// history event. note becomes the decision reason on REJECTED and HOLD.
func (s *Service) Transition(ctx context.Context, app application.Application, to application.Status, actorID, note string) (application.Application, error) {
	from := app.Status
	if !application.CanTransition(from, to) {
		return application.Application{}, svcerrors.InvalidTransition("application", string(from), string(to))
	}
	now := s.now().UTC()
	app.Status = to
	switch to {
	case application.StatusSubmitted:
		app.SubmittedAt = &now
	case application.StatusApproved, application.StatusRejected:
		app.DecidedAt = &now
		app.DecisionReason = note
	case application.StatusHold:
		app.DecisionReason = note
	}

	updated, err := s.apps.UpdateApplication(ctx, app)
	if err != nil {
		return application.Application{}, service.StoreError("application", app.ID, err)
	}
	s.record(ctx, updated, from, actorID, note)
	return updated, nil
}

func (s *Service) record(ctx context.Context, app application.Application, from application.Status, actorID, note string) {
	if _, err := s.apps.AppendApplicationEvent(ctx, application.Event{
		ApplicationID: app.ID,
		From:          from,
		To:            app.Status,
		ActorID:       actorID,
		Note:          note,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		s.log.WithError(err).WithField("application_id", app.ID).Error("append application event")
	}
	metrics.RecordApplicationTransition(string(from), string(app.Status))
	service.Publish(s.events, events.TypeApplicationTransition, map[string]interface{}{
		"application_id": app.ID,
		"applicant_id":   app.ApplicantID,
		"from":           from,
		"to":             app.Status,
		"actor_id":       actorID,
	})
	s.log.WithFields(map[string]interface{}{
		"application_id": app.ID,
		"from":           from,
		"to":             app.Status,
		"actor_id":       actorID,
	}).Info("application status changed")
}

// Get returns an application visible to actor. Applications the caller may
// not see are reported as missing.
func (s *Service) Get(ctx context.Context, actor user.Principal, id string) (application.Application, error) {
	app, err := s.apps.GetApplication(ctx, id)
	if err != nil {
		return application.Application{}, service.StoreError("application", id, err)
	}
	visible, err := s.visible(ctx, actor, app)
	if err != nil {
		return application.Application{}, err
	}
	if !visible {
		return application.Application{}, svcerrors.NotFound("application", id)
	}
	return app, nil
}

func (s *Service) visible(ctx context.Context, actor user.Principal, app application.Application) (bool, error) {
	switch actor.Role {
	case user.RoleAdmin:
		return true, nil
	case user.RolePlayer:
		return app.ApplicantID == actor.UserID, nil
	case user.RoleCoach:
		coachID, err := s.coachID(ctx, actor)
		if err != nil || coachID == "" {
			return false, err
		}
		_, assigned, err := s.trials.ListTrials(ctx, storage.TrialFilter{
			ApplicationID: app.ID,
			CoachID:       coachID,
			ListParams:    storage.ListParams{Limit: 1},
		})
		if err != nil {
			return false, service.StoreError("trial", "", err)
		}
		return assigned > 0, nil
	}
	return false, nil
}

// coachID resolves the coach profile of a COACH caller, or "" when none.
func (s *Service) coachID(ctx context.Context, actor user.Principal) (string, error) {
	c, err := s.coaches.GetCoachByUserID(ctx, actor.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", service.StoreError("coach", "", err)
	}
	return c.ID, nil
}

// List returns the applications actor may see, newest first.
func (s *Service) List(ctx context.Context, actor user.Principal, in ListInput) (storage.Page[application.Application], error) {
	params := in.ListParams.Normalize()
	filter := storage.ApplicationFilter{
		TeamID:     strings.TrimSpace(in.TeamID),
		Query:      in.Query,
		ListParams: params,
	}
	if in.Status != "" {
		if !in.Status.Valid() {
			return storage.Page[application.Application]{}, svcerrors.Validation("status", "unknown status")
		}
		filter.Statuses = []application.Status{in.Status}
	}

	switch actor.Role {
	case user.RoleAdmin:
	case user.RolePlayer:
		filter.ApplicantID = actor.UserID
	case user.RoleCoach:
		coachID, err := s.coachID(ctx, actor)
		if err != nil {
			return storage.Page[application.Application]{}, err
		}
		if coachID == "" {
			return storage.NewPage[application.Application](nil, 0, params), nil
		}
		filter.CoachID = coachID
	default:
		return storage.Page[application.Application]{}, svcerrors.Forbidden("")
	}

	items, total, err := s.apps.ListApplications(ctx, filter)
	if err != nil {
		return storage.Page[application.Application]{}, service.StoreError("application", "", err)
	}
	return storage.NewPage(items, total, params), nil
}

// History returns the status history of an application, oldest first.
func (s *Service) History(ctx context.Context, actor user.Principal, id string) ([]application.Event, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	evts, err := s.apps.ListApplicationEvents(ctx, id)
	if err != nil {
		return nil, service.StoreError("application", id, err)
	}
	if evts == nil {
		evts = []application.Event{}
	}
	return evts, nil
}

func (s *Service) applyFields(ctx context.Context, app *application.Application, f Fields) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&app.FirstName, f.FirstName)
	set(&app.LastName, f.LastName)
	set(&app.Gender, f.Gender)
	set(&app.Email, f.Email)
	set(&app.Address, f.Address)
	set(&app.Position, f.Position)
	set(&app.PreviousClub, f.PreviousClub)
	set(&app.GuardianName, f.GuardianName)
	set(&app.Notes, f.Notes)

	if f.DateOfBirth != nil {
		raw := strings.TrimSpace(*f.DateOfBirth)
		if raw == "" {
			app.DateOfBirth = nil
		} else {
			dob, err := time.Parse(dateLayout, raw)
			if err != nil {
				return svcerrors.Validation("date_of_birth", "must be formatted YYYY-MM-DD")
			}
			app.DateOfBirth = &dob
		}
	}
	if f.DominantFoot != nil {
		foot := strings.ToUpper(strings.TrimSpace(*f.DominantFoot))
		switch foot {
		case "", "LEFT", "RIGHT", "BOTH":
			app.DominantFoot = foot
		default:
			return svcerrors.Validation("dominant_foot", "must be LEFT, RIGHT or BOTH")
		}
	}
	for _, p := range []struct {
		field string
		src   *string
		dst   *string
	}{
		{"phone", f.Phone, &app.Phone},
		{"guardian_phone", f.GuardianPhone, &app.GuardianPhone},
	} {
		if p.src == nil {
			continue
		}
		raw := strings.TrimSpace(*p.src)
		if raw == "" {
			*p.dst = ""
			continue
		}
		phone, err := user.NormalizePhone(raw)
		if err != nil {
			return svcerrors.Validation(p.field, err.Error())
		}
		*p.dst = phone
	}
	if f.PreferredTeamID != nil {
		teamID := strings.TrimSpace(*f.PreferredTeamID)
		if teamID != "" {
			if _, err := s.teams.GetTeam(ctx, teamID); errors.Is(err, storage.ErrNotFound) {
				return svcerrors.Validation("preferred_team_id", "unknown team")
			} else if err != nil {
				return service.StoreError("team", teamID, err)
			}
		}
		app.PreferredTeamID = teamID
	}
	return nil
}
