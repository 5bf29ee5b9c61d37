// Package round gates feedback collection: per cohort scope, each of the two rounds is either
// enabled or disabled by admins.
package round

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
)

// Round is one of the two sequential feedback collection windows.
type Round string

const (
	Initial Round = core.RoundInitial
	Final   Round = core.RoundFinal

	// finalWindow is how long the final round is announced to stay open once enabled.
	finalWindow = 7 * 24 * time.Hour
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound     = core.NewNotFoundError("round control")
	ErrInvalidRound = core.NewValidationError(errors.New("invalid round specified"), core.FieldError{Field: "round", Error: "round must be one of: initial, final"})
)

// Parse validates a round name.
func Parse(s string) (Round, error) {
	switch r := Round(core.CleanString(s, true /* lower */)); r {
	case Initial, Final:
		return r, nil
	}
	return "", ErrInvalidRound
}

// ParseOptional is Parse, except that "" (all rounds) is accepted.
func ParseOptional(s string) (Round, error) {
	if core.CleanString(s) == "" {
		return "", nil
	}
	return Parse(s)
}

func (r Round) String() string { return string(r) }

// Control is the round state of one cohort scope.
type Control struct {
	cohort.Scope
	InitialEnabled bool       `json:"initial_enabled"`
	FinalEnabled   bool       `json:"final_enabled"`
	InitialEndDate *time.Time `json:"initial_end_date"`
	FinalEndDate   *time.Time `json:"final_end_date"`
}

// DefaultControl is the state of a scope no admin has touched yet: initial open, final closed.
func DefaultControl(scope cohort.Scope) Control {
	return Control{Scope: scope, InitialEnabled: true}
}

// Enabled reports whether the given round accepts feedback.
func (c Control) Enabled(r Round) bool {
	switch r {
	case Initial:
		return c.InitialEnabled
	case Final:
		return c.FinalEnabled
	}
	return false
}

// Change is one admin toggle. EndDate is only applied when set.
type Change struct {
	Round   Round
	Enabled bool
	EndDate *time.Time
}

// Apply returns c with the change applied.
func (c Control) Apply(ch Change) Control {
	switch ch.Round {
	case Initial:
		c.InitialEnabled = ch.Enabled
		if ch.EndDate != nil {
			c.InitialEndDate = ch.EndDate
		}
	case Final:
		c.FinalEnabled = ch.Enabled
		if ch.EndDate != nil {
			c.FinalEndDate = ch.EndDate
		}
	}
	return c
}

// NewChange builds the toggle of round r and stamps its end date:
// disabling initial ends it now; enabling final announces an end one week from now.
// Enabling initial and disabling final leave the dates untouched.
func NewChange(r Round, enabled bool) Change {
	ch := Change{Round: r, Enabled: enabled}
	now := NowFunc().UTC()
	switch {
	case r == Initial && !enabled:
		ch.EndDate = &now
	case r == Final && enabled:
		end := now.Add(finalWindow)
		ch.EndDate = &end
	}
	return ch
}

type (
	Repository interface {
		GetControl(ctx context.Context, scope cohort.Scope, exec ...core.DBExecutor) (Control, error)
		// UpdateControl upserts the control of the scope with only the change applied:
		// a missing control is created from DefaultControl first.
		UpdateControl(ctx context.Context, scope cohort.Scope, change Change, exec ...core.DBExecutor) (Control, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Status returns the round state of the scope; DefaultControl when none was saved yet.
func (svc *Service) Status(ctx context.Context, scope cohort.Scope) (Control, error) {
	if err := scope.Validate(); err != nil {
		return Control{}, err
	}
	ctrl, err := svc.repo.GetControl(ctx, scope)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return DefaultControl(scope), nil
		}
		return Control{}, errors.Wrap(err, "getting round control")
	}
	return ctrl, nil
}

// SetEnabled toggles a round of the scope.
func (svc *Service) SetEnabled(ctx context.Context, scope cohort.Scope, r Round, enabled bool) (Control, error) {
	if err := scope.Validate(); err != nil {
		return Control{}, err
	}
	if _, err := Parse(string(r)); err != nil {
		return Control{}, err
	}
	ctrl, err := svc.repo.UpdateControl(ctx, scope, NewChange(r, enabled))
	if err != nil {
		return Control{}, errors.Wrap(err, "updating round control")
	}
	return ctrl, nil
}

// EnsureInitialEnabled opens the initial round of the scope (subjects upload side effect).
func (svc *Service) EnsureInitialEnabled(ctx context.Context, scope cohort.Scope, exec ...core.DBExecutor) error {
	ctrl, err := svc.repo.GetControl(ctx, scope, exec...)
	switch {
	case err == nil && ctrl.InitialEnabled:
		return nil
	case err != nil && errors.Cause(err) != ErrNotFound:
		return errors.Wrap(err, "getting round control")
	}
	if _, err = svc.repo.UpdateControl(ctx, scope, Change{Round: Initial, Enabled: true}, exec...); err != nil {
		return errors.Wrap(err, "enabling initial round")
	}
	return nil
}

// IsOpen reports whether round r of the scope currently accepts feedback.
func (svc *Service) IsOpen(ctx context.Context, scope cohort.Scope, r Round) (bool, error) {
	ctrl, err := svc.Status(ctx, scope)
	if err != nil {
		return false, err
	}
	return ctrl.Enabled(r), nil
}
