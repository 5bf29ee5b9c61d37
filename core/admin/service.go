package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound           = core.NewNotFoundError("admin")
	ErrUsernameExists     = errors.New("an admin with this username already exists")
	ErrEmailExists        = errors.New("an admin with this email already exists")
	ErrInvalidCredentials = core.NewValidationError(errors.New("invalid credentials"))
)

type (
	Repository interface {
		// CheckAdminUniqueness fails with ErrUsernameExists or ErrEmailExists.
		CheckAdminUniqueness(ctx context.Context, username, email string, exec ...core.DBExecutor) error
		CreateAdmin(ctx context.Context, adm Admin, exec ...core.DBExecutor) (Admin, error)
		GetAdminByID(ctx context.Context, id string, exec ...core.DBExecutor) (Admin, error)
		GetAdminByUsername(ctx context.Context, username string, exec ...core.DBExecutor) (Admin, error)
		SetAdminLastLogin(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string) error {
	if err := svc.repo.CheckAdminUniqueness(ctx, uname, email); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(errors.Cause(err), core.FieldError{Field: field, Error: errors.Cause(err).Error()})
	}
	return nil
}

// Create registers a new admin. NewAdmin must have been validated.
func (svc *Service) Create(ctx context.Context, na NewAdmin) (Admin, error) {
	if err := svc.checkUniqueness(ctx, na.Username, na.Email); err != nil {
		return Admin{}, err
	}
	adm := Admin{
		ID:        uuid.New().String(),
		Username:  na.Username,
		Email:     na.Email,
		Role:      na.Role,
		CreatedAt: NowFunc().UTC(),
	}
	if adm.Role == "" {
		adm.Role = RoleAdmin
	}
	if err := adm.SetPassword(na.Password); err != nil {
		return Admin{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateAdmin(ctx, adm)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Admin, error) {
	return svc.repo.GetAdminByID(ctx, id)
}

// Authenticate checks a username/password pair and stamps the last login.
func (svc *Service) Authenticate(ctx context.Context, lc LoginCredentials) (Admin, error) {
	adm, err := svc.repo.GetAdminByUsername(ctx, core.CleanString(lc.Username, true /* lower */))
	if err != nil {
		if core.IsNotFound(err) {
			return Admin{}, ErrInvalidCredentials
		}
		return Admin{}, errors.Wrap(err, "finding admin")
	}
	if err = adm.CheckPassword(lc.Password); err != nil {
		return Admin{}, ErrInvalidCredentials
	}

	adm.LastLogin = NowFunc().UTC()
	if err = svc.repo.SetAdminLastLogin(ctx, adm.ID, adm.LastLogin); err != nil {
		return Admin{}, errors.Wrap(err, "saving last login")
	}
	return adm, nil
}
