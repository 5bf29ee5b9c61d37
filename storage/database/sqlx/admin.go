package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/admin"
)

const adminColumns = "id, username, email, role, password_hash, created_at, last_login"

type adminRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (row adminRow) toAdmin() admin.Admin {
	return admin.Admin{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		Role:         row.Role,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

type adminRepository struct {
	repository
}

var _ admin.Repository = (*adminRepository)(nil) // interface compliance check

func NewAdminRepository(exec core.DBExecutor) admin.Repository {
	return &adminRepository{repository{exec: exec}}
}

func (repo adminRepository) CheckAdminUniqueness(ctx context.Context, username, email string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	var taken []adminRow
	q := "SELECT " + adminColumns + " FROM admin WHERE username = ? OR email = ?"
	if err := exe.SelectContext(ctx, &taken, exe.Rebind(q), username, email); err != nil {
		return errors.Wrap(err, "checking admin uniqueness")
	}
	for _, row := range taken {
		if row.Username == username {
			return admin.ErrUsernameExists
		}
	}
	if len(taken) > 0 {
		return admin.ErrEmailExists
	}
	return nil
}

func (repo adminRepository) CreateAdmin(ctx context.Context, adm admin.Admin, exec ...core.DBExecutor) (admin.Admin, error) {
	if adm.ID == "" {
		adm.ID = uuid.New().String()
	}
	row := adminRow{
		ID:           adm.ID,
		Username:     adm.Username,
		Email:        adm.Email,
		Role:         adm.Role,
		PasswordHash: adm.PasswordHash,
		CreatedAt:    adm.CreatedAt.UTC(),
		LastLogin:    null.NewTime(adm.LastLogin.UTC(), !adm.LastLogin.IsZero()),
	}
	q := `INSERT INTO admin (` + adminColumns + `)
		VALUES (:id, :username, :email, :role, :password_hash, :created_at, :last_login)`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return admin.Admin{}, core.NewValidationError(admin.ErrUsernameExists)
		}
		return admin.Admin{}, errors.Wrap(err, "inserting admin")
	}
	return row.toAdmin(), nil
}

func (repo adminRepository) GetAdminByID(ctx context.Context, id string, exec ...core.DBExecutor) (admin.Admin, error) {
	if _, err := uuid.Parse(id); err != nil {
		return admin.Admin{}, admin.ErrNotFound
	}
	exe := repo.getExec(exec)
	var row adminRow
	if err := exe.GetContext(ctx, &row, exe.Rebind("SELECT "+adminColumns+" FROM admin WHERE id = ?"), id); err != nil {
		return admin.Admin{}, trapNoRowsErr(err, admin.ErrNotFound, "getting admin")
	}
	return row.toAdmin(), nil
}

func (repo adminRepository) GetAdminByUsername(ctx context.Context, username string, exec ...core.DBExecutor) (admin.Admin, error) {
	exe := repo.getExec(exec)
	var row adminRow
	if err := exe.GetContext(ctx, &row, exe.Rebind("SELECT "+adminColumns+" FROM admin WHERE username = ?"), username); err != nil {
		return admin.Admin{}, trapNoRowsErr(err, admin.ErrNotFound, "getting admin by username")
	}
	return row.toAdmin(), nil
}

func (repo adminRepository) SetAdminLastLogin(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx, exe.Rebind("UPDATE admin SET last_login = ? WHERE id = ?"), at.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "updating admin last login")
	}
	n, err := rowsAffected(res, "updating admin last login")
	if err != nil {
		return err
	}
	if n == 0 {
		return admin.ErrNotFound
	}
	return nil
}
