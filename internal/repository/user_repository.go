package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

// ErrEmailExists indicates that registration failed because the
// email address is already taken.
var ErrEmailExists = errors.New("email already exists")

// UserRepo manages persistence for users.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser carries the fields accepted at registration time.  DOB is
// optional; IsAdmin defaults to false and is only honored when the
// registration endpoint chooses to pass it through.
type NewUser struct {
	Name     string
	UserName string
	Email    string
	Password string
	DOB      *time.Time
	IsAdmin  bool
}

// Create hashes the password, inserts the user and returns its ID.
// A duplicate email surfaces as ErrEmailExists (MySQL error 1062).
func (r *UserRepo) Create(ctx context.Context, nu NewUser, bcryptCost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(nu.Email))
	hash, err := utils.HashPassword(nu.Password, bcryptCost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, user_name, email, password_hash, dob, is_admin) VALUES (?,?,?,?,?,?)",
		nu.Name, nu.UserName, email, hash, nu.DOB, nu.IsAdmin)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	var dob sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, user_name, email, password_hash, dob, is_admin, created_at, updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Name, &u.UserName, &u.Email, &u.PasswordHash, &dob, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	if dob.Valid {
		d := dob.Time
		u.DOB = &d
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	var dob sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, user_name, email, password_hash, dob, is_admin, created_at, updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Name, &u.UserName, &u.Email, &u.PasswordHash, &dob, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	if dob.Valid {
		d := dob.Time
		u.DOB = &d
	}
	return u, nil
}

// UserPatch carries the optional fields of a self-service profile
// update.  A nil field keeps the stored value.  Password, when
// present, is the plain text to be re-hashed; IsAdmin is not
// patchable through this path.
type UserPatch struct {
	Name     *string
	UserName *string
	Email    *string
	DOB      *time.Time
	Password *string
}

// UpdateProfile applies a patch to the user's own row and returns
// the updated record.  The email is normalized before writing and a
// duplicate surfaces as ErrEmailExists; a present password is
// re-hashed with the given bcrypt cost.  sql.ErrNoRows is returned
// when the user does not exist.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p UserPatch, bcryptCost int) (model.User, error) {
	sets := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	if p.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *p.Name)
	}
	if p.UserName != nil {
		sets = append(sets, "user_name=?")
		args = append(args, *p.UserName)
	}
	if p.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*p.Email)))
	}
	if p.DOB != nil {
		sets = append(sets, "dob=?")
		args = append(args, *p.DOB)
	}
	if p.Password != nil {
		hash, err := utils.HashPassword(*p.Password, bcryptCost)
		if err != nil {
			return model.User{}, err
		}
		sets = append(sets, "password_hash=?")
		args = append(args, hash)
	}
	if len(sets) > 0 {
		args = append(args, id)
		q := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id=?"
		if _, err := r.DB.ExecContext(ctx, q, args...); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "1062") {
				return model.User{}, ErrEmailExists
			}
			return model.User{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// IsAdmin reports whether the user with the given id carries the
// admin flag.  Missing users are simply not admins.
func (r *UserRepo) IsAdmin(ctx context.Context, id uint64) (bool, error) {
	var isAdmin bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT is_admin FROM users WHERE id=? LIMIT 1", id).Scan(&isAdmin)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return isAdmin, nil
}
