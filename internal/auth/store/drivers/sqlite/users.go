package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/courtsidehq/courtside/internal/auth/domain"
	"github.com/courtsidehq/courtside/internal/auth/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, phone_number, password_hash,
	first_name, last_name, alternate_number,
	addr_street, addr_city, addr_state, addr_zip,
	role, email_verified_at,
	verification_token_hash, verification_token_expires_at,
	reset_token_hash, reset_token_expires_at,
	is_active, is_blocked, session_version,
	created_at, updated_at`

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u                     domain.User
		role                  string
		emailVerifiedAt       sql.NullTime
		verificationTokenHash sql.NullString
		verificationExpiresAt sql.NullTime
		resetTokenHash        sql.NullString
		resetTokenExpiresAt   sql.NullTime
	)

	err := row.Scan(
		&u.ID, &u.Email, &u.PhoneNumber, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.AlternateNumber,
		&u.Address.Street, &u.Address.City, &u.Address.State, &u.Address.Zip,
		&role, &emailVerifiedAt,
		&verificationTokenHash, &verificationExpiresAt,
		&resetTokenHash, &resetTokenExpiresAt,
		&u.IsActive, &u.IsBlocked, &u.SessionVersion,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}

	u.Role = domain.ParseRole(role)
	u.EmailVerifiedAt = mapNullTimePtr(emailVerifiedAt)
	u.VerificationTokenHash = mapNullStringPtr(verificationTokenHash)
	u.VerificationTokenExpiresAt = mapNullTimePtr(verificationExpiresAt)
	u.ResetTokenHash = mapNullStringPtr(resetTokenHash)
	u.ResetTokenExpiresAt = mapNullTimePtr(resetTokenExpiresAt)
	return u, nil
}

func (r *usersRepo) getBy(ctx context.Context, where string, arg any) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getBy(ctx, `id = ?`, id)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, `email = ?`, domain.NormalizeEmail(email))
}

func (r *usersRepo) GetUserByPhone(ctx context.Context, phone string) (domain.User, error) {
	return r.getBy(ctx, `phone_number = ?`, strings.TrimSpace(phone))
}

func (r *usersRepo) GetUserByVerificationTokenHash(ctx context.Context, hash string) (domain.User, error) {
	return r.getBy(ctx, `verification_token_hash = ?`, hash)
}

func (r *usersRepo) GetUserByResetTokenHash(ctx context.Context, hash string) (domain.User, error) {
	return r.getBy(ctx, `reset_token_hash = ?`, hash)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, email, phone_number, password_hash,
			first_name, last_name, alternate_number,
			addr_street, addr_city, addr_state, addr_zip,
			role, email_verified_at,
			verification_token_hash, verification_token_expires_at,
			reset_token_hash, reset_token_expires_at,
			is_active, is_blocked, session_version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, domain.NormalizeEmail(u.Email), strings.TrimSpace(u.PhoneNumber), u.PasswordHash,
		u.FirstName, u.LastName, u.AlternateNumber,
		u.Address.Street, u.Address.City, u.Address.State, u.Address.Zip,
		string(u.Role), mapOptionalTime(u.EmailVerifiedAt),
		mapOptionalString(u.VerificationTokenHash), mapOptionalTime(u.VerificationTokenExpiresAt),
		mapOptionalString(u.ResetTokenHash), mapOptionalTime(u.ResetTokenExpiresAt),
		u.IsActive, u.IsBlocked, max(u.SessionVersion, 1),
	)
	return mapConstraint(err)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) UpdateProfile(ctx context.Context, userID string, p store.ProfilePatch) error {
	set := make([]string, 0, 9)
	args := make([]any, 0, 10)

	add := func(col string, v *string) {
		if v != nil {
			set = append(set, col+" = ?")
			args = append(args, *v)
		}
	}
	add("first_name", p.FirstName)
	add("last_name", p.LastName)
	add("phone_number", p.PhoneNumber)
	add("alternate_number", p.AlternateNumber)
	add("addr_street", p.Street)
	add("addr_city", p.City)
	add("addr_state", p.State)
	add("addr_zip", p.Zip)

	if len(set) == 0 {
		return nil
	}

	set = append(set, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, userID)

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(role), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?,
		    session_version = session_version + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		newHash, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetVerificationToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET verification_token_hash = ?,
		    verification_token_expires_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		tokenHash, expiresAt, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) ClearVerificationToken(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET verification_token_hash = NULL,
		    verification_token_expires_at = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email_verified_at = ?,
		    is_active = 1,
		    verification_token_hash = NULL,
		    verification_token_expires_at = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		at, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET reset_token_hash = ?,
		    reset_token_expires_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		tokenHash, expiresAt, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) ClearResetToken(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET reset_token_hash = NULL,
		    reset_token_expires_at = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetBlocked(ctx context.Context, userID string, blocked bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET is_blocked = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		blocked, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) ClearExpiredTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET verification_token_hash = NULL,
		    verification_token_expires_at = NULL
		WHERE verification_token_expires_at IS NOT NULL
		  AND verification_token_expires_at < ?`,
		now)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE users
		SET reset_token_hash = NULL,
		    reset_token_expires_at = NULL
		WHERE reset_token_expires_at IS NOT NULL
		  AND reset_token_expires_at < ?`,
		now)
	return err
}

// requireRow maps zero-row updates to ErrNotFound so callers can tell a
// missing user apart from a successful no-op.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
