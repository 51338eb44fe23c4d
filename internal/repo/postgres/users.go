package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/geocoder89/cohorthub/internal/domain/audit"
	"github.com/geocoder89/cohorthub/internal/domain/job"
	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/geocoder89/cohorthub/internal/jsonlist"
	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	store
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{store{pool: pool, prom: prom}}
}

const userWithProfileSelect = `
	SELECT u.id, u.email, u.name, u.initials, u.role, u.status,
	       u.avatar, u.bio, u.location, u.phone, u.created_at, u.updated_at,
	       p.id, p.title, p.bio, p.cohort, p.education,
	       p.experience, p.expertise, p.skills, p.looking_for, p.offering,
	       p.phone, p.linkedin, p.twitter, p.github, p.website,
	       p.joined_date, p.updated_at
	FROM users u
	LEFT JOIN profiles p ON p.user_id = u.id`

func scanUserWithProfile(row pgx.Row) (user.User, error) {
	var (
		u              user.User
		p              user.Profile
		role, status   string
		profileID      *string
		profileUpdated *time.Time
	)

	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.Initials, &role, &status,
		&u.Avatar, &u.Bio, &u.Location, &u.Phone, &u.CreatedAt, &u.UpdatedAt,
		&profileID, &p.Title, &p.Bio, &p.Cohort, &p.Education,
		&p.Experience, &p.Expertise, &p.Skills, &p.LookingFor, &p.Offering,
		&p.Phone, &p.LinkedIn, &p.Twitter, &p.GitHub, &p.Website,
		&p.JoinedDate, &profileUpdated,
	)
	if err != nil {
		return user.User{}, err
	}

	u.Role = user.Role(role)
	u.Status = user.Status(status)

	if profileID != nil {
		p.ID = *profileID
		p.UserID = u.ID
		if profileUpdated != nil {
			p.UpdatedAt = *profileUpdated
		}
		u.Profile = &p
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		var e error
		u, e = scanUserWithProfile(r.pool.QueryRow(ctx, userWithProfileSelect+` WHERE u.id = $1`, id))
		return e
	})
	if err != nil {
		return user.User{}, notFound(err, user.ErrNotFound)
	}
	return u, nil
}

// List returns every user with its profile, newest first.
func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	out := make([]user.User, 0)

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx, userWithProfileSelect+` ORDER BY u.created_at DESC, u.id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUserWithProfile(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})

	return out, err
}

func (r *UsersRepo) GetRole(ctx context.Context, id string) (user.Role, error) {
	var role string

	err := r.observe("users.get_role", func() error {
		return r.pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, id).Scan(&role)
	})
	if err != nil {
		return "", notFound(err, user.ErrNotFound)
	}
	return user.Role(role), nil
}

// ListIDsByStatus feeds notification fan-out.
func (r *UsersRepo) ListIDsByStatus(ctx context.Context, status user.Status) ([]string, error) {
	return r.listIDs(ctx, "users.list_ids_by_status", `SELECT id FROM users WHERE status = $1 ORDER BY id`, string(status))
}

func (r *UsersRepo) ListIDsByRole(ctx context.Context, role user.Role) ([]string, error) {
	return r.listIDs(ctx, "users.list_ids_by_role", `SELECT id FROM users WHERE role = $1 ORDER BY id`, string(role))
}

func (r *UsersRepo) listIDs(ctx context.Context, op, sql string, args ...any) ([]string, error) {
	ids := make([]string, 0)

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})

	return ids, err
}

// CreateWithProfile inserts the user row, its profile and the audit entry
// in one transaction: either all persist or none do.
func (r *UsersRepo) CreateWithProfile(ctx context.Context, u user.User, p user.Profile, entry audit.Entry) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		err := r.observe("users.create_with_profile.user", func() error {
			_, e := tx.Exec(ctx, `
				INSERT INTO users (id, email, name, initials, role, status, password, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			`, u.ID, u.Email, u.Name, u.Initials, string(u.Role), string(u.Status), user.PasswordMarker, u.CreatedAt, u.UpdatedAt)
			return e
		})
		if err != nil {
			return err
		}

		err = r.observe("users.create_with_profile.profile", func() error {
			_, e := tx.Exec(ctx, `
				INSERT INTO profiles (
					id, user_id, title, bio, cohort, linkedin,
					experience, expertise, skills, looking_for, offering,
					joined_date, updated_at
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			`, p.ID, p.UserID, p.Title, p.Bio, p.Cohort, p.LinkedIn,
				p.Experience, p.Expertise, p.Skills, p.LookingFor, p.Offering,
				u.CreatedAt, p.UpdatedAt)
			return e
		})
		if err != nil {
			return err
		}

		return r.observe("users.create_with_profile.audit", func() error {
			return insertAudit(ctx, tx, entry)
		})
	})

	if IsUniqueViolation(err) {
		return user.ErrEmailAlreadyUsed
	}
	return err
}

// listArg keeps a stored list when the update leaves it out.
func listArg[T any](v []T) any {
	if v == nil {
		return nil
	}
	return jsonlist.Of[T](v)
}

// UpdateSelf applies the caller's own changes and upserts the nested
// profile. Nil fields keep their stored value.
func (r *UsersRepo) UpdateSelf(ctx context.Context, id string, req user.UpdateSelfRequest) (user.User, error) {
	var initials *string
	if req.Name != nil {
		s := user.InitialsFromName(*req.Name)
		initials = &s
	}

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var tag pgconn.CommandTag
		err := r.observe("users.update_self.user", func() error {
			var e error
			tag, e = tx.Exec(ctx, `
				UPDATE users
				SET name = COALESCE($2, name),
				    initials = COALESCE($3, initials),
				    avatar = COALESCE($4, avatar),
				    bio = COALESCE($5, bio),
				    location = COALESCE($6, location),
				    phone = COALESCE($7, phone),
				    updated_at = NOW()
				WHERE id = $1
			`, id, req.Name, initials, req.Avatar, req.Bio, req.Location, req.Phone)
			return e
		})
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		if req.Profile == nil {
			return nil
		}

		p := req.Profile
		return r.observe("users.update_self.profile_upsert", func() error {
			_, e := tx.Exec(ctx, `
				INSERT INTO profiles (
					id, user_id, title, bio, cohort, education, phone,
					linkedin, twitter, github, website,
					expertise, skills, looking_for, offering, experience,
					joined_date, updated_at
				) VALUES (
					$1, $2, $3, $4, $5, $6, $7,
					$8, $9, $10, $11,
					COALESCE($12, '[]'), COALESCE($13, '[]'), COALESCE($14, '[]'), COALESCE($15, '[]'), COALESCE($16, '[]'),
					NOW(), NOW()
				)
				ON CONFLICT (user_id) DO UPDATE SET
					title = COALESCE($3, profiles.title),
					bio = COALESCE($4, profiles.bio),
					cohort = COALESCE($5, profiles.cohort),
					education = COALESCE($6, profiles.education),
					phone = COALESCE($7, profiles.phone),
					linkedin = COALESCE($8, profiles.linkedin),
					twitter = COALESCE($9, profiles.twitter),
					github = COALESCE($10, profiles.github),
					website = COALESCE($11, profiles.website),
					expertise = COALESCE($12, profiles.expertise),
					skills = COALESCE($13, profiles.skills),
					looking_for = COALESCE($14, profiles.looking_for),
					offering = COALESCE($15, profiles.offering),
					experience = COALESCE($16, profiles.experience),
					updated_at = NOW()
			`, uuid.NewString(), id, p.Title, p.Bio, p.Cohort, p.Education, p.Phone,
				p.LinkedIn, p.Twitter, p.GitHub, p.Website,
				listArg(p.Expertise), listArg(p.Skills), listArg(p.LookingFor), listArg(p.Offering), listArg(p.Experience))
			return e
		})
	})
	if err != nil {
		return user.User{}, err
	}

	return r.GetByID(ctx, id)
}

// UpdateStatus changes a member's status, audits it and queues the member
// notification, all in one transaction.
func (r *UsersRepo) UpdateStatus(ctx context.Context, actorID, userID string, status user.Status, notify job.CreateRequest) error {
	var previous string

	return r.inTx(ctx, func(tx pgx.Tx) error {
		err := r.observe("users.update_status.lock", func() error {
			return tx.QueryRow(ctx, `SELECT status FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&previous)
		})
		if err != nil {
			return notFound(err, user.ErrNotFound)
		}

		err = r.observe("users.update_status.update", func() error {
			_, e := tx.Exec(ctx, `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`, userID, string(status))
			return e
		})
		if err != nil {
			return err
		}

		entry := audit.NewEntry(actorID, audit.ActionUserStatusChange, "user", userID, map[string]string{
			"from": previous,
			"to":   string(status),
		})
		if err := r.observe("users.update_status.audit", func() error { return insertAudit(ctx, tx, entry) }); err != nil {
			return err
		}

		if previous == string(status) {
			return nil
		}

		return r.observe("users.update_status.enqueue", func() error {
			return insertJob(ctx, tx, job.New(notify))
		})
	})
}

// PromoteAdmin grants ADMIN to the account with email. It reports whether a
// row changed; a missing account is not an error.
func (r *UsersRepo) PromoteAdmin(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}

	var tag pgconn.CommandTag
	err := r.observe("users.promote_admin", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `
			UPDATE users
			SET role = 'ADMIN', status = 'ACTIVE', updated_at = NOW()
			WHERE lower(email) = lower($1) AND (role <> 'ADMIN' OR status <> 'ACTIVE')
		`, email)
		return e
	})
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

// ExistingIDs filters ids down to those present in users.
func (r *UsersRepo) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	return r.listIDs(ctx, "users.existing_ids", `SELECT id FROM users WHERE id = ANY($1) ORDER BY id`, ids)
}
