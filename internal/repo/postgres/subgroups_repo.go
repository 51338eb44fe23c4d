package postgres

import (
	"context"

	"github.com/geocoder89/cohorthub/internal/directory"
	"github.com/geocoder89/cohorthub/internal/domain/subgroup"
	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubgroupsRepo struct {
	store
}

func NewSubgroupsRepo(pool *pgxpool.Pool, prom *observability.Prom) *SubgroupsRepo {
	return &SubgroupsRepo{store{pool: pool, prom: prom}}
}

const subgroupSelect = `
	SELECT s.id, s.name, s.description, s.type, s.icon, s.color, s.moderators,
	       s.category, s.image, s.location, s.is_active, s.tags, s.created_at, s.updated_at,
	       (SELECT COUNT(*) FROM subgroup_members m WHERE m.subgroup_id = s.id) AS member_count
	FROM subgroups s`

func scanSubgroup(row pgx.Row) (subgroup.Subgroup, error) {
	var s subgroup.Subgroup

	err := row.Scan(
		&s.ID, &s.Name, &s.Description, &s.Type, &s.Icon, &s.Color, &s.Moderators,
		&s.Category, &s.Image, &s.Location, &s.IsActive, &s.Tags, &s.CreatedAt, &s.UpdatedAt,
		&s.MemberCount,
	)
	return s, err
}

func (r *SubgroupsRepo) query(ctx context.Context, op, sql string, args ...any) ([]subgroup.Subgroup, error) {
	out := make([]subgroup.Subgroup, 0)

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			s, err := scanSubgroup(rows)
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})

	return out, err
}

// List returns the active subgroups.
func (r *SubgroupsRepo) List(ctx context.Context) ([]subgroup.Subgroup, error) {
	return r.query(ctx, "subgroups.list", subgroupSelect+` WHERE s.is_active ORDER BY s.name, s.id`)
}

// ListCohorts returns every subgroup, active or not, for the cohorts view.
func (r *SubgroupsRepo) ListCohorts(ctx context.Context) ([]subgroup.Subgroup, error) {
	return r.query(ctx, "subgroups.list_cohorts", subgroupSelect+` ORDER BY s.name, s.id`)
}

func (r *SubgroupsRepo) GetByID(ctx context.Context, id string) (subgroup.Subgroup, error) {
	var s subgroup.Subgroup

	err := r.observe("subgroups.get_by_id", func() error {
		var e error
		s, e = scanSubgroup(r.pool.QueryRow(ctx, subgroupSelect+` WHERE s.id = $1`, id))
		return e
	})
	if err != nil {
		return subgroup.Subgroup{}, notFound(err, subgroup.ErrNotFound)
	}
	return s, nil
}

// Create stores s and makes its creator a moderator member in one transaction.
func (r *SubgroupsRepo) Create(ctx context.Context, s subgroup.Subgroup, creatorID string) (subgroup.Subgroup, error) {
	m := subgroup.NewMember(s.ID, creatorID, subgroup.RoleModerator)

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		err := r.observe("subgroups.create", func() error {
			_, e := tx.Exec(ctx, `
				INSERT INTO subgroups (
					id, name, description, type, icon, color, moderators,
					category, image, location, is_active, tags, created_at, updated_at
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			`, s.ID, s.Name, s.Description, s.Type, s.Icon, s.Color, s.Moderators,
				s.Category, s.Image, s.Location, s.IsActive, s.Tags, s.CreatedAt, s.UpdatedAt)
			return e
		})
		if err != nil {
			return err
		}

		return r.observe("subgroups.create.moderator", func() error {
			return insertMember(ctx, tx, m)
		})
	})
	if err != nil {
		return subgroup.Subgroup{}, err
	}

	s.MemberCount = 1
	return s, nil
}

func insertMember(ctx context.Context, q DBTX, m subgroup.Member) error {
	_, err := q.Exec(ctx, `
		INSERT INTO subgroup_members (id, subgroup_id, user_id, role, joined_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (subgroup_id, user_id) DO NOTHING
	`, m.ID, m.SubgroupID, m.UserID, string(m.Role), m.JoinedAt)
	return err
}

// Join adds userID as a member and returns the membership. Joining twice
// returns the existing row.
func (r *SubgroupsRepo) Join(ctx context.Context, subgroupID, userID string) (subgroup.Member, error) {
	m := subgroup.NewMember(subgroupID, userID, subgroup.RoleMember)
	var role string

	err := r.observe("subgroups.join", func() error {
		return r.pool.QueryRow(ctx, `
			INSERT INTO subgroup_members (id, subgroup_id, user_id, role, joined_at)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (subgroup_id, user_id) DO UPDATE SET user_id = EXCLUDED.user_id
			RETURNING id, role, joined_at
		`, m.ID, m.SubgroupID, m.UserID, string(m.Role), m.JoinedAt).Scan(&m.ID, &role, &m.JoinedAt)
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return subgroup.Member{}, subgroup.ErrNotFound
		}
		return subgroup.Member{}, err
	}

	m.Role = subgroup.MemberRole(role)
	return m, nil
}

func (r *SubgroupsRepo) Leave(ctx context.Context, subgroupID, userID string) error {
	return r.observe("subgroups.leave", func() error {
		tag, e := r.pool.Exec(ctx, `DELETE FROM subgroup_members WHERE subgroup_id = $1 AND user_id = $2`, subgroupID, userID)
		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return subgroup.ErrNotMember
		}
		return nil
	})
}

// ListMemberSubgroups maps each user id to the subgroups they belong to,
// ordered by join time.
func (r *SubgroupsRepo) ListMemberSubgroups(ctx context.Context) (map[string][]directory.Membership, error) {
	out := make(map[string][]directory.Membership)

	err := r.observe("subgroups.list_member_subgroups", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT m.user_id, s.name, COALESCE(s.category, '')
			FROM subgroup_members m
			JOIN subgroups s ON s.id = m.subgroup_id
			ORDER BY m.user_id, m.joined_at, s.name
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var userID string
			var ms directory.Membership
			if err := rows.Scan(&userID, &ms.Name, &ms.Category); err != nil {
				return err
			}
			out[userID] = append(out[userID], ms)
		}
		return rows.Err()
	})

	return out, err
}
