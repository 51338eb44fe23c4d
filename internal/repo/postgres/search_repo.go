package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/geocoder89/cohorthub/internal/domain/resource"
	"github.com/geocoder89/cohorthub/internal/domain/search"
	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SearchRepo struct {
	store
}

func NewSearchRepo(pool *pgxpool.Pool, prom *observability.Prom) *SearchRepo {
	return &SearchRepo{store{pool: pool, prom: prom}}
}

// SearchAll runs the users, posts and resources lookups for q. Resources are
// limited to the given access levels. An empty q never reaches the database.
func (r *SearchRepo) SearchAll(ctx context.Context, q string, levels []resource.AccessLevel) (search.Results, error) {
	out := search.Empty()

	q = search.Normalize(q)
	if q == "" {
		return out, nil
	}
	pattern := search.Pattern(q)

	usersSQL, usersArgs, err := psql.
		Select("id", "email", "name", "initials", "role", "status", "avatar", "bio", "location", "phone", "created_at", "updated_at").
		From("users").
		Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"email": pattern},
			squirrel.ILike{"bio": pattern},
		}).
		OrderBy("name", "id").
		Limit(search.Limit).
		ToSql()
	if err != nil {
		return out, err
	}

	err = r.collect(ctx, "search.users", usersSQL, usersArgs, func(row pgx.Rows) error {
		var u user.User
		var role, status string
		if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Initials, &role, &status,
			&u.Avatar, &u.Bio, &u.Location, &u.Phone, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		u.Role = user.Role(role)
		u.Status = user.Status(status)
		out.Users = append(out.Users, u)
		return nil
	})
	if err != nil {
		return out, err
	}

	postsSQL, postsArgs, err := psql.
		Select(
			"p.id", "p.author_id", "p.content", "p.image", "p.tags", "p.category", "p.likes",
			"p.created_at", "p.updated_at", authorColumns,
		).
		From("posts p").
		Join("users u ON u.id = p.author_id").
		LeftJoin("profiles pr ON pr.user_id = u.id").
		Where(squirrel.ILike{"p.content": pattern}).
		OrderBy("p.created_at DESC", "p.id DESC").
		Limit(search.Limit).
		ToSql()
	if err != nil {
		return out, err
	}

	err = r.collect(ctx, "search.posts", postsSQL, postsArgs, func(row pgx.Rows) error {
		p, err := scanPost(row)
		if err != nil {
			return err
		}
		out.Posts = append(out.Posts, p)
		return nil
	})
	if err != nil {
		return out, err
	}

	visible := make([]string, 0, len(levels))
	for _, l := range levels {
		visible = append(visible, string(l))
	}

	resourcesSQL, resourcesArgs, err := psql.
		Select(resourceColumns...).
		From("resources").
		Where(squirrel.Eq{"access_level": visible}).
		Where(squirrel.Or{
			squirrel.ILike{"title": pattern},
			squirrel.ILike{"description": pattern},
		}).
		OrderBy("featured DESC", "created_at DESC", "id").
		Limit(search.Limit).
		ToSql()
	if err != nil {
		return out, err
	}

	err = r.collect(ctx, "search.resources", resourcesSQL, resourcesArgs, func(row pgx.Rows) error {
		res, err := scanResource(row)
		if err != nil {
			return err
		}
		out.Resources = append(out.Resources, res)
		return nil
	})

	return out, err
}

func (r *SearchRepo) collect(ctx context.Context, op, sql string, args []any, scan func(pgx.Rows) error) error {
	return r.observe(op, func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			if err := scan(rows); err != nil {
				return err
			}
		}
		return rows.Err()
	})
}
