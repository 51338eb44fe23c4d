package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/geocoder89/cohorthub/internal/domain/resource"
	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultResourceLimit = 100
	MaxResourceLimit     = 500
)

type ResourcesRepo struct {
	store
}

func NewResourcesRepo(pool *pgxpool.Pool, prom *observability.Prom) *ResourcesRepo {
	return &ResourcesRepo{store{pool: pool, prom: prom}}
}

var resourceColumns = []string{
	"id", "title", "description", "type", "category", "url", "file_url", "file_size",
	"downloads", "featured", "access_level", "uploaded_by_id", "tags", "created_at", "updated_at",
}

func scanResource(row pgx.Row) (resource.Resource, error) {
	var r resource.Resource
	var level string
	var category *string

	err := row.Scan(
		&r.ID, &r.Title, &r.Description, &r.Type, &category, &r.URL, &r.FileURL, &r.FileSize,
		&r.Downloads, &r.Featured, &level, &r.UploadedByID, &r.Tags, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return resource.Resource{}, err
	}

	if category != nil {
		r.Category = *category
	}
	r.AccessLevel = resource.AccessLevel(level)
	return r, nil
}

// List applies the visibility levels plus the optional filters. Featured
// rows come first, then newest.
func (r *ResourcesRepo) List(ctx context.Context, f resource.ListFilter) ([]resource.Resource, error) {
	levels := make([]string, 0, len(f.Levels))
	for _, l := range f.Levels {
		levels = append(levels, string(l))
	}

	q := psql.Select(resourceColumns...).
		From("resources").
		Where(squirrel.Eq{"access_level": levels}).
		OrderBy("featured DESC", "created_at DESC", "id").
		Limit(uint64(clampLimit(f.Limit, DefaultResourceLimit, MaxResourceLimit)))

	if f.Category != nil {
		q = q.Where(squirrel.Eq{"category": *f.Category})
	}
	if f.Type != nil {
		q = q.Where(squirrel.Eq{"type": *f.Type})
	}
	if f.Featured != nil {
		q = q.Where(squirrel.Eq{"featured": *f.Featured})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	out := make([]resource.Resource, 0)
	err = r.observe("resources.list", func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			res, err := scanResource(rows)
			if err != nil {
				return err
			}
			out = append(out, res)
		}
		return rows.Err()
	})

	return out, err
}

func (r *ResourcesRepo) GetByID(ctx context.Context, id string) (resource.Resource, error) {
	sql, args, err := psql.Select(resourceColumns...).From("resources").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return resource.Resource{}, err
	}

	var res resource.Resource
	err = r.observe("resources.get_by_id", func() error {
		var e error
		res, e = scanResource(r.pool.QueryRow(ctx, sql, args...))
		return e
	})
	if err != nil {
		return resource.Resource{}, notFound(err, resource.ErrNotFound)
	}
	return res, nil
}

func (r *ResourcesRepo) Create(ctx context.Context, res resource.Resource) (resource.Resource, error) {
	sql, args, err := psql.Insert("resources").
		Columns(resourceColumns...).
		Values(
			res.ID, res.Title, res.Description, res.Type, res.Category, res.URL, res.FileURL, res.FileSize,
			res.Downloads, res.Featured, string(res.AccessLevel), res.UploadedByID, res.Tags, res.CreatedAt, res.UpdatedAt,
		).ToSql()
	if err != nil {
		return resource.Resource{}, err
	}

	err = r.observe("resources.create", func() error {
		_, e := r.pool.Exec(ctx, sql, args...)
		return e
	})
	if err != nil {
		return resource.Resource{}, err
	}
	return res, nil
}

// Update writes every mutable column of res; callers load, Apply, then save.
func (r *ResourcesRepo) Update(ctx context.Context, res resource.Resource) (resource.Resource, error) {
	sql, args, err := psql.Update("resources").
		SetMap(map[string]any{
			"title":        res.Title,
			"description":  res.Description,
			"type":         res.Type,
			"category":     res.Category,
			"url":          res.URL,
			"file_url":     res.FileURL,
			"file_size":    res.FileSize,
			"featured":     res.Featured,
			"access_level": string(res.AccessLevel),
			"tags":         res.Tags,
			"updated_at":   res.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": res.ID}).
		ToSql()
	if err != nil {
		return resource.Resource{}, err
	}

	err = r.observe("resources.update", func() error {
		tag, e := r.pool.Exec(ctx, sql, args...)
		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return resource.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return resource.Resource{}, err
	}
	return res, nil
}

func (r *ResourcesRepo) Delete(ctx context.Context, id string) error {
	return r.observe("resources.delete", func() error {
		tag, e := r.pool.Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)
		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return resource.ErrNotFound
		}
		return nil
	})
}

// IncrementDownloads bumps the counter and returns the updated row.
func (r *ResourcesRepo) IncrementDownloads(ctx context.Context, id string) (resource.Resource, error) {
	sql, args, err := psql.Update("resources").
		Set("downloads", squirrel.Expr("downloads + 1")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(resourceColumns)).
		ToSql()
	if err != nil {
		return resource.Resource{}, err
	}

	var res resource.Resource
	err = r.observe("resources.increment_downloads", func() error {
		var e error
		res, e = scanResource(r.pool.QueryRow(ctx, sql, args...))
		return e
	})
	if err != nil {
		return resource.Resource{}, notFound(err, resource.ErrNotFound)
	}
	return res, nil
}
