package postgres

import (
	"context"

	"github.com/geocoder89/cohorthub/internal/domain/post"
	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostsRepo struct {
	store
}

func NewPostsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PostsRepo {
	return &PostsRepo{store{pool: pool, prom: prom}}
}

// authorColumns expects users aliased u and profiles aliased pr.
const authorColumns = `u.id, u.name, u.initials, u.avatar, COALESCE(NULLIF(pr.title, ''), 'Member')`

const postSelect = `
	SELECT p.id, p.author_id, p.content, p.image, p.tags, p.category, p.likes,
	       p.created_at, p.updated_at, ` + authorColumns + `
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN profiles pr ON pr.user_id = u.id`

func scanPost(row pgx.Row) (post.Post, error) {
	var p post.Post
	var a post.Author

	err := row.Scan(
		&p.ID, &p.AuthorID, &p.Content, &p.Image, &p.Tags, &p.Category, &p.Likes,
		&p.CreatedAt, &p.UpdatedAt,
		&a.ID, &a.Name, &a.Initials, &a.Avatar, &a.Title,
	)
	if err != nil {
		return post.Post{}, err
	}

	p.Author = &a
	p.Comments = []post.Comment{}
	return p, nil
}

const commentSelect = `
	SELECT c.id, c.post_id, c.author_id, c.content, c.likes, c.created_at, c.updated_at,
	       ` + authorColumns + `
	FROM comments c
	JOIN users u ON u.id = c.author_id
	LEFT JOIN profiles pr ON pr.user_id = u.id`

func scanComment(row pgx.Row) (post.Comment, error) {
	var c post.Comment
	var a post.Author

	err := row.Scan(
		&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.Likes, &c.CreatedAt, &c.UpdatedAt,
		&a.ID, &a.Name, &a.Initials, &a.Avatar, &a.Title,
	)
	if err != nil {
		return post.Comment{}, err
	}

	c.Author = &a
	return c, nil
}

// List returns the newest posts, each with its author and its comments
// oldest first.
func (r *PostsRepo) List(ctx context.Context, limit int) ([]post.Post, error) {
	limit = post.ClampLimit(limit)
	posts := make([]post.Post, 0, limit)

	err := r.observe("posts.list", func() error {
		rows, err := r.pool.Query(ctx, postSelect+` ORDER BY p.created_at DESC, p.id DESC LIMIT $1`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPost(rows)
			if err != nil {
				return err
			}
			posts = append(posts, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	if len(posts) == 0 {
		return posts, nil
	}

	ids := make([]string, 0, len(posts))
	byID := make(map[string]int, len(posts))
	for i, p := range posts {
		ids = append(ids, p.ID)
		byID[p.ID] = i
	}

	err = r.observe("posts.list.comments", func() error {
		rows, err := r.pool.Query(ctx, commentSelect+` WHERE c.post_id = ANY($1) ORDER BY c.created_at ASC, c.id ASC`, ids)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanComment(rows)
			if err != nil {
				return err
			}
			i := byID[c.PostID]
			posts[i].Comments = append(posts[i].Comments, c)
		}
		return rows.Err()
	})

	return posts, err
}

func (r *PostsRepo) GetByID(ctx context.Context, id string) (post.Post, error) {
	var p post.Post

	err := r.observe("posts.get_by_id", func() error {
		var e error
		p, e = scanPost(r.pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
		return e
	})
	if err != nil {
		return post.Post{}, notFound(err, post.ErrNotFound)
	}

	err = r.observe("posts.get_by_id.comments", func() error {
		rows, err := r.pool.Query(ctx, commentSelect+` WHERE c.post_id = $1 ORDER BY c.created_at ASC, c.id ASC`, id)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanComment(rows)
			if err != nil {
				return err
			}
			p.Comments = append(p.Comments, c)
		}
		return rows.Err()
	})

	return p, err
}

// Create stores p and returns the stored row with its author.
func (r *PostsRepo) Create(ctx context.Context, p post.Post) (post.Post, error) {
	err := r.observe("posts.create", func() error {
		_, e := r.pool.Exec(ctx, `
			INSERT INTO posts (id, author_id, content, image, tags, category, likes, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, p.ID, p.AuthorID, p.Content, p.Image, p.Tags, p.Category, p.Likes, p.CreatedAt, p.UpdatedAt)
		return e
	})
	if err != nil {
		return post.Post{}, err
	}

	return r.GetByID(ctx, p.ID)
}

// Delete removes a post when actorID wrote it or asAdmin is set. The
// ownership check and the delete run as one statement.
func (r *PostsRepo) Delete(ctx context.Context, id, actorID string, asAdmin bool) error {
	var deleted int64

	err := r.observe("posts.delete", func() error {
		tag, e := r.pool.Exec(ctx, `
			DELETE FROM posts
			WHERE id = $1 AND (author_id = $2 OR $3::boolean)
		`, id, actorID, asAdmin)
		deleted = tag.RowsAffected()
		return e
	})
	if err != nil {
		return err
	}
	if deleted > 0 {
		return nil
	}

	return r.missedDelete(ctx, "posts.delete.exists", post.ErrNotFound,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, id)
}

func (r *PostsRepo) Like(ctx context.Context, id string) (int, error) {
	var likes int

	err := r.observe("posts.like", func() error {
		return r.pool.QueryRow(ctx, `
			UPDATE posts SET likes = likes + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING likes
		`, id).Scan(&likes)
	})
	if err != nil {
		return 0, notFound(err, post.ErrNotFound)
	}
	return likes, nil
}

// CreateComment inserts c only if its post exists.
func (r *PostsRepo) CreateComment(ctx context.Context, c post.Comment) (post.Comment, error) {
	var out post.Comment

	err := r.observe("posts.create_comment", func() error {
		var id string
		err := r.pool.QueryRow(ctx, `
			INSERT INTO comments (id, post_id, author_id, content, likes, created_at, updated_at)
			SELECT $1, $2, $3, $4, 0, $5, $6
			WHERE EXISTS (SELECT 1 FROM posts WHERE id = $2)
			RETURNING id
		`, c.ID, c.PostID, c.AuthorID, c.Content, c.CreatedAt, c.UpdatedAt).Scan(&id)
		if err != nil {
			return err
		}

		out, err = scanComment(r.pool.QueryRow(ctx, commentSelect+` WHERE c.id = $1`, id))
		return err
	})
	if err != nil {
		return post.Comment{}, notFound(err, post.ErrNotFound)
	}
	return out, nil
}

// DeleteComment removes a comment of postID when actorID wrote it or asAdmin
// is set.
func (r *PostsRepo) DeleteComment(ctx context.Context, postID, commentID, actorID string, asAdmin bool) error {
	var deleted int64

	err := r.observe("posts.delete_comment", func() error {
		tag, e := r.pool.Exec(ctx, `
			DELETE FROM comments
			WHERE id = $1 AND post_id = $2 AND (author_id = $3 OR $4::boolean)
		`, commentID, postID, actorID, asAdmin)
		deleted = tag.RowsAffected()
		return e
	})
	if err != nil {
		return err
	}
	if deleted > 0 {
		return nil
	}

	return r.missedDelete(ctx, "posts.delete_comment.exists", post.ErrCommentNotFound,
		`SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1 AND post_id = $2)`, commentID, postID)
}

// missedDelete runs after a delete matched no row: a row that still exists
// belongs to someone else, otherwise it was never there or is already gone.
func (r *PostsRepo) missedDelete(ctx context.Context, op string, missing error, existsSQL string, args ...any) error {
	var exists bool

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx, existsSQL, args...).Scan(&exists)
	})
	if err != nil {
		return err
	}
	if !exists {
		return missing
	}
	return post.ErrForbidden
}
