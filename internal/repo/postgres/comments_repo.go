package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/bloghub/internal/domain/comment"
	"github.com/geocoder89/bloghub/internal/domain/post"
	"github.com/geocoder89/bloghub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CommentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCommentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *CommentsRepo {
	return &CommentsRepo{pool: pool, prom: prom}
}

func (r *CommentsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const commentColumns = `c.id, c.content, c.author_id, u.name, c.post_id, c.created_at, c.updated_at`

const commentReturning = `id, content, author_id,
	(SELECT name FROM users WHERE users.id = comments.author_id),
	post_id, created_at, updated_at`

func scanComment(row pgx.Row) (comment.Comment, error) {
	var c comment.Comment

	err := row.Scan(&c.ID, &c.Content, &c.Author.ID, &c.Author.Name, &c.PostID, &c.CreatedAt, &c.UpdatedAt)

	return c, err
}

func (r *CommentsRepo) ListByPost(ctx context.Context, postID string) ([]comment.Comment, error) {
	var rows pgx.Rows
	var err error

	err = r.observe("comments.list_by_post", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT `+commentColumns+`
			 FROM comments c
			 JOIN users u ON u.id = c.author_id
			 WHERE c.post_id = $1
			 ORDER BY c.created_at ASC, c.id ASC`, postID)
		return err
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]comment.Comment, 0)

	for rows.Next() {
		c, e := scanComment(rows)

		if e != nil {
			return nil, e
		}

		out = append(out, c)
	}

	if e := rows.Err(); e != nil {
		return nil, e
	}

	return out, nil
}

func (r *CommentsRepo) GetByID(ctx context.Context, id string) (comment.Comment, error) {
	var c comment.Comment
	var err error

	err = r.observe("comments.get_by_id", func() error {
		c, err = scanComment(r.pool.QueryRow(ctx,
			`SELECT `+commentColumns+`
			 FROM comments c
			 JOIN users u ON u.id = c.author_id
			 WHERE c.id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return comment.Comment{}, comment.ErrNotFound
		}

		return comment.Comment{}, err
	}

	return c, nil
}

// Create inserts the comment and appends its id to the parent post's
// reference list in the same transaction, so the two can never diverge.
func (r *CommentsRepo) Create(ctx context.Context, c comment.Comment) error {
	return r.observe("comments.create", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		// lock the parent row first; also serves as the existence check
		tag, err := tx.Exec(ctx,
			`UPDATE posts
			 SET comment_ids = array_append(comment_ids, $2)
			 WHERE id = $1`,
			c.PostID, c.ID)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return post.ErrNotFound
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO comments (id, content, author_id, post_id, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			c.ID, c.Content, c.Author.ID, c.PostID, c.CreatedAt, c.UpdatedAt)

		if err != nil {
			var pgErr *pgconn.PgError

			// parent deleted between the two statements
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return post.ErrNotFound
			}

			return err
		}

		return tx.Commit(ctx)
	})
}

func (r *CommentsRepo) Update(ctx context.Context, id string, req comment.UpdateCommentRequest) (comment.Comment, error) {
	var c comment.Comment
	var err error

	err = r.observe("comments.update", func() error {
		c, err = scanComment(r.pool.QueryRow(ctx,
			`UPDATE comments
			 SET content = $2,
			     updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+commentReturning,
			id, req.Content))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return comment.Comment{}, comment.ErrNotFound
		}

		return comment.Comment{}, err
	}

	return c, nil
}

// Delete removes the comment and its back-reference from the parent post in
// one transaction.
func (r *CommentsRepo) Delete(ctx context.Context, id string) error {
	return r.observe("comments.delete", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		var postID string

		err = tx.QueryRow(ctx,
			`DELETE FROM comments WHERE id = $1 RETURNING post_id`, id,
		).Scan(&postID)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return comment.ErrNotFound
			}

			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE posts
			 SET comment_ids = array_remove(comment_ids, $2)
			 WHERE id = $1`,
			postID, id)

		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}
