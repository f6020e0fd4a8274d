package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/geocoder89/bloghub/internal/domain/post"
	"github.com/geocoder89/bloghub/internal/observability"
	"github.com/geocoder89/bloghub/internal/query"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPostsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PostsRepo {
	return &PostsRepo{pool: pool, prom: prom}
}

func (r *PostsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// author name is resolved inline so every read returns an expanded author ref
const postColumns = `p.id, p.title, p.slug, p.content, p.excerpt,
	p.author_id, u.name, p.category, p.tags, p.image, p.likes, p.comment_ids,
	p.created_at, p.updated_at`

const postReturning = `id, title, slug, content, excerpt,
	author_id, (SELECT name FROM users WHERE users.id = posts.author_id),
	category, tags, image, likes, comment_ids, created_at, updated_at`

func scanPost(row pgx.Row) (post.Post, error) {
	var p post.Post

	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Content, &p.Excerpt,
		&p.Author.ID, &p.Author.Name, &p.Category, &p.Tags, &p.Image, &p.Likes, &p.CommentIDs,
		&p.CreatedAt, &p.UpdatedAt,
	)

	return p, err
}

// filterable field -> column expression; the query package has already
// rejected anything outside this set
var filterColumns = map[string]string{
	"category": "p.category",
	"author":   "p.author_id",
	"slug":     "p.slug",
}

var sortColumns = map[string]string{
	"createdAt": "p.created_at",
	"title":     "p.title",
	"category":  "p.category",
	"likes":     "cardinality(p.likes)",
}

var comparisonOps = map[query.Op]string{
	query.OpEq:  "=",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

// buildWhere renders the structured filter into a WHERE clause with
// positional args. All field constraints AND together; the search term forms
// its own OR group over title and content.
func buildWhere(f query.Filter) (string, []interface{}, error) {
	var conds []string
	var args []interface{}

	argsPosition := 1

	for _, c := range f.Conditions {
		switch c.Field {
		case "tags":
			if c.Op == query.OpIn {
				// any overlap with the requested tag set
				conds = append(conds, fmt.Sprintf("p.tags && $%d", argsPosition))
				args = append(args, c.Values)
			} else {
				conds = append(conds, fmt.Sprintf("$%d = ANY(p.tags)", argsPosition))
				args = append(args, c.Value)
			}
			argsPosition++

		case "likes":
			n, err := strconv.Atoi(c.Value)

			if err != nil {
				return "", nil, fmt.Errorf("non-numeric likes constraint %q", c.Value)
			}

			conds = append(conds, fmt.Sprintf("cardinality(p.likes) %s $%d", comparisonOps[c.Op], argsPosition))
			args = append(args, n)
			argsPosition++

		default:
			col, ok := filterColumns[c.Field]

			if !ok {
				return "", nil, fmt.Errorf("unfilterable field %q", c.Field)
			}

			if c.Op == query.OpIn {
				conds = append(conds, fmt.Sprintf("%s = ANY($%d)", col, argsPosition))
				args = append(args, c.Values)
			} else {
				conds = append(conds, fmt.Sprintf("%s = $%d", col, argsPosition))
				args = append(args, c.Value)
			}
			argsPosition++
		}
	}

	if f.Search != "" {
		conds = append(conds, fmt.Sprintf("(p.title ILIKE $%d OR p.content ILIKE $%d)", argsPosition, argsPosition))
		args = append(args, "%"+escapeLike(f.Search)+"%")
		argsPosition++
	}

	if len(conds) == 0 {
		return "", args, nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// % and _ are wildcards inside ILIKE patterns
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

func buildOrderBy(keys []query.SortKey) string {
	if len(keys) == 0 {
		keys = []query.SortKey{{Field: "createdAt", Desc: true}}
	}

	parts := make([]string, 0, len(keys)+1)

	for _, k := range keys {
		col, ok := sortColumns[k.Field]

		if !ok {
			continue
		}

		dir := " ASC"

		if k.Desc {
			dir = " DESC"
		}

		parts = append(parts, col+dir)
	}

	// stable ordering for pagination
	parts = append(parts, "p.id ASC")

	return " ORDER BY " + strings.Join(parts, ", ")
}

func (r *PostsRepo) Create(ctx context.Context, p post.Post) error {
	return r.observe("posts.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO posts (id, title, slug, content, excerpt, author_id, category, tags, image, likes, comment_ids, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			p.ID, p.Title, p.Slug, p.Content, p.Excerpt, p.Author.ID, p.Category,
			p.Tags, p.Image, p.Likes, p.CommentIDs, p.CreatedAt, p.UpdatedAt,
		)
		return err
	})
}

func (r *PostsRepo) List(ctx context.Context, f query.Filter, sort []query.SortKey, offset, limit int) ([]post.Post, error) {
	where, args, err := buildWhere(f)

	if err != nil {
		return nil, err
	}

	q := `SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.author_id` +
		where + buildOrderBy(sort) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	args = append(args, limit, offset)

	var rows pgx.Rows

	err = r.observe("posts.list", func() error {
		rows, err = r.pool.Query(ctx, q, args...)
		return err
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]post.Post, 0, limit)

	for rows.Next() {
		p, e := scanPost(rows)

		if e != nil {
			return nil, e
		}

		out = append(out, p)
	}

	if e := rows.Err(); e != nil {
		return nil, e
	}

	return out, nil
}

// Count shares the WHERE clause with List so pagination hints always reflect
// the filtered total, not the collection size.
func (r *PostsRepo) Count(ctx context.Context, f query.Filter) (int, error) {
	where, args, err := buildWhere(f)

	if err != nil {
		return 0, err
	}

	var total int

	err = r.observe("posts.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&total)
	})

	if err != nil {
		return 0, err
	}

	return total, nil
}

func (r *PostsRepo) GetByID(ctx context.Context, id string) (post.Post, error) {
	var p post.Post
	var err error

	err = r.observe("posts.get_by_id", func() error {
		p, err = scanPost(r.pool.QueryRow(ctx,
			`SELECT `+postColumns+`
			 FROM posts p
			 JOIN users u ON u.id = p.author_id
			 WHERE p.id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}

		return post.Post{}, err
	}

	return p, nil
}

// Update applies only the fields present in the request; the slug is fixed at
// creation and never recomputed.
func (r *PostsRepo) Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error) {
	var p post.Post
	var err error

	err = r.observe("posts.update", func() error {
		p, err = scanPost(r.pool.QueryRow(ctx,
			`UPDATE posts
			 SET title = COALESCE($2::text, title),
			     content = COALESCE($3::text, content),
			     excerpt = COALESCE($4::text, excerpt),
			     category = COALESCE($5::text, category),
			     tags = COALESCE($6::text[], tags),
			     image = COALESCE($7::text, image),
			     updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+postReturning,
			id, req.Title, req.Content, req.Excerpt, req.Category, req.Tags, req.Image))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}

		return post.Post{}, err
	}

	return p, nil
}

// Delete removes the post and cascades its comments inside one transaction.
func (r *PostsRepo) Delete(ctx context.Context, id string) error {
	return r.observe("posts.delete", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		_, err = tx.Exec(ctx, `DELETE FROM comments WHERE post_id = $1`, id)

		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return post.ErrNotFound
		}

		return tx.Commit(ctx)
	})
}

// Like is a single guarded statement rather than read-modify-write, so two
// concurrent likes from the same user cannot both slip through.
func (r *PostsRepo) Like(ctx context.Context, postID, userID string) (post.Post, error) {
	var p post.Post
	var err error

	err = r.observe("posts.like", func() error {
		p, err = scanPost(r.pool.QueryRow(ctx,
			`UPDATE posts
			 SET likes = array_append(likes, $2)
			 WHERE id = $1 AND NOT ($2 = ANY(likes))
			 RETURNING `+postReturning,
			postID, userID))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, r.classifyLikeMiss(ctx, postID, post.ErrAlreadyLiked)
		}

		return post.Post{}, err
	}

	return p, nil
}

func (r *PostsRepo) Unlike(ctx context.Context, postID, userID string) (post.Post, error) {
	var p post.Post
	var err error

	err = r.observe("posts.unlike", func() error {
		p, err = scanPost(r.pool.QueryRow(ctx,
			`UPDATE posts
			 SET likes = array_remove(likes, $2)
			 WHERE id = $1 AND $2 = ANY(likes)
			 RETURNING `+postReturning,
			postID, userID))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, r.classifyLikeMiss(ctx, postID, post.ErrNotLiked)
		}

		return post.Post{}, err
	}

	return p, nil
}

// a guarded like/unlike that matched no row is either a missing post or a
// membership conflict; look at the post to tell the two apart
func (r *PostsRepo) classifyLikeMiss(ctx context.Context, postID string, conflict error) error {
	var exists bool

	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID,
	).Scan(&exists)

	if err != nil {
		return err
	}

	if !exists {
		return post.ErrNotFound
	}

	return conflict
}
