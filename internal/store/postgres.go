package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = LOWER($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u *models.User) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET name = $2, email = $3, updated_at = NOW()
		 WHERE id = $1 RETURNING updated_at`,
		u.ID, u.Name, u.Email).Scan(&u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// --- Feedback ---

const feedbackSelect = `SELECT f.id, f.title, f.description, f.status, f.category, f.user_id, f.upvotes,
	f.rating, f.ai_summary, f.created_at, f.updated_at, u.name, u.email
	FROM feedback f LEFT JOIN users u ON u.id = f.user_id`

func scanFeedback(row pgx.Row) (*models.Feedback, error) {
	var (
		f           models.Feedback
		name, email *string
	)
	if err := row.Scan(&f.ID, &f.Title, &f.Description, &f.Status, &f.Category, &f.UserID, &f.Upvotes,
		&f.Rating, &f.AISummary, &f.CreatedAt, &f.UpdatedAt, &name, &email); err != nil {
		return nil, err
	}
	if name != nil && email != nil {
		f.Author = &models.UserSummary{ID: f.UserID, Name: *name, Email: *email}
	}
	return &f, nil
}

func (s *PostgresStore) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO feedback (id, title, description, status, category, user_id, upvotes, rating, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		f.ID, f.Title, f.Description, f.Status, f.Category, f.UserID, f.Upvotes, f.Rating, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetFeedback(ctx context.Context, id uuid.UUID) (*models.Feedback, error) {
	f, err := scanFeedback(s.pool.QueryRow(ctx, feedbackSelect+` WHERE f.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feedback: %w", err)
	}
	return f, nil
}

func (s *PostgresStore) ListFeedback(ctx context.Context, filter FeedbackFilter) ([]*models.Feedback, int, error) {
	filter = filter.Normalize()

	// Build WHERE clause dynamically
	var conditions []string
	var args []any
	argIdx := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("f.status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("f.category = $%d", argIdx))
		args = append(args, filter.Category)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM feedback f"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feedback: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	dataQuery := fmt.Sprintf("%s%s ORDER BY f.created_at DESC, f.id LIMIT $%d OFFSET $%d",
		feedbackSelect, where, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	items, err := s.queryFeedback(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}
	return items, total, nil
}

func (s *PostgresStore) ListRecentFeedback(ctx context.Context, limit int) ([]*models.Feedback, error) {
	items, err := s.queryFeedback(ctx, feedbackSelect+` ORDER BY f.created_at DESC, f.id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent feedback: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) queryFeedback(ctx context.Context, query string, args ...any) ([]*models.Feedback, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*models.Feedback, 0)
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

func (s *PostgresStore) UpdateFeedback(ctx context.Context, f *models.Feedback) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE feedback SET title = $2, description = $3, status = $4, category = $5, rating = $6, updated_at = NOW()
		 WHERE id = $1 RETURNING updated_at`,
		f.ID, f.Title, f.Description, f.Status, f.Category, f.Rating).Scan(&f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteFeedback(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpvoteFeedback(ctx context.Context, id uuid.UUID) (*models.Feedback, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE feedback SET upvotes = upvotes + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("upvote feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetFeedback(ctx, id)
}

// UpdateFeedbackSummary only fills an empty summary, so a row is annotated at most once.
func (s *PostgresStore) UpdateFeedbackSummary(ctx context.Context, id uuid.UUID, summary string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE feedback SET ai_summary = $2 WHERE id = $1 AND ai_summary IS NULL`, id, summary)
	if err != nil {
		return fmt.Errorf("update feedback summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FeedbackStats(ctx context.Context) (*models.FeedbackStats, error) {
	stats := &models.FeedbackStats{
		ByStatus:   make(map[string]int),
		ByCategory: make(map[string]int),
	}
	for _, st := range models.FeedbackStatuses {
		stats.ByStatus[st] = 0
	}
	for _, c := range models.FeedbackCategories {
		stats.ByCategory[c] = 0
	}

	rows, err := s.pool.Query(ctx,
		`SELECT status, category, COUNT(*) FROM feedback GROUP BY status, category`)
	if err != nil {
		return nil, fmt.Errorf("feedback stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, category string
		var n int
		if err := rows.Scan(&status, &category, &n); err != nil {
			return nil, fmt.Errorf("scan feedback stats: %w", err)
		}
		stats.ByStatus[status] += n
		stats.ByCategory[category] += n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("feedback stats: %w", err)
	}
	return stats, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
