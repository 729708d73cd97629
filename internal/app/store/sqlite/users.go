package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/normalize"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userStore struct {
	db *sql.DB
}

const userColumns = "id, full_name, email, password_hash, created_at"

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var (
		u         models.User
		id        string
		createdAt int64
	)
	if err := row.Scan(&id, &u.FullName, &u.Email, &u.PasswordHash, &createdAt); err != nil {
		return models.User{}, notFound(err)
	}
	oid, err := parseID(id)
	if err != nil {
		return models.User{}, err
	}
	u.ID = oid
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

func (s *userStore) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)`,
		u.ID.Hex(), u.FullName, u.Email, u.PasswordHash, toMillis(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, store.ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *userStore) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id.Hex()))
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, normalize.Email(email)))
}

func (s *userStore) DisplayNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.Hex()
	}
	q := `SELECT id, full_name FROM users WHERE id IN (` + placeholders(len(ids)) + `)`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		oid, err := parseID(id)
		if err != nil {
			return nil, err
		}
		out[oid] = name
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
