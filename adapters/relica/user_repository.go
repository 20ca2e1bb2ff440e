package relica

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coregx/relica"

	relay "github.com/coregx/brokerrelay"
	"github.com/coregx/brokerrelay/model"
)

// UserRepository implements relay.UserRepository using Relica.
// The relay never writes users; the table belongs to the host application.
type UserRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewUserRepository creates a new UserRepository with default table prefix.
func NewUserRepository(sqlDB *sql.DB, driverName string) *UserRepository {
	return &UserRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: DefaultTablePrefix}
}

// NewUserRepositoryWithPrefix creates a new UserRepository with custom table prefix.
func NewUserRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *UserRepository {
	return &UserRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *UserRepository) tableName() string {
	return r.tablePrefix + "user"
}

// Load retrieves a user by ID.
func (r *UserRepository) Load(ctx context.Context, id int64) (model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("id = ?", id).One(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return user, relay.ErrNoData
	}
	if err != nil {
		return user, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to load user", err)
	}
	return user, nil
}

// FindActive retrieves all active users ordered by ID.
func (r *UserRepository) FindActive(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).
		Where("is_active = ?", true).
		OrderBy("id ASC").
		All(&users)
	if err != nil {
		return nil, relay.NewErrorWithCause(relay.ErrCodeDatabase, "failed to find active users", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}
