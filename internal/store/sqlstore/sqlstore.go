// Package sqlstore implements store.Store on top of gorm for PostgreSQL and
// SQLite.
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/hanpama/usergraph/internal/store"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string
	DSN    string
	// Migrate creates or updates the tables on Open.
	Migrate bool
	// Seed inserts store.DefaultMemberTypes when missing.
	Seed bool
}

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to the database described by cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// A single connection keeps ":memory:" databases shared and
		// serializes writers.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlstore: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	s := &Store{db: db}
	if cfg.Migrate {
		if err := db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
			return nil, fmt.Errorf("sqlstore: migrate: %w", err)
		}
	}
	if cfg.Seed {
		if err := s.seed(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) seed(ctx context.Context) error {
	defaults := store.DefaultMemberTypes()
	rows := make([]memberTypeRow, len(defaults))
	for i, mt := range defaults {
		rows[i] = memberTypeRow{ID: mt.ID, Discount: mt.Discount, PostsLimitPerMonth: mt.PostsLimitPerMonth}
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("sqlstore: seed member types: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm errors onto the store sentinels.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, store.ErrConflict)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w", what, store.ErrInvalidReference)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// exists reports whether a row of model with the given id is present.
func exists(tx *gorm.DB, model any, id string) (bool, error) {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListMemberTypes(ctx context.Context) ([]*store.MemberType, error) {
	var rows []memberTypeRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, translate(err, "list member types")
	}
	return convert(rows, memberTypeRow.toStore), nil
}

func (s *Store) GetMemberType(ctx context.Context, id string) (*store.MemberType, error) {
	var row memberTypeRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate(err, "member type "+id)
	}
	return row.toStore(), nil
}

func (s *Store) FindMemberTypes(ctx context.Context, ids []string) ([]*store.MemberType, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []memberTypeRow
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, translate(err, "find member types")
	}
	return convert(rows, memberTypeRow.toStore), nil
}

func (s *Store) ListUsers(ctx context.Context, include store.UserInclude) ([]*store.User, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, translate(err, "list users")
	}
	users := convert(rows, userRow.toStore)
	if len(users) == 0 || (!include.SubscribedTo && !include.Followers) {
		return users, nil
	}

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	var subscribedTo, followers map[string][]string
	if include.SubscribedTo {
		edges, err := s.FindSubscriptionsBySubscribers(ctx, ids)
		if err != nil {
			return nil, err
		}
		subscribedTo = groupEdges(edges, true)
	}
	if include.Followers {
		edges, err := s.FindSubscriptionsByAuthors(ctx, ids)
		if err != nil {
			return nil, err
		}
		followers = groupEdges(edges, false)
	}
	for _, u := range users {
		if include.SubscribedTo {
			u.SubscribedTo = append([]string{}, subscribedTo[u.ID]...)
		}
		if include.Followers {
			u.Followers = append([]string{}, followers[u.ID]...)
		}
	}
	return users, nil
}

// groupEdges indexes edges by subscriber (bySubscriber) or by author.
func groupEdges(edges []store.SubscriptionEdge, bySubscriber bool) map[string][]string {
	out := make(map[string][]string)
	for _, e := range edges {
		if bySubscriber {
			out[e.SubscriberID] = append(out[e.SubscriberID], e.AuthorID)
		} else {
			out[e.AuthorID] = append(out[e.AuthorID], e.SubscriberID)
		}
	}
	return out
}

func (s *Store) FindUsers(ctx context.Context, ids []string) ([]*store.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []userRow
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, translate(err, "find users")
	}
	return convert(rows, userRow.toStore), nil
}

func (s *Store) CreateUser(ctx context.Context, in store.UserInput) (*store.User, error) {
	row := userRow{ID: uuid.NewString(), Name: in.Name, Balance: in.Balance}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, translate(err, "create user")
	}
	return row.toStore(), nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, patch store.UserPatch) (*store.User, error) {
	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Balance != nil {
		updates["balance"] = *patch.Balance
	}
	var row userRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			res := tx.Model(&userRow{}).Where("id = ?", id).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
		}
		return tx.Where("id = ?", id).First(&row).Error
	})
	if err != nil {
		return nil, translate(err, "user "+id)
	}
	return row.toStore(), nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, &userRow{}, id)
		if err != nil {
			return err
		}
		if !ok {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("user_id = ?", id).Delete(&profileRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&postRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("subscriber_id = ? OR author_id = ?", id, id).Delete(&subscriptionRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&userRow{}).Error
	})
	return translate(err, "delete user "+id)
}

func (s *Store) ListPosts(ctx context.Context) ([]*store.Post, error) {
	var rows []postRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, translate(err, "list posts")
	}
	return convert(rows, postRow.toStore), nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*store.Post, error) {
	var row postRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate(err, "post "+id)
	}
	return row.toStore(), nil
}

func (s *Store) FindPostsByAuthors(ctx context.Context, authorIDs []string) ([]*store.Post, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	var rows []postRow
	if err := s.db.WithContext(ctx).Where("author_id IN ?", authorIDs).Find(&rows).Error; err != nil {
		return nil, translate(err, "find posts")
	}
	return convert(rows, postRow.toStore), nil
}

func (s *Store) CreatePost(ctx context.Context, in store.PostInput) (*store.Post, error) {
	row := postRow{ID: uuid.NewString(), Title: in.Title, Content: in.Content, AuthorID: in.AuthorID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ok, err := exists(tx, &userRow{}, in.AuthorID); err != nil {
			return err
		} else if !ok {
			return gorm.ErrForeignKeyViolated
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, translate(err, "create post")
	}
	return row.toStore(), nil
}

func (s *Store) UpdatePost(ctx context.Context, id string, patch store.PostPatch) (*store.Post, error) {
	updates := map[string]any{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.AuthorID != nil {
		updates["author_id"] = *patch.AuthorID
	}
	var row postRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			return err
		}
		if patch.AuthorID != nil {
			if ok, err := exists(tx, &userRow{}, *patch.AuthorID); err != nil {
				return err
			} else if !ok {
				return gorm.ErrForeignKeyViolated
			}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&postRow{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&row).Error
	})
	if err != nil {
		return nil, translate(err, "post "+id)
	}
	return row.toStore(), nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&postRow{})
	if res.Error != nil {
		return translate(res.Error, "delete post "+id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete post %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]*store.Profile, error) {
	var rows []profileRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, translate(err, "list profiles")
	}
	return convert(rows, profileRow.toStore), nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*store.Profile, error) {
	var row profileRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate(err, "profile "+id)
	}
	return row.toStore(), nil
}

func (s *Store) FindProfilesByUsers(ctx context.Context, userIDs []string) ([]*store.Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var rows []profileRow
	if err := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, translate(err, "find profiles")
	}
	return convert(rows, profileRow.toStore), nil
}

func (s *Store) FindProfilesByMemberType(ctx context.Context, memberTypeID string) ([]*store.Profile, error) {
	var rows []profileRow
	if err := s.db.WithContext(ctx).Where("member_type_id = ?", memberTypeID).Find(&rows).Error; err != nil {
		return nil, translate(err, "find profiles")
	}
	return convert(rows, profileRow.toStore), nil
}

func (s *Store) CreateProfile(ctx context.Context, in store.ProfileInput) (*store.Profile, error) {
	row := profileRow{
		ID:           uuid.NewString(),
		IsMale:       in.IsMale,
		YearOfBirth:  in.YearOfBirth,
		MemberTypeID: in.MemberTypeID,
		UserID:       in.UserID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ok, err := exists(tx, &userRow{}, in.UserID); err != nil {
			return err
		} else if !ok {
			return gorm.ErrForeignKeyViolated
		}
		if ok, err := exists(tx, &memberTypeRow{}, in.MemberTypeID); err != nil {
			return err
		} else if !ok {
			return gorm.ErrForeignKeyViolated
		}
		var n int64
		if err := tx.Model(&profileRow{}).Where("user_id = ?", in.UserID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return gorm.ErrDuplicatedKey
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, translate(err, "create profile for user "+in.UserID)
	}
	return row.toStore(), nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, patch store.ProfilePatch) (*store.Profile, error) {
	updates := map[string]any{}
	if patch.IsMale != nil {
		updates["is_male"] = *patch.IsMale
	}
	if patch.YearOfBirth != nil {
		updates["year_of_birth"] = *patch.YearOfBirth
	}
	if patch.MemberTypeID != nil {
		updates["member_type_id"] = *patch.MemberTypeID
	}
	var row profileRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			return err
		}
		if patch.MemberTypeID != nil {
			if ok, err := exists(tx, &memberTypeRow{}, *patch.MemberTypeID); err != nil {
				return err
			} else if !ok {
				return gorm.ErrForeignKeyViolated
			}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&profileRow{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&row).Error
	})
	if err != nil {
		return nil, translate(err, "profile "+id)
	}
	return row.toStore(), nil
}

func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&profileRow{})
	if res.Error != nil {
		return translate(res.Error, "delete profile "+id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete profile %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) FindSubscriptionsBySubscribers(ctx context.Context, subscriberIDs []string) ([]store.SubscriptionEdge, error) {
	return s.findEdges(ctx, "subscriber_id IN ?", subscriberIDs)
}

func (s *Store) FindSubscriptionsByAuthors(ctx context.Context, authorIDs []string) ([]store.SubscriptionEdge, error) {
	return s.findEdges(ctx, "author_id IN ?", authorIDs)
}

func (s *Store) findEdges(ctx context.Context, where string, ids []string) ([]store.SubscriptionEdge, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []subscriptionRow
	if err := s.db.WithContext(ctx).Where(where, ids).Find(&rows).Error; err != nil {
		return nil, translate(err, "find subscriptions")
	}
	return convert(rows, subscriptionRow.toStore), nil
}

func (s *Store) Subscribe(ctx context.Context, edge store.SubscriptionEdge) error {
	row := subscriptionRow{SubscriberID: edge.SubscriberID, AuthorID: edge.AuthorID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range []string{edge.SubscriberID, edge.AuthorID} {
			if ok, err := exists(tx, &userRow{}, id); err != nil {
				return err
			} else if !ok {
				return gorm.ErrForeignKeyViolated
			}
		}
		var n int64
		if err := tx.Model(&subscriptionRow{}).
			Where("subscriber_id = ? AND author_id = ?", edge.SubscriberID, edge.AuthorID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return gorm.ErrDuplicatedKey
		}
		return tx.Create(&row).Error
	})
	return translate(err, fmt.Sprintf("subscribe %s -> %s", edge.SubscriberID, edge.AuthorID))
}

func (s *Store) Unsubscribe(ctx context.Context, edge store.SubscriptionEdge) (int, error) {
	res := s.db.WithContext(ctx).
		Where("subscriber_id = ? AND author_id = ?", edge.SubscriberID, edge.AuthorID).
		Delete(&subscriptionRow{})
	if res.Error != nil {
		return 0, translate(res.Error, "unsubscribe")
	}
	return int(res.RowsAffected), nil
}
