// Package relational implements storage.Storage on gorm, against postgres,
// mysql or sqlite.
package relational

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage"
)

// Storage is a gorm-backed implementation of the storage interface
type Storage struct {
	db  *gorm.DB
	loc *time.Location
}

// New opens a database connection and verifies it
func New(cfg Config, logger *slog.Logger) (*Storage, error) {
	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(logger, cfg.SlowThreshold),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == DriverSQLite {
		// a single connection keeps in-memory databases alive and
		// serializes writers
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Storage{db: db, loc: loc}, nil
}

// NewWithDB wraps an existing gorm handle. Event times are returned in UTC.
func NewWithDB(db *gorm.DB) *Storage {
	return &Storage{db: db, loc: time.UTC}
}

func openDialector(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case DriverMySQL:
		return mysql.Open(cfg.DSN), nil
	case DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Migrate creates or updates the schema. It is safe to run repeatedly.
func (s *Storage) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	err := db.AutoMigrate(
		&characterRecord{},
		&platformUserRecord{},
		&ownershipRecord{},
		&eventTemplateRecord{},
		&eventInstanceRecord{},
		&participationRecord{},
		&participationLogRecord{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := migrateVerifiedGuard(db); err != nil {
		return fmt.Errorf("verified ownership index: %w", err)
	}
	return nil
}

// migrateVerifiedGuard enforces at most one verified ownership per user.
// MySQL has no partial indexes, so a generated column carries the user id
// only for verified rows.
func migrateVerifiedGuard(db *gorm.DB) error {
	const index = "idx_ownerships_one_verified"

	if db.Dialector.Name() != DriverMySQL {
		return db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS " + index + " ON ownerships (user_id) WHERE verified").Error
	}

	m := db.Migrator()
	if !m.HasColumn(&ownershipRecord{}, "verified_user_id") {
		err := db.Exec("ALTER TABLE ownerships ADD COLUMN verified_user_id BIGINT GENERATED ALWAYS AS (IF(verified, user_id, NULL)) STORED").Error
		if err != nil {
			return err
		}
	}
	if !m.HasIndex(&ownershipRecord{}, index) {
		return db.Exec("CREATE UNIQUE INDEX " + index + " ON ownerships (verified_user_id)").Error
	}
	return nil
}

// Transactions

func (s *Storage) WithTx(ctx context.Context, fn func(tx storage.Storage) error) error {
	return s.transaction(ctx, func(tx *Storage) error {
		return fn(tx)
	})
}

// transaction nests through savepoints when s is already transactional
func (s *Storage) transaction(ctx context.Context, fn func(tx *Storage) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Storage{db: tx, loc: s.loc})
	})
}

// Character operations

func (s *Storage) UpsertCharacter(ctx context.Context, c *model.Character) (*model.Character, error) {
	rec := characterToRecord(c)
	rec.ID = 0

	updates := clause.AssignmentColumns([]string{
		"region", "class", "spec", "spec_role", "race", "faction", "gender",
		"achievement_points", "profile_url", "thumbnail_url", "last_refreshed_at", "updated_at",
	})
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "is_guild_member"},
		Value:  s.orExisting("characters", "is_guild_member"),
	})

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "server"}},
		DoUpdates: updates,
	}).Create(rec).Error
	if err != nil {
		return nil, fail("upsert character", err, nil)
	}
	return s.GetCharacterByNameServer(ctx, c.Name, c.Server)
}

// orExisting builds "existing OR incoming" for an upsert assignment
func (s *Storage) orExisting(table, column string) clause.Expr {
	if s.db.Dialector.Name() == DriverMySQL {
		return gorm.Expr(fmt.Sprintf("%[1]s OR VALUES(%[1]s)", column))
	}
	return gorm.Expr(fmt.Sprintf("%[1]s.%[2]s OR excluded.%[2]s", table, column))
}

func (s *Storage) GetCharacter(ctx context.Context, id model.CharacterID) (*model.Character, error) {
	var rec characterRecord
	if err := s.db.WithContext(ctx).First(&rec, int64(id)).Error; err != nil {
		return nil, fail("get character", err, model.ErrCharacterNotFound)
	}
	return rec.toModel(), nil
}

func (s *Storage) GetCharacterByNameServer(ctx context.Context, name, server string) (*model.Character, error) {
	var rec characterRecord
	err := s.db.WithContext(ctx).Where("name = ? AND server = ?", name, server).First(&rec).Error
	if err != nil {
		return nil, fail("get character", err, model.ErrCharacterNotFound)
	}
	return rec.toModel(), nil
}

func (s *Storage) FindGuildCharactersByName(ctx context.Context, name string) ([]*model.Character, error) {
	var recs []characterRecord
	err := s.db.WithContext(ctx).
		Where("is_guild_member = ? AND name = ?", true, name).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, fail("find guild characters", err, nil)
	}
	return characters(recs), nil
}

func (s *Storage) ListStaleGuildCharacters(ctx context.Context, refreshedBefore time.Time, limit int) ([]*model.Character, error) {
	q := s.db.WithContext(ctx).
		Where("is_guild_member = ? AND last_refreshed_at < ?", true, refreshedBefore.UTC()).
		Order("last_refreshed_at, id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []characterRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fail("list stale characters", err, nil)
	}
	return characters(recs), nil
}

func (s *Storage) ListGuildCharacters(ctx context.Context) ([]*model.Character, error) {
	var recs []characterRecord
	err := s.db.WithContext(ctx).
		Where("is_guild_member = ?", true).
		Order("name, server").
		Find(&recs).Error
	if err != nil {
		return nil, fail("list guild characters", err, nil)
	}
	return characters(recs), nil
}

func characters(recs []characterRecord) []*model.Character {
	out := make([]*model.Character, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out
}

// Platform user operations

func (s *Storage) UpsertPlatformUser(ctx context.Context, u *model.PlatformUser) (*model.PlatformUser, error) {
	rec := &platformUserRecord{
		PlatformID:    u.PlatformID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		IsPlaceholder: u.IsPlaceholder,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "display_name", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return nil, fail("upsert platform user", err, nil)
	}
	return s.GetPlatformUserByPlatformID(ctx, u.PlatformID)
}

func (s *Storage) GetPlatformUser(ctx context.Context, id model.UserID) (*model.PlatformUser, error) {
	var rec platformUserRecord
	if err := s.db.WithContext(ctx).First(&rec, int64(id)).Error; err != nil {
		return nil, fail("get platform user", err, model.ErrUserNotFound)
	}
	return rec.toModel(), nil
}

func (s *Storage) GetPlatformUserByPlatformID(ctx context.Context, platformID string) (*model.PlatformUser, error) {
	var rec platformUserRecord
	if err := s.db.WithContext(ctx).Where("platform_id = ?", platformID).First(&rec).Error; err != nil {
		return nil, fail("get platform user", err, model.ErrUserNotFound)
	}
	return rec.toModel(), nil
}

// Ownership operations

func (s *Storage) BindVerifiedOwnership(ctx context.Context, userID model.UserID, characterID model.CharacterID, now time.Time) error {
	err := s.transaction(ctx, func(tx *Storage) error {
		err := tx.db.Model(&ownershipRecord{}).
			Where("user_id = ? AND verified = ?", int64(userID), true).
			Updates(map[string]any{"verified": false, "updated_at": now}).Error
		if err != nil {
			return err
		}

		return tx.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "character_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"verified", "updated_at"}),
		}).Create(&ownershipRecord{
			UserID:      int64(userID),
			CharacterID: int64(characterID),
			Verified:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}).Error
	})
	if err != nil {
		return fail("bind ownership", err, nil)
	}
	return nil
}

func (s *Storage) GetVerifiedOwnership(ctx context.Context, userID model.UserID) (*model.Ownership, error) {
	var rec ownershipRecord
	err := s.db.WithContext(ctx).Where("user_id = ? AND verified = ?", int64(userID), true).First(&rec).Error
	if err != nil {
		return nil, fail("get verified ownership", err, model.ErrNoVerifiedCharacter)
	}
	return rec.toModel(), nil
}

func (s *Storage) ListOwnerships(ctx context.Context, userID model.UserID) ([]*model.Ownership, error) {
	var recs []ownershipRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", int64(userID)).Order("character_id").Find(&recs).Error
	if err != nil {
		return nil, fail("list ownerships", err, nil)
	}
	out := make([]*model.Ownership, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out, nil
}

// Event template operations

func (s *Storage) SaveEventTemplate(ctx context.Context, t *model.EventTemplate) (*model.EventTemplate, error) {
	rec := templateToRecord(t)
	rec.ID = 0
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "expansion", "season", "difficulty", "content_name", "day_of_week",
			"start_time", "duration_minutes", "max_participants", "active", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		return nil, fail("save event template", err, nil)
	}
	return s.GetEventTemplateByName(ctx, t.Name)
}

func (s *Storage) GetEventTemplate(ctx context.Context, id model.TemplateID) (*model.EventTemplate, error) {
	var rec eventTemplateRecord
	if err := s.db.WithContext(ctx).First(&rec, int64(id)).Error; err != nil {
		return nil, fail("get event template", err, model.ErrTemplateNotFound)
	}
	return rec.toModel(), nil
}

func (s *Storage) GetEventTemplateByName(ctx context.Context, name string) (*model.EventTemplate, error) {
	var rec eventTemplateRecord
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&rec).Error; err != nil {
		return nil, fail("get event template", err, model.ErrTemplateNotFound)
	}
	return rec.toModel(), nil
}

func (s *Storage) ListEventTemplates(ctx context.Context) ([]*model.EventTemplate, error) {
	var recs []eventTemplateRecord
	if err := s.db.WithContext(ctx).Order("day_of_week, start_time, id").Find(&recs).Error; err != nil {
		return nil, fail("list event templates", err, nil)
	}
	out := make([]*model.EventTemplate, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out, nil
}

// Event instance operations

func (s *Storage) CreateEventInstance(ctx context.Context, e *model.EventInstance) (*model.EventInstance, error) {
	if _, err := s.GetEventTemplate(ctx, e.TemplateID); err != nil {
		return nil, err
	}
	rec := &eventInstanceRecord{
		TemplateID:            int64(e.TemplateID),
		StartsAt:              e.StartsAt.UTC(),
		Status:                string(e.Status),
		AnnouncementChannelID: e.Announcement.ChannelID,
		AnnouncementMessageID: e.Announcement.MessageID,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fail("create event instance", err, nil)
	}
	return s.GetEventInstance(ctx, model.EventID(rec.ID))
}

func (s *Storage) GetEventInstance(ctx context.Context, id model.EventID) (*model.EventInstance, error) {
	var rec eventInstanceRecord
	if err := s.db.WithContext(ctx).Preload("Template").First(&rec, int64(id)).Error; err != nil {
		return nil, fail("get event instance", err, model.ErrEventNotFound)
	}
	return rec.toModel(s.loc), nil
}

func (s *Storage) ListEventInstances(ctx context.Context, status model.EventStatus) ([]*model.EventInstance, error) {
	q := s.db.WithContext(ctx).Preload("Template").Order("starts_at, id")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	var recs []eventInstanceRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fail("list event instances", err, nil)
	}
	out := make([]*model.EventInstance, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel(s.loc))
	}
	return out, nil
}

func (s *Storage) UpdateEventInstanceStatus(ctx context.Context, id model.EventID, status model.EventStatus, now time.Time) error {
	return s.updateEventInstance(ctx, id, map[string]any{"status": string(status), "updated_at": now})
}

func (s *Storage) SetEventAnnouncement(ctx context.Context, id model.EventID, ref model.AnnouncementRef, now time.Time) error {
	return s.updateEventInstance(ctx, id, map[string]any{
		"announcement_channel_id": ref.ChannelID,
		"announcement_message_id": ref.MessageID,
		"updated_at":              now,
	})
}

func (s *Storage) updateEventInstance(ctx context.Context, id model.EventID, values map[string]any) error {
	db := s.db.WithContext(ctx)
	var rec eventInstanceRecord
	if err := db.Select("id").First(&rec, int64(id)).Error; err != nil {
		return fail("update event instance", err, model.ErrEventNotFound)
	}
	if err := db.Model(&eventInstanceRecord{ID: rec.ID}).Updates(values).Error; err != nil {
		return fail("update event instance", err, nil)
	}
	return nil
}

// Participation operations

func (s *Storage) UpsertParticipation(ctx context.Context, p *model.Participation) (*model.Participation, *model.Participation, error) {
	var previous, saved *model.Participation
	err := s.transaction(ctx, func(tx *Storage) error {
		prev, err := tx.GetParticipation(ctx, p.EventID, p.UserID)
		switch {
		case err == nil:
			previous = prev
		case !errors.Is(err, model.ErrParticipationNotFound):
			return err
		}

		rec := participationToRecord(p)
		rec.ID = 0
		err = tx.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"character_id", "status", "spec_role", "detailed_role",
				"character_name", "character_server", "character_class", "character_spec",
				"memo", "announcement_channel_id", "announcement_message_id", "updated_at",
			}),
		}).Create(rec).Error
		if err != nil {
			return fail("upsert participation", err, nil)
		}

		saved, err = tx.GetParticipation(ctx, p.EventID, p.UserID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return previous, saved, nil
}

func (s *Storage) GetParticipation(ctx context.Context, eventID model.EventID, userID model.UserID) (*model.Participation, error) {
	var rec participationRecord
	err := s.db.WithContext(ctx).Where("event_id = ? AND user_id = ?", int64(eventID), int64(userID)).First(&rec).Error
	if err != nil {
		return nil, fail("get participation", err, model.ErrParticipationNotFound)
	}
	return rec.toModel(), nil
}

func (s *Storage) ListParticipations(ctx context.Context, eventID model.EventID) ([]*model.Participation, error) {
	return s.listParticipations(s.db.WithContext(ctx).Where("event_id = ?", int64(eventID)))
}

func (s *Storage) ListParticipationsByCharacter(ctx context.Context, eventID model.EventID, characterID model.CharacterID) ([]*model.Participation, error) {
	return s.listParticipations(s.db.WithContext(ctx).
		Where("event_id = ? AND character_id = ?", int64(eventID), int64(characterID)))
}

func (s *Storage) listParticipations(q *gorm.DB) ([]*model.Participation, error) {
	var recs []participationRecord
	if err := q.Order("id").Find(&recs).Error; err != nil {
		return nil, fail("list participations", err, nil)
	}
	out := make([]*model.Participation, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out, nil
}

// placeholderUsers is the subquery of every placeholder user id
func (s *Storage) placeholderUsers(db *gorm.DB) *gorm.DB {
	return db.Model(&platformUserRecord{}).Select("id").Where("is_placeholder = ?", true)
}

func (s *Storage) FindPlaceholderParticipation(ctx context.Context, eventID model.EventID, characterID model.CharacterID) (*model.Participation, error) {
	db := s.db.WithContext(ctx)
	var rec participationRecord
	err := db.
		Where("event_id = ? AND character_id = ?", int64(eventID), int64(characterID)).
		Where("user_id IN (?)", s.placeholderUsers(db)).
		Order("id").
		First(&rec).Error
	if err != nil {
		return nil, fail("find placeholder participation", err, model.ErrParticipationNotFound)
	}
	return rec.toModel(), nil
}

// ClaimPlaceholderParticipation is a single conditional UPDATE, so two
// concurrent claims cannot both succeed.
func (s *Storage) ClaimPlaceholderParticipation(ctx context.Context, claim storage.PlaceholderClaim) (bool, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&participationRecord{}).
		Where("id = ? AND user_id = ?", int64(claim.ParticipationID), int64(claim.PlaceholderUserID)).
		Where("user_id IN (?)", s.placeholderUsers(db)).
		Updates(map[string]any{
			"user_id":    int64(claim.RealUserID),
			"status":     string(claim.Status),
			"memo":       memoValue(claim.Memo),
			"updated_at": claim.Now,
		})
	if res.Error != nil {
		return false, fail("claim placeholder participation", res.Error, nil)
	}
	return res.RowsAffected == 1, nil
}

func (s *Storage) UpdateParticipationStatus(ctx context.Context, id model.ParticipationID, status model.Status, memo string, now time.Time) error {
	return s.updateParticipation(ctx, id, map[string]any{
		"status":     string(status),
		"memo":       memoValue(memo),
		"updated_at": now,
	})
}

func (s *Storage) UpdateParticipationMemo(ctx context.Context, id model.ParticipationID, memo string, now time.Time) error {
	return s.updateParticipation(ctx, id, map[string]any{
		"memo":       memoValue(memo),
		"updated_at": now,
	})
}

func (s *Storage) updateParticipation(ctx context.Context, id model.ParticipationID, values map[string]any) error {
	db := s.db.WithContext(ctx)
	var rec participationRecord
	if err := db.Select("id").First(&rec, int64(id)).Error; err != nil {
		return fail("update participation", err, model.ErrParticipationNotFound)
	}
	if err := db.Model(&participationRecord{ID: rec.ID}).Updates(values).Error; err != nil {
		return fail("update participation", err, nil)
	}
	return nil
}

func (s *Storage) DeleteParticipation(ctx context.Context, id model.ParticipationID) error {
	if err := s.db.WithContext(ctx).Delete(&participationRecord{}, int64(id)).Error; err != nil {
		return fail("delete participation", err, nil)
	}
	return nil
}

// memoValue stores an empty memo as NULL
func memoValue(memo string) any {
	if memo == "" {
		return gorm.Expr("NULL")
	}
	return memo
}

// Participation log operations

func (s *Storage) AppendParticipationLog(ctx context.Context, e *model.ParticipationLogEntry) (*model.ParticipationLogEntry, error) {
	rec := logToRecord(e)
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fail("append participation log", err, nil)
	}
	return rec.toModel(), nil
}

func (s *Storage) RecentParticipationLogs(ctx context.Context, eventID model.EventID, limit int) ([]*model.ParticipationLogEntry, error) {
	q := s.db.WithContext(ctx).Where("event_id = ?", int64(eventID)).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []participationLogRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fail("recent participation logs", err, nil)
	}
	out := make([]*model.ParticipationLogEntry, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out, nil
}

// Errors

// fail maps gorm errors onto the storage contract. notFound, when set,
// replaces gorm.ErrRecordNotFound. Anything unrecognized is treated as a
// transient backend failure.
func fail(op string, err error, notFound error) error {
	switch {
	case notFound != nil && errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, model.ErrTransient), errors.Is(err, storage.ErrConflict):
		return err
	case isDuplicate(err):
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	default:
		return model.Transient(op, err)
	}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
