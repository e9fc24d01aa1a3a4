package relational

import (
	"time"

	"github.com/mcoot/guildbot/internal/model"
)

// Records are the gorm-mapped rows. They are kept apart from the model types
// so that schema tags never leak into the domain.

type characterRecord struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	Name              string `gorm:"size:64;not null;uniqueIndex:idx_characters_name_server,priority:1;index:idx_characters_guild_name,priority:2"`
	Server            string `gorm:"size:64;not null;uniqueIndex:idx_characters_name_server,priority:2"`
	Region            string `gorm:"size:8"`
	Class             string `gorm:"size:32"`
	Spec              string `gorm:"size:32"`
	SpecRole          string `gorm:"size:16"`
	Race              string `gorm:"size:32"`
	Faction           string `gorm:"size:16"`
	Gender            string `gorm:"size:16"`
	AchievementPoints int
	ProfileURL        string `gorm:"size:255"`
	ThumbnailURL      string `gorm:"size:255"`
	IsGuildMember     bool   `gorm:"not null;index:idx_characters_guild_name,priority:1"`
	LastRefreshedAt   time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (characterRecord) TableName() string { return "characters" }

func characterToRecord(c *model.Character) *characterRecord {
	return &characterRecord{
		ID:                int64(c.ID),
		Name:              c.Name,
		Server:            c.Server,
		Region:            c.Region,
		Class:             c.Class,
		Spec:              c.Spec,
		SpecRole:          c.SpecRole,
		Race:              c.Race,
		Faction:           c.Faction,
		Gender:            c.Gender,
		AchievementPoints: c.AchievementPoints,
		ProfileURL:        c.ProfileURL,
		ThumbnailURL:      c.ThumbnailURL,
		IsGuildMember:     c.IsGuildMember,
		LastRefreshedAt:   c.LastRefreshedAt,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func (r *characterRecord) toModel() *model.Character {
	return &model.Character{
		ID:                model.CharacterID(r.ID),
		Name:              r.Name,
		Server:            r.Server,
		Region:            r.Region,
		Class:             r.Class,
		Spec:              r.Spec,
		SpecRole:          r.SpecRole,
		Race:              r.Race,
		Faction:           r.Faction,
		Gender:            r.Gender,
		AchievementPoints: r.AchievementPoints,
		ProfileURL:        r.ProfileURL,
		ThumbnailURL:      r.ThumbnailURL,
		IsGuildMember:     r.IsGuildMember,
		LastRefreshedAt:   r.LastRefreshedAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

type platformUserRecord struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	PlatformID    string `gorm:"size:64;not null;uniqueIndex"`
	Username      string `gorm:"size:64"`
	DisplayName   string `gorm:"size:128"`
	IsPlaceholder bool   `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (platformUserRecord) TableName() string { return "platform_users" }

func (r *platformUserRecord) toModel() *model.PlatformUser {
	return &model.PlatformUser{
		ID:            model.UserID(r.ID),
		PlatformID:    r.PlatformID,
		Username:      r.Username,
		DisplayName:   r.DisplayName,
		IsPlaceholder: r.IsPlaceholder,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type ownershipRecord struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	UserID      int64 `gorm:"not null;uniqueIndex:idx_ownerships_user_character,priority:1"`
	CharacterID int64 `gorm:"not null;uniqueIndex:idx_ownerships_user_character,priority:2"`
	Verified    bool  `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ownershipRecord) TableName() string { return "ownerships" }

func (r *ownershipRecord) toModel() *model.Ownership {
	return &model.Ownership{
		UserID:      model.UserID(r.UserID),
		CharacterID: model.CharacterID(r.CharacterID),
		Verified:    r.Verified,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type eventTemplateRecord struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	Name            string `gorm:"size:64;not null;uniqueIndex"`
	Title           string `gorm:"size:128"`
	Expansion       string `gorm:"size:64"`
	Season          int
	Difficulty      string `gorm:"size:32"`
	ContentName     string `gorm:"size:128"`
	DayOfWeek       int    // ISO weekday, Monday is 1
	StartTime       string `gorm:"size:5"`
	DurationMinutes int
	MaxParticipants int
	Active          bool `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (eventTemplateRecord) TableName() string { return "event_templates" }

func templateToRecord(t *model.EventTemplate) *eventTemplateRecord {
	return &eventTemplateRecord{
		ID:              int64(t.ID),
		Name:            t.Name,
		Title:           t.Title,
		Expansion:       t.Expansion,
		Season:          t.Season,
		Difficulty:      t.Difficulty,
		ContentName:     t.ContentName,
		DayOfWeek:       isoWeekday(t.DayOfWeek),
		StartTime:       t.StartTime,
		DurationMinutes: t.DurationMinutes,
		MaxParticipants: t.MaxParticipants,
		Active:          t.Active,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func (r *eventTemplateRecord) toModel() *model.EventTemplate {
	return &model.EventTemplate{
		ID:              model.TemplateID(r.ID),
		Name:            r.Name,
		Title:           r.Title,
		Expansion:       r.Expansion,
		Season:          r.Season,
		Difficulty:      r.Difficulty,
		ContentName:     r.ContentName,
		DayOfWeek:       time.Weekday(r.DayOfWeek % 7),
		StartTime:       r.StartTime,
		DurationMinutes: r.DurationMinutes,
		MaxParticipants: r.MaxParticipants,
		Active:          r.Active,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

type eventInstanceRecord struct {
	ID                    int64                `gorm:"primaryKey;autoIncrement"`
	TemplateID            int64                `gorm:"not null;index"`
	Template              *eventTemplateRecord `gorm:"foreignKey:TemplateID"`
	StartsAt              time.Time            `gorm:"not null;index"`
	Status                string               `gorm:"size:16;not null;index"`
	AnnouncementChannelID string               `gorm:"size:32"`
	AnnouncementMessageID string               `gorm:"size:32"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (eventInstanceRecord) TableName() string { return "event_instances" }

func (r *eventInstanceRecord) toModel(loc *time.Location) *model.EventInstance {
	e := &model.EventInstance{
		ID:         model.EventID(r.ID),
		TemplateID: model.TemplateID(r.TemplateID),
		StartsAt:   r.StartsAt.In(loc),
		Status:     model.EventStatus(r.Status),
		Announcement: model.AnnouncementRef{
			ChannelID: r.AnnouncementChannelID,
			MessageID: r.AnnouncementMessageID,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Template != nil {
		e.Template = r.Template.toModel()
	}
	return e
}

type participationRecord struct {
	ID                    int64   `gorm:"primaryKey;autoIncrement"`
	EventID               int64   `gorm:"not null;uniqueIndex:idx_participations_event_user,priority:1;index:idx_participations_event_character,priority:1"`
	UserID                int64   `gorm:"not null;uniqueIndex:idx_participations_event_user,priority:2"`
	CharacterID           int64   `gorm:"not null;index:idx_participations_event_character,priority:2"`
	Status                string  `gorm:"size:16;not null"`
	SpecRole              string  `gorm:"size:16"`
	DetailedRole          string  `gorm:"size:16"`
	CharacterName         string  `gorm:"size:64"`
	CharacterServer       string  `gorm:"size:64"`
	CharacterClass        string  `gorm:"size:32"`
	CharacterSpec         string  `gorm:"size:32"`
	Memo                  *string `gorm:"size:500"`
	AnnouncementChannelID string  `gorm:"size:32"`
	AnnouncementMessageID string  `gorm:"size:32"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (participationRecord) TableName() string { return "participations" }

func participationToRecord(p *model.Participation) *participationRecord {
	return &participationRecord{
		ID:                    int64(p.ID),
		EventID:               int64(p.EventID),
		UserID:                int64(p.UserID),
		CharacterID:           int64(p.CharacterID),
		Status:                string(p.Status),
		SpecRole:              p.SpecRole,
		DetailedRole:          string(p.DetailedRole),
		CharacterName:         p.Character.Name,
		CharacterServer:       p.Character.Server,
		CharacterClass:        p.Character.Class,
		CharacterSpec:         p.Character.Spec,
		Memo:                  nullable(p.Memo),
		AnnouncementChannelID: p.Announcement.ChannelID,
		AnnouncementMessageID: p.Announcement.MessageID,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func (r *participationRecord) toModel() *model.Participation {
	return &model.Participation{
		ID:           model.ParticipationID(r.ID),
		EventID:      model.EventID(r.EventID),
		UserID:       model.UserID(r.UserID),
		CharacterID:  model.CharacterID(r.CharacterID),
		Status:       model.Status(r.Status),
		SpecRole:     r.SpecRole,
		DetailedRole: model.DetailedRole(r.DetailedRole),
		Character: model.CharacterSnapshot{
			Name:   r.CharacterName,
			Server: r.CharacterServer,
			Class:  r.CharacterClass,
			Spec:   r.CharacterSpec,
		},
		Memo: deref(r.Memo),
		Announcement: model.AnnouncementRef{
			ChannelID: r.AnnouncementChannelID,
			MessageID: r.AnnouncementMessageID,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type participationLogRecord struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement"`
	EventID            int64     `gorm:"not null;index:idx_participation_logs_event_created,priority:1"`
	CharacterID        int64     `gorm:"not null"`
	UserID             int64     `gorm:"not null"`
	Action             string    `gorm:"size:64;not null"`
	OldStatus          *string   `gorm:"size:16"`
	NewStatus          *string   `gorm:"size:16"`
	CharacterName      string    `gorm:"size:64"`
	CharacterServer    string    `gorm:"size:64"`
	CharacterClass     string    `gorm:"size:32"`
	CharacterSpec      string    `gorm:"size:32"`
	OldCharacterName   *string   `gorm:"size:64"`
	OldCharacterServer *string   `gorm:"size:64"`
	OldCharacterClass  *string   `gorm:"size:32"`
	OldCharacterSpec   *string   `gorm:"size:32"`
	DetailedRole       string    `gorm:"size:16"`
	OldDetailedRole    *string   `gorm:"size:16"`
	ActorDisplayName   string    `gorm:"size:128"`
	Memo               *string   `gorm:"size:500"`
	CreatedAt          time.Time `gorm:"index:idx_participation_logs_event_created,priority:2"`
}

func (participationLogRecord) TableName() string { return "participation_logs" }

func logToRecord(e *model.ParticipationLogEntry) *participationLogRecord {
	return &participationLogRecord{
		EventID:            int64(e.EventID),
		CharacterID:        int64(e.CharacterID),
		UserID:             int64(e.UserID),
		Action:             string(e.Action),
		OldStatus:          nullable(string(e.OldStatus)),
		NewStatus:          nullable(string(e.NewStatus)),
		CharacterName:      e.Character.Name,
		CharacterServer:    e.Character.Server,
		CharacterClass:     e.Character.Class,
		CharacterSpec:      e.Character.Spec,
		OldCharacterName:   nullable(e.OldCharacter.Name),
		OldCharacterServer: nullable(e.OldCharacter.Server),
		OldCharacterClass:  nullable(e.OldCharacter.Class),
		OldCharacterSpec:   nullable(e.OldCharacter.Spec),
		DetailedRole:       string(e.DetailedRole),
		OldDetailedRole:    nullable(string(e.OldDetailedRole)),
		ActorDisplayName:   e.ActorDisplayName,
		Memo:               nullable(e.Memo),
		CreatedAt:          e.CreatedAt,
	}
}

func (r *participationLogRecord) toModel() *model.ParticipationLogEntry {
	return &model.ParticipationLogEntry{
		ID:          model.LogEntryID(r.ID),
		EventID:     model.EventID(r.EventID),
		CharacterID: model.CharacterID(r.CharacterID),
		UserID:      model.UserID(r.UserID),
		Action:      model.Action(r.Action),
		OldStatus:   model.Status(deref(r.OldStatus)),
		NewStatus:   model.Status(deref(r.NewStatus)),
		Character: model.CharacterSnapshot{
			Name:   r.CharacterName,
			Server: r.CharacterServer,
			Class:  r.CharacterClass,
			Spec:   r.CharacterSpec,
		},
		OldCharacter: model.CharacterSnapshot{
			Name:   deref(r.OldCharacterName),
			Server: deref(r.OldCharacterServer),
			Class:  deref(r.OldCharacterClass),
			Spec:   deref(r.OldCharacterSpec),
		},
		DetailedRole:     model.DetailedRole(r.DetailedRole),
		OldDetailedRole:  model.DetailedRole(deref(r.OldDetailedRole)),
		ActorDisplayName: r.ActorDisplayName,
		Memo:             deref(r.Memo),
		CreatedAt:        r.CreatedAt,
	}
}

// nullable maps empty strings to SQL NULL
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
