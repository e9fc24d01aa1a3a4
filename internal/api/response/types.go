package response

import (
	"time"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/services/directory"
	"github.com/mcoot/guildbot/internal/services/roster"
	"github.com/mcoot/guildbot/internal/services/stats"
)

// Event represents an event instance in API responses
type Event struct {
	ID           int64     `json:"id"`
	Template     string    `json:"template"`
	Title        string    `json:"title"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	Status       string    `json:"status"`
	Announcement *string   `json:"announcement_message_id"`
}

// EventFromModel converts a model.EventInstance
func EventFromModel(e *model.EventInstance) Event {
	out := Event{
		ID:       int64(e.ID),
		StartsAt: e.StartsAt,
		EndsAt:   e.EndsAt(),
		Status:   string(e.Status),
	}
	if e.Template != nil {
		out.Template = e.Template.Name
		out.Title = e.Template.Title
	}
	if !e.Announcement.IsZero() {
		id := e.Announcement.MessageID
		out.Announcement = &id
	}
	return out
}

// Character represents a character in API responses
type Character struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Server        string `json:"server"`
	Class         string `json:"class"`
	Spec          string `json:"spec"`
	Role          string `json:"role"`
	IsGuildMember bool   `json:"is_guild_member"`
	ProfileURL    string `json:"profile_url,omitempty"`
}

// CharacterFromModel converts a model.Character
func CharacterFromModel(c *model.Character) Character {
	return Character{
		ID:            int64(c.ID),
		Name:          c.Name,
		Server:        c.Server,
		Class:         c.Class,
		Spec:          c.Spec,
		Role:          string(c.DetailedRole()),
		IsGuildMember: c.IsGuildMember,
		ProfileURL:    c.ProfileURL,
	}
}

// Resolution is the result of a character resolution
type Resolution struct {
	Outcome    string     `json:"outcome"`
	Name       string     `json:"name"`
	Character  *Character `json:"character,omitempty"`
	Candidates []string   `json:"candidates,omitempty"`
}

// ResolutionFromModel converts a directory.Resolution
func ResolutionFromModel(r *directory.Resolution) Resolution {
	out := Resolution{
		Outcome:    r.Outcome.String(),
		Name:       r.Name,
		Candidates: r.Candidates,
	}
	if r.Character != nil {
		c := CharacterFromModel(r.Character)
		out.Character = &c
	}
	return out
}

// Participant is one roster row
type Participant struct {
	Character string    `json:"character"`
	Server    string    `json:"server"`
	Class     string    `json:"class"`
	Spec      string    `json:"spec"`
	Role      string    `json:"role"`
	Memo      string    `json:"memo,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RosterGroup is every participant with one status
type RosterGroup struct {
	Status       string        `json:"status"`
	Participants []Participant `json:"participants"`
}

// Roster represents an event roster
type Roster struct {
	Event        Event          `json:"event"`
	Groups       []RosterGroup  `json:"groups"`
	RoleCounts   map[string]int `json:"role_counts"`
	Confirmed    int            `json:"confirmed"`
	Capacity     int            `json:"capacity"`
	OverCapacity bool           `json:"over_capacity"`
}

// RosterFromModel converts a roster.Roster
func RosterFromModel(r *roster.Roster) Roster {
	groups := make([]RosterGroup, len(r.Groups))
	for i, g := range r.Groups {
		participants := make([]Participant, len(g.Rows))
		for j, p := range g.Rows {
			participants[j] = Participant{
				Character: p.Character.Name,
				Server:    p.Character.Server,
				Class:     p.Character.Class,
				Spec:      p.Character.Spec,
				Role:      string(p.DetailedRole),
				Memo:      p.Memo,
				UpdatedAt: p.UpdatedAt,
			}
		}
		groups[i] = RosterGroup{Status: string(g.Status), Participants: participants}
	}

	counts := make(map[string]int, len(r.RoleCounts))
	for role, n := range r.RoleCounts {
		counts[string(role)] = n
	}

	return Roster{
		Event:        EventFromModel(r.Event),
		Groups:       groups,
		RoleCounts:   counts,
		Confirmed:    r.Confirmed,
		Capacity:     r.Capacity,
		OverCapacity: r.OverCapacity,
	}
}

// LogEntry represents an audit log entry
type LogEntry struct {
	ID           int64     `json:"id"`
	Action       string    `json:"action"`
	Actor        string    `json:"actor"`
	Character    string    `json:"character"`
	Server       string    `json:"server"`
	OldCharacter string    `json:"old_character,omitempty"`
	OldStatus    string    `json:"old_status,omitempty"`
	NewStatus    string    `json:"new_status,omitempty"`
	Role         string    `json:"role,omitempty"`
	OldRole      string    `json:"old_role,omitempty"`
	Memo         string    `json:"memo,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// LogEntryFromModel converts a model.ParticipationLogEntry
func LogEntryFromModel(e *model.ParticipationLogEntry) LogEntry {
	out := LogEntry{
		ID:        int64(e.ID),
		Action:    string(e.Action),
		Actor:     e.ActorDisplayName,
		Character: e.Character.Name,
		Server:    e.Character.Server,
		OldStatus: string(e.OldStatus),
		NewStatus: string(e.NewStatus),
		Role:      string(e.DetailedRole),
		OldRole:   string(e.OldDetailedRole),
		Memo:      e.Memo,
		CreatedAt: e.CreatedAt,
	}
	if e.CharacterChanged() {
		out.OldCharacter = e.OldCharacter.Name
	}
	return out
}

// Health is the health check body
type Health struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

// Count is one bucket of a guild statistics tally
type Count struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

func countFromModel(c stats.Count) Count {
	return Count{Name: c.Name, Count: c.Count, Percent: c.Percent}
}

// RankedCharacter is one line of the achievement ranking
type RankedCharacter struct {
	Name              string `json:"name"`
	Server            string `json:"server"`
	AchievementPoints int    `json:"achievement_points"`
}

// GuildStats represents the guild statistics report
type GuildStats struct {
	Members      int               `json:"members"`
	TopClasses   []Count           `json:"top_classes"`
	TopSpecs     []Count           `json:"top_specs"`
	TopServers   []Count           `json:"top_servers"`
	Achievements []RankedCharacter `json:"achievements"`
	Genders      []Count           `json:"genders"`
	Factions     []Count           `json:"factions"`
	Roles        []Count           `json:"roles"`
	RarestCombo  *Count            `json:"rarest_combo,omitempty"`
	Diversity    float64           `json:"diversity"`
}

// GuildStatsFromModel converts a stats.Report
func GuildStatsFromModel(r *stats.Report) GuildStats {
	out := GuildStats{
		Members:    r.Members,
		TopClasses: List(r.TopClasses, countFromModel),
		TopSpecs:   List(r.TopSpecs, countFromModel),
		TopServers: List(r.TopServers, countFromModel),
		Achievements: List(r.Achievements, func(c stats.Ranked) RankedCharacter {
			return RankedCharacter{Name: c.Name, Server: c.Server, AchievementPoints: c.AchievementPoints}
		}),
		Genders:   List(r.Genders, countFromModel),
		Factions:  List(r.Factions, countFromModel),
		Roles:     List(r.Roles, countFromModel),
		Diversity: r.Diversity,
	}
	if r.RarestCombo != nil {
		c := countFromModel(*r.RarestCombo)
		out.RarestCombo = &c
	}
	return out
}
