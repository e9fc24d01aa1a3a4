package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mcoot/guildbot/internal/api/response"
	"github.com/mcoot/guildbot/internal/model"
)

const timeLayout = "2006-01-02 15:04 MST"

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Event:
		o.printEvent(v)
	case []response.Event:
		o.printEvents(v)
	case response.Roster:
		o.printRoster(v)
	case []response.LogEntry:
		o.printLogs(v)
	case response.Resolution:
		o.printResolution(v)
	case response.Character:
		o.printCharacter(v)
	case response.GuildStats:
		o.printStats(v)
	case response.Health:
		o.printf("Status: %s\nStorage: %s\n", v.Status, v.Storage)
	case TemplateResult:
		o.printTemplate(v)
	case TokenResult:
		o.printf("Token: %s\nADMIN_TOKEN_HASH=%s\n", v.Token, v.Hash)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// TemplateResult is a saved event template
type TemplateResult struct {
	Name            string `json:"name"`
	Title           string `json:"title"`
	Weekday         string `json:"weekday"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	MaxParticipants int    `json:"max_participants"`
	Active          bool   `json:"active"`
}

// TokenResult is a generated admin API token and its bcrypt hash
type TokenResult struct {
	Token string `json:"token,omitempty"`
	Hash  string `json:"hash"`
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

func (o *Output) printEvent(e response.Event) {
	title := e.Title
	if title == "" {
		title = e.Template
	}
	o.printf("#%d %s\n", e.ID, title)
	o.printf("  Starts: %s\n", e.StartsAt.Format(timeLayout))
	o.printf("  Status: %s\n", e.Status)
	if e.Announcement != nil {
		o.printf("  Announcement: %s\n", *e.Announcement)
	}
}

func (o *Output) printEvents(events []response.Event) {
	if len(events) == 0 {
		o.printf("No events.\n")
		return
	}
	for _, e := range events {
		o.printEvent(e)
	}
}

func (o *Output) printRoster(r response.Roster) {
	o.printEvent(r.Event)
	over := ""
	if r.OverCapacity {
		over = " (over capacity)"
	}
	o.printf("Confirmed: %d/%d%s\n", r.Confirmed, r.Capacity, over)

	if len(r.RoleCounts) > 0 {
		var counts []string
		for _, role := range model.Roles {
			if n, ok := r.RoleCounts[string(role)]; ok {
				counts = append(counts, fmt.Sprintf("%s %d", role, n))
			}
		}
		o.printf("Roles: %s\n", strings.Join(counts, ", "))
	}

	for _, g := range r.Groups {
		o.printf("\n%s (%d):\n", g.Status, len(g.Participants))
		for _, p := range g.Participants {
			memo := ""
			if p.Memo != "" {
				memo = " - " + p.Memo
			}
			o.printf("  - %s-%s %s %s [%s]%s\n", p.Character, p.Server, p.Spec, p.Class, p.Role, memo)
		}
	}
}

func (o *Output) printLogs(entries []response.LogEntry) {
	if len(entries) == 0 {
		o.printf("No roster changes.\n")
		return
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s %s %s-%s", e.CreatedAt.Format(timeLayout), e.Action, e.Character, e.Server)
		if e.OldCharacter != "" {
			line += " (was " + e.OldCharacter + ")"
		}
		if e.OldStatus != "" || e.NewStatus != "" {
			line += fmt.Sprintf(" %s->%s", orDash(e.OldStatus), orDash(e.NewStatus))
		}
		o.printf("%s by %s\n", line, e.Actor)
	}
}

func (o *Output) printResolution(r response.Resolution) {
	o.printf("%s: %s\n", r.Name, r.Outcome)
	if r.Character != nil {
		o.printCharacter(*r.Character)
	}
	if len(r.Candidates) > 0 {
		o.printf("Servers: %s\n", strings.Join(r.Candidates, ", "))
	}
}

func (o *Output) printCharacter(c response.Character) {
	guild := ""
	if c.IsGuildMember {
		guild = " [guild]"
	}
	o.printf("%s-%s %s %s (%s)%s\n", c.Name, c.Server, c.Spec, c.Class, c.Role, guild)
}

func (o *Output) printStats(st response.GuildStats) {
	o.printf("Members: %d\n", st.Members)
	for _, group := range []struct {
		label  string
		counts []response.Count
	}{
		{"Classes", st.TopClasses},
		{"Specs", st.TopSpecs},
		{"Servers", st.TopServers},
		{"Genders", st.Genders},
		{"Factions", st.Factions},
		{"Roles", st.Roles},
	} {
		parts := make([]string, 0, len(group.counts))
		for _, c := range group.counts {
			parts = append(parts, fmt.Sprintf("%s %d", c.Name, c.Count))
		}
		o.printf("%s: %s\n", group.label, orDash(strings.Join(parts, ", ")))
	}
	for i, c := range st.Achievements {
		o.printf("%d. %s-%s %d\n", i+1, c.Name, c.Server, c.AchievementPoints)
	}
}

func (o *Output) printTemplate(t TemplateResult) {
	state := "active"
	if !t.Active {
		state = "inactive"
	}
	o.printf("Template: %s (%s)\n", t.Name, t.Title)
	o.printf("Weekly: %s %s, %d min, %d seats, %s\n", t.Weekday, t.StartTime, t.DurationMinutes, t.MaxParticipants, state)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
