package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/services/roster"
	"github.com/mcoot/guildbot/internal/services/stats"
)

// Announcement embed colours
const (
	colorOpen   int = 0x008080
	colorClosed int = 0x808080
	colorStats  int = 0x2c3e50
)

// maxLogEntryLength keeps /roster log replies under the message limit
const maxLogEntryLength = 160

var roleIcons = map[model.DetailedRole]string{
	model.RoleTank:      "🛡️",
	model.RoleHealer:    "💚",
	model.RoleMeleeDPS:  "⚔️",
	model.RoleRangedDPS: "🏹",
}

func roleIcon(r model.DetailedRole) string {
	if icon, ok := roleIcons[r]; ok {
		return icon
	}
	return "❔"
}

func statusLabel(s model.Status) string {
	switch s {
	case model.StatusConfirmed:
		return "Confirmed"
	case model.StatusTentative:
		return "Tentative"
	case model.StatusDeclined:
		return "Declined"
	default:
		return string(s)
	}
}

func eventTitle(e *model.EventInstance) string {
	if e.Template != nil && e.Template.Title != "" {
		return e.Template.Title
	}
	return fmt.Sprintf("Raid #%d", e.ID)
}

// AnnouncementEmbed renders the roster of an event instance
func AnnouncementEmbed(r *roster.Roster) *discordgo.MessageEmbed {
	event := r.Event
	color := colorOpen
	if !event.IsOpen() {
		color = colorClosed
	}

	embed := &discordgo.MessageEmbed{
		Title:       eventTitle(event),
		Description: fmt.Sprintf("<t:%d:F> (<t:%d:R>)", event.StartsAt.Unix(), event.StartsAt.Unix()),
		Color:       color,
	}
	if !event.IsOpen() {
		embed.Description += fmt.Sprintf("\nSign-up closed: %s", event.Status)
	}

	var counts []string
	for _, role := range model.Roles {
		counts = append(counts, fmt.Sprintf("%s %d", roleIcon(role), r.RoleCounts[role]))
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Roles",
		Value: strings.Join(counts, "  "),
	})

	for _, g := range r.Groups {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s (%d)", statusLabel(g.Status), len(g.Rows)),
			Value: groupLines(g.Rows),
		})
	}

	footer := fmt.Sprintf("#%d · %d/%d confirmed", event.ID, r.Confirmed, r.Capacity)
	if r.OverCapacity {
		footer += " · over capacity"
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: footer}
	return embed
}

func groupLines(rows []*model.Participation) string {
	if len(rows) == 0 {
		return "-"
	}
	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %s-%s", roleIcon(row.DetailedRole), row.Character.Name, row.Character.Server)
		if row.Memo != "" {
			fmt.Fprintf(&b, " · %s", row.Memo)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// AnnouncementComponents returns the sign-up buttons, disabled once the event closed
func AnnouncementComponents(event *model.EventInstance) []discordgo.MessageComponent {
	closed := !event.IsOpen()
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Confirm",
				Style:    discordgo.SuccessButton,
				CustomID: signupButtonID(model.StatusConfirmed, event.ID),
				Disabled: closed,
			},
			discordgo.Button{
				Label:    "Tentative",
				Style:    discordgo.PrimaryButton,
				CustomID: signupButtonID(model.StatusTentative, event.ID),
				Disabled: closed,
			},
			discordgo.Button{
				Label:    "Decline",
				Style:    discordgo.DangerButton,
				CustomID: signupButtonID(model.StatusDeclined, event.ID),
				Disabled: closed,
			},
			discordgo.Button{
				Label:    "Change character",
				Style:    discordgo.SecondaryButton,
				CustomID: changeButtonID(event.ID),
				Disabled: closed,
			},
		}},
	}
}

func memoModal(status model.Status, eventID model.EventID) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: memoModalID(status, eventID),
		Title:    fmt.Sprintf("%s sign-up", statusLabel(status)),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:  inputMemo,
					Label:     "Memo (optional)",
					Style:     discordgo.TextInputParagraph,
					Required:  false,
					MaxLength: 200,
				},
			}},
		},
	}
}

func characterModal(eventID model.EventID) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: characterModalID(eventID),
		Title:    "Change character",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:  inputName,
					Label:     "Character name",
					Style:     discordgo.TextInputShort,
					Required:  true,
					MaxLength: 32,
				},
			}},
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    inputServer,
					Label:       "Server",
					Style:       discordgo.TextInputShort,
					Placeholder: "Azshara or 아즈샤라",
					Required:    true,
					MaxLength:   32,
				},
			}},
		},
	}
}

var medals = []string{"🥇", "🥈", "🥉"}

func rankPrefix(i int) string {
	if i < len(medals) {
		return medals[i]
	}
	return "🏅"
}

func countLines(counts []stats.Count) string {
	if len(counts) == 0 {
		return "-"
	}
	var b strings.Builder
	for i, c := range counts {
		fmt.Fprintf(&b, "%s %s (%d)\n", rankPrefix(i), c.Name, c.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

func ratioLine(counts []stats.Count) string {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		if c.Count == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %d%%", c.Name, c.Percent))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " · ")
}

// StatsEmbed renders a guild statistics report
func StatsEmbed(r *stats.Report) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Guild statistics",
		Description: fmt.Sprintf("%d guild characters on record", r.Members),
		Color:       colorStats,
	}
	if r.Members == 0 {
		return embed
	}

	var ranking strings.Builder
	for i, c := range r.Achievements {
		fmt.Fprintf(&ranking, "%s %s-%s (%d)\n", rankPrefix(i), c.Name, c.Server, c.AchievementPoints)
	}
	rankingText := strings.TrimRight(ranking.String(), "\n")
	if rankingText == "" {
		rankingText = "-"
	}

	roles := make([]stats.Count, 0, len(r.Roles))
	for _, c := range r.Roles {
		roles = append(roles, stats.Count{Name: roleIcon(model.DetailedRole(c.Name)), Count: c.Count, Percent: c.Percent})
	}

	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Top classes", Value: countLines(r.TopClasses), Inline: true},
		{Name: "Top specs", Value: countLines(r.TopSpecs), Inline: true},
		{Name: "Top servers", Value: countLines(r.TopServers), Inline: true},
		{Name: "Achievement points", Value: rankingText},
		{Name: "Gender", Value: ratioLine(r.Genders), Inline: true},
		{Name: "Faction", Value: ratioLine(r.Factions), Inline: true},
		{Name: "Roles", Value: ratioLine(roles), Inline: true},
	}
	if r.RarestCombo != nil {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Rarest pairing: %s (%d) · class diversity %.2f", r.RarestCombo.Name, r.RarestCombo.Count, r.Diversity),
		}
	}
	return embed
}

func characterLine(c *model.Character) string {
	line := fmt.Sprintf("%s %s-%s", roleIcon(c.DetailedRole()), c.Name, c.Server)
	if c.Spec != "" || c.Class != "" {
		line += fmt.Sprintf(" (%s %s)", c.Spec, c.Class)
	}
	return strings.TrimSpace(line)
}

// signupReply describes a completed sign-up to the member
func signupReply(row *model.Participation, action model.Action) string {
	msg := fmt.Sprintf("%s %s-%s is now **%s**.", roleIcon(row.DetailedRole), row.Character.Name, row.Character.Server, statusLabel(row.Status))
	switch action {
	case model.ActionPlaceholderClaimed, model.ActionPlaceholderMerged:
		msg += " An administrator had already seated this character for you."
	}
	return msg
}

func scheduleLines(events []*model.EventInstance) string {
	if len(events) == 0 {
		return "No raids scheduled."
	}
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "**#%d** %s · <t:%d:F>\n", e.ID, eventTitle(e), e.StartsAt.Unix())
	}
	return strings.TrimRight(b.String(), "\n")
}

// LogLines renders audit entries newest first
func LogLines(entries []*model.ParticipationLogEntry) string {
	if len(entries) == 0 {
		return "No roster changes yet."
	}
	var b strings.Builder
	for _, e := range entries {
		line := fmt.Sprintf("<t:%d:t> %s %s-%s", e.CreatedAt.Unix(), e.Action, e.Character.Name, e.Character.Server)
		if e.CharacterChanged() {
			line += fmt.Sprintf(" (was %s-%s)", e.OldCharacter.Name, e.OldCharacter.Server)
		}
		if e.OldStatus != "" || e.NewStatus != "" {
			line += fmt.Sprintf(" %s→%s", orDash(string(e.OldStatus)), orDash(string(e.NewStatus)))
		}
		line += " · " + e.ActorDisplayName
		b.WriteString(truncate(line, maxLogEntryLength))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
