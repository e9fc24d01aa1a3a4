package bot

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/services/roster"
	"github.com/mcoot/guildbot/internal/services/stats"
)

func testEvent(status model.EventStatus) *model.EventInstance {
	return &model.EventInstance{
		ID:       7,
		Template: &model.EventTemplate{Title: "Heroic Night", MaxParticipants: 1},
		StartsAt: time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC),
		Status:   status,
	}
}

func TestAnnouncementEmbedGroupsAndFooter(t *testing.T) {
	rows := []*model.Participation{
		{Status: model.StatusConfirmed, DetailedRole: model.RoleRangedDPS, Character: model.CharacterSnapshot{Name: "Frostbite", Server: "Azshara"}},
		{Status: model.StatusConfirmed, DetailedRole: model.RoleTank, Character: model.CharacterSnapshot{Name: "Stoneguard", Server: "Azshara"}},
		{Status: model.StatusTentative, DetailedRole: model.RoleHealer, Character: model.CharacterSnapshot{Name: "Icyveins", Server: "Hyjal"}, Memo: "late"},
	}
	embed := AnnouncementEmbed(roster.Arrange(testEvent(model.EventStatusUpcoming), rows, 1))

	assert.Equal(t, "Heroic Night", embed.Title)
	assert.Equal(t, colorOpen, embed.Color)
	require.Len(t, embed.Fields, 4)
	assert.Equal(t, "Confirmed (2)", embed.Fields[1].Name)
	assert.Equal(t, "🛡️ Stoneguard-Azshara\n🏹 Frostbite-Azshara", embed.Fields[1].Value)
	assert.Equal(t, "💚 Icyveins-Hyjal · late", embed.Fields[2].Value)
	assert.Equal(t, "-", embed.Fields[3].Value)
	assert.Equal(t, "#7 · 2/1 confirmed · over capacity", embed.Footer.Text)
}

func TestClosedEventDisablesButtons(t *testing.T) {
	event := testEvent(model.EventStatusCompleted)
	embed := AnnouncementEmbed(roster.Arrange(event, nil, 20))
	assert.Equal(t, colorClosed, embed.Color)
	assert.Contains(t, embed.Description, "Sign-up closed: completed")

	row := AnnouncementComponents(event)[0].(discordgo.ActionsRow)
	require.Len(t, row.Components, 4)
	for _, c := range row.Components {
		assert.True(t, c.(discordgo.Button).Disabled)
	}
}

func TestLogLines(t *testing.T) {
	assert.Equal(t, "No roster changes yet.", LogLines(nil))

	line := LogLines([]*model.ParticipationLogEntry{{
		Action:           model.ActionCharacterChangedFrom(model.StatusTentative),
		OldStatus:        model.StatusTentative,
		NewStatus:        model.StatusConfirmed,
		Character:        model.CharacterSnapshot{Name: "Icyveins", Server: "Hyjal"},
		OldCharacter:     model.CharacterSnapshot{Name: "Frostbite", Server: "Azshara"},
		ActorDisplayName: "Frostbite",
		CreatedAt:        time.Unix(1704283200, 0),
	}})
	assert.Equal(t, "<t:1704283200:t> character_changed_from_tentative Icyveins-Hyjal (was Frostbite-Azshara) tentative→confirmed · Frostbite", line)
}

func TestLogLinesOmitUnchangedCharacter(t *testing.T) {
	frostbite := model.CharacterSnapshot{Name: "Frostbite", Server: "Azshara", Spec: "Frost"}
	line := LogLines([]*model.ParticipationLogEntry{{
		Action:           model.ActionChangedTo(model.StatusDeclined),
		OldStatus:        model.StatusConfirmed,
		NewStatus:        model.StatusDeclined,
		Character:        frostbite,
		OldCharacter:     frostbite,
		ActorDisplayName: "Frostbite",
		CreatedAt:        time.Unix(1704283200, 0),
	}})
	assert.Equal(t, "<t:1704283200:t> changed_to_declined Frostbite-Azshara confirmed→declined · Frostbite", line)
}

func TestStatsEmbed(t *testing.T) {
	embed := StatsEmbed(&stats.Report{
		Members:      3,
		TopClasses:   []stats.Count{{Name: "Mage", Count: 2}, {Name: "Priest", Count: 1}},
		Achievements: []stats.Ranked{{Name: "Frostbite", Server: "Azshara", AchievementPoints: 21000}},
		Genders:      []stats.Count{{Name: "female", Count: 2, Percent: 66}, {Name: "male", Count: 1, Percent: 33}},
		Roles: []stats.Count{
			{Name: string(model.RoleTank), Count: 0},
			{Name: string(model.RoleHealer), Count: 1, Percent: 33},
			{Name: string(model.RoleMeleeDPS), Count: 0},
			{Name: string(model.RoleRangedDPS), Count: 2, Percent: 66},
		},
		RarestCombo: &stats.Count{Name: "Human Priest", Count: 1},
		Diversity:   0.444,
	})

	require.Len(t, embed.Fields, 7)
	assert.Equal(t, "🥇 Mage (2)\n🥈 Priest (1)", embed.Fields[0].Value)
	assert.Equal(t, "-", embed.Fields[1].Value)
	assert.Equal(t, "🥇 Frostbite-Azshara (21000)", embed.Fields[3].Value)
	assert.Equal(t, "female 66% · male 33%", embed.Fields[4].Value)
	assert.Equal(t, "💚 33% · 🏹 66%", embed.Fields[6].Value)
	assert.Equal(t, "Rarest pairing: Human Priest (1) · class diversity 0.44", embed.Footer.Text)
}

func TestStatsEmbedEmptyGuild(t *testing.T) {
	embed := StatsEmbed(&stats.Report{})
	assert.Equal(t, "0 guild characters on record", embed.Description)
	assert.Empty(t, embed.Fields)
	assert.Nil(t, embed.Footer)
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "아즈…", truncate("아즈샤라", 3))
	assert.Equal(t, "short", truncate("short", 10))
}

func TestParseCustomID(t *testing.T) {
	id, err := parseCustomID(signupButtonID(model.StatusDeclined, 12))
	require.NoError(t, err)
	assert.Equal(t, customID{prefix: prefixSignup, status: model.StatusDeclined, eventID: 12}, id)

	id, err = parseCustomID(characterModalID(3))
	require.NoError(t, err)
	assert.Equal(t, customID{prefix: prefixCharacter, eventID: 3}, id)

	for _, bad := range []string{"", "signup:maybe:1", "change:x", "signup:confirmed:0", "other:1"} {
		_, err := parseCustomID(bad)
		assert.Error(t, err, bad)
	}
}

func TestCommandsHaveUniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Commands() {
		assert.False(t, seen[c.Name], c.Name)
		seen[c.Name] = true
	}
	assert.Len(t, seen, 5)
}
