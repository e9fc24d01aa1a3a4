package model

import (
	"fmt"
	"strings"
)

// PriorityServers is the order in which servers are searched when a member
// signs up without naming one
var PriorityServers = []string{
	"Azshara",
	"Hyjal",
	"Gul'dan",
	"Deathwing",
	"Burning Legion",
	"Stormrage",
	"Windrunner",
	"Zul'jin",
	"Dalaran",
	"Durotan",
}

type realmName struct {
	korean  string
	english string
}

// realmNames is ordered; partial matching walks it top to bottom
var realmNames = []realmName{
	{"가로나", "Garona"},
	{"아즈샤라", "Azshara"},
	{"불타는군단", "Burning Legion"},
	{"세나리우스", "Cenarius"},
	{"굴단", "Gul'dan"},
	{"스톰레이지", "Stormrage"},
	{"알렉스트라자", "Alexstrasza"},
	{"줄진", "Zul'jin"},
	{"렉사르", "Rexxar"},
	{"하이잘", "Hyjal"},
	{"듀로탄", "Durotan"},
	{"달라란", "Dalaran"},
	{"헬스크림", "Hellscream"},
	{"데스윙", "Deathwing"},
	{"와일드해머", "Wildhammer"},
	{"말퓨리온", "Malfurion"},
	{"노르간논", "Norgannon"},
	{"윈드러너", "Windrunner"},
	{"마법사의탑", "Magtheridon"},
}

// NormalizeServer translates a Korean server name to its English name.
// Exact matches win, then partial matches in either direction. Input that
// matches nothing is returned trimmed but otherwise unchanged.
func NormalizeServer(input string) string {
	trimmed := strings.TrimSpace(input)
	compact := strings.ReplaceAll(trimmed, " ", "")
	if compact == "" {
		return trimmed
	}

	for _, r := range realmNames {
		if r.korean == compact {
			return r.english
		}
	}
	for _, r := range realmNames {
		if strings.Contains(r.korean, compact) || strings.Contains(compact, r.korean) {
			return r.english
		}
	}
	return trimmed
}

// KoreanServerName returns the Korean name of an English server, or the input
func KoreanServerName(english string) string {
	for _, r := range realmNames {
		if strings.EqualFold(r.english, strings.TrimSpace(english)) {
			return r.korean
		}
	}
	return english
}

// ServerSuggestions returns up to limit "korean (english)" labels matching partial
func ServerSuggestions(partial string, limit int) []string {
	needle := strings.ToLower(strings.TrimSpace(partial))
	var out []string
	for _, r := range realmNames {
		if len(out) >= limit {
			break
		}
		if strings.Contains(r.korean, needle) || strings.Contains(strings.ToLower(r.english), needle) {
			out = append(out, fmt.Sprintf("%s (%s)", r.korean, r.english))
		}
	}
	return out
}
