// Package stats aggregates the stored guild roster into popularity,
// ranking and ratio figures.
package stats

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage"
)

const (
	// TopN is the length of the class, spec and server popularity lists
	TopN = 3
	// AchievementTopN is the length of the achievement ranking
	AchievementTopN = 5
)

// Count is one bucket of a tally. Percent is floored.
type Count struct {
	Name    string
	Count   int
	Percent int
}

// Ranked is one line of the achievement ranking
type Ranked struct {
	Name              string
	Server            string
	AchievementPoints int
}

// Report is the guild statistics snapshot
type Report struct {
	Members    int
	TopClasses []Count
	TopSpecs   []Count
	TopServers []Count

	Achievements []Ranked

	// ratio tallies cover members with a known value
	Genders  []Count
	Factions []Count
	Roles    []Count // one entry per roster role, in roster order

	// RarestCombo is the least common "race class" pair, nil for an empty guild
	RarestCombo *Count
	// Diversity is the Gini-Simpson index over classes, 0 when every
	// member shares one class
	Diversity float64
}

// Service computes guild statistics
type Service struct {
	storage storage.Storage
	logger  *slog.Logger
}

// New creates a new statistics service
func New(storage storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Guild aggregates every stored guild member
func (s *Service) Guild(ctx context.Context) (*Report, error) {
	members, err := s.storage.ListGuildCharacters(ctx)
	if err != nil {
		return nil, err
	}
	report := Compute(members)
	s.logger.Debug("computed guild statistics", slog.Int("members", report.Members))
	return report, nil
}

// Compute builds a Report from a member list
func Compute(members []*model.Character) *Report {
	classes := newTally()
	specs := newTally()
	servers := newTally()
	genders := newTally()
	factions := newTally()
	combos := newTally()
	roles := make(map[model.DetailedRole]int, len(model.Roles))

	var ranked []Ranked
	for _, c := range members {
		classes.add(c.Class)
		specs.add(c.Spec)
		servers.add(c.Server)
		genders.add(strings.ToLower(c.Gender))
		factions.add(strings.ToLower(c.Faction))
		if c.Race != "" && c.Class != "" {
			combos.add(c.Race + " " + c.Class)
		}
		if c.Class != "" {
			roles[c.DetailedRole()]++
		}
		if c.AchievementPoints > 0 {
			ranked = append(ranked, Ranked{Name: c.Name, Server: c.Server, AchievementPoints: c.AchievementPoints})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].AchievementPoints != ranked[j].AchievementPoints {
			return ranked[i].AchievementPoints > ranked[j].AchievementPoints
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > AchievementTopN {
		ranked = ranked[:AchievementTopN]
	}

	report := &Report{
		Members:      len(members),
		TopClasses:   classes.top(TopN),
		TopSpecs:     specs.top(TopN),
		TopServers:   servers.top(TopN),
		Achievements: ranked,
		Genders:      genders.top(0),
		Factions:     factions.top(0),
		Diversity:    classes.giniSimpson(),
	}

	var withRole int
	for _, n := range roles {
		withRole += n
	}
	for _, r := range model.Roles {
		report.Roles = append(report.Roles, Count{Name: string(r), Count: roles[r], Percent: percent(roles[r], withRole)})
	}

	report.RarestCombo = combos.bottom()
	return report
}

// tally counts non-empty values
type tally struct {
	counts map[string]int
	total  int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(v string) {
	if v == "" {
		return
	}
	t.counts[v]++
	t.total++
}

func (t *tally) sorted() []Count {
	out := make([]Count, 0, len(t.counts))
	for name, n := range t.counts {
		out = append(out, Count{Name: name, Count: n, Percent: percent(n, t.total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// top returns the n most common values, or all of them when n is 0
func (t *tally) top(n int) []Count {
	out := t.sorted()
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// bottom returns the least common value, ties broken by name
func (t *tally) bottom() *Count {
	out := t.sorted()
	if len(out) == 0 {
		return nil
	}
	rare := out[len(out)-1]
	for _, c := range out {
		if c.Count == rare.Count && c.Name < rare.Name {
			rare = c
		}
	}
	return &rare
}

func (t *tally) giniSimpson() float64 {
	if t.total == 0 {
		return 0
	}
	var sum float64
	for _, n := range t.counts {
		p := float64(n) / float64(t.total)
		sum += p * p
	}
	return 1 - sum
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return n * 100 / total
}
