// Package taxonomy defines the milestone taxonomy: the configured levels,
// quests, achievements, drops, bosses and custom milestones whose crossing is
// reported as an event.
//
// String milestones match case-insensitively as substrings of the input text,
// never by exact equality.
package taxonomy

import (
	"slices"
	"strings"
)

// Taxonomy is the resolved set of tracked milestones. The slices are sets:
// Normalize removes duplicates while keeping the order of first appearance.
type Taxonomy struct {
	LevelMilestones       []int          `json:"levelMilestones"`
	QuestMilestones       []string       `json:"questMilestones"`
	AchievementMilestones []string       `json:"achievementMilestones"`
	RareDrops             []string       `json:"rareDrops"`
	BossKills             []string       `json:"bossKills"`
	CustomMilestones      map[string]int `json:"customMilestones"`
}

// Envelope is the remote wire form that wraps a taxonomy with group metadata.
type Envelope struct {
	GroupID     string    `json:"groupId"`
	Version     string    `json:"version"`
	LastUpdated string    `json:"lastUpdated"`
	Config      *Taxonomy `json:"config"`
}

// Defaults returns a fresh copy of the built-in taxonomy.
func Defaults() *Taxonomy {
	return &Taxonomy{
		LevelMilestones: []int{50, 70, 80, 90, 99},
		QuestMilestones: []string{
			"Quest Point Cape",
			"Achievement Diary Cape",
			"Fire Cape",
			"Infernal Cape",
			"Max Cape",
		},
		AchievementMilestones: []string{
			"Achievement Diary",
			"Diary Cape",
			"Max Cape",
		},
		RareDrops: []string{
			"bandos", "armadyl", "saradomin", "zamorak", "guthix",
			"abyssal", "dragon warhammer", "twisted bow", "scythe", "rapier", "blade",
			"dragon axe", "dragon pickaxe", "dragon harpoon",
			"pet", "baby",
		},
		BossKills: []string{
			"Kraken", "Zulrah", "Vorkath", "Hydra", "Gauntlet", "Corrupted Gauntlet",
		},
		CustomMilestones: map[string]int{
			"First Fire Cape": 100,
			"Quest Cape":      200,
			"Max Cape":        500,
		},
	}
}

// Normalize drops duplicate set members and blank strings and replaces nil
// collections with empty ones. It returns t for chaining.
func (t *Taxonomy) Normalize() *Taxonomy {
	if t == nil {
		return nil
	}
	t.LevelMilestones = dedupeInts(t.LevelMilestones)
	t.QuestMilestones = dedupeStrings(t.QuestMilestones)
	t.AchievementMilestones = dedupeStrings(t.AchievementMilestones)
	t.RareDrops = dedupeStrings(t.RareDrops)
	t.BossKills = dedupeStrings(t.BossKills)
	if t.CustomMilestones == nil {
		t.CustomMilestones = map[string]int{}
	}
	return t
}

// IsEmpty reports whether t carries no milestones at all.
func (t *Taxonomy) IsEmpty() bool {
	if t == nil {
		return true
	}
	return len(t.LevelMilestones) == 0 &&
		len(t.QuestMilestones) == 0 &&
		len(t.AchievementMilestones) == 0 &&
		len(t.RareDrops) == 0 &&
		len(t.BossKills) == 0 &&
		len(t.CustomMilestones) == 0
}

// Clone returns a deep copy of t.
func (t *Taxonomy) Clone() *Taxonomy {
	if t == nil {
		return nil
	}
	c := &Taxonomy{
		LevelMilestones:       slices.Clone(t.LevelMilestones),
		QuestMilestones:       slices.Clone(t.QuestMilestones),
		AchievementMilestones: slices.Clone(t.AchievementMilestones),
		RareDrops:             slices.Clone(t.RareDrops),
		BossKills:             slices.Clone(t.BossKills),
		CustomMilestones:      make(map[string]int, len(t.CustomMilestones)),
	}
	for k, v := range t.CustomMilestones {
		c.CustomMilestones[k] = v
	}
	return c
}

// Equal reports set equality of every member collection.
func (t *Taxonomy) Equal(o *Taxonomy) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !sameInts(t.LevelMilestones, o.LevelMilestones) ||
		!sameStrings(t.QuestMilestones, o.QuestMilestones) ||
		!sameStrings(t.AchievementMilestones, o.AchievementMilestones) ||
		!sameStrings(t.RareDrops, o.RareDrops) ||
		!sameStrings(t.BossKills, o.BossKills) {
		return false
	}
	if len(t.CustomMilestones) != len(o.CustomMilestones) {
		return false
	}
	for k, v := range t.CustomMilestones {
		if ov, ok := o.CustomMilestones[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// IsMilestoneLevel reports whether level is a tracked level milestone.
func (t *Taxonomy) IsMilestoneLevel(level int) bool {
	return t != nil && slices.Contains(t.LevelMilestones, level)
}

// IsSignificantAchievement reports whether name mentions any quest or
// achievement milestone.
func (t *Taxonomy) IsSignificantAchievement(name string) bool {
	if t == nil {
		return false
	}
	return containsAny(name, t.QuestMilestones) || containsAny(name, t.AchievementMilestones)
}

// IsRareDrop reports whether the item name mentions a tracked rare drop.
func (t *Taxonomy) IsRareDrop(item string) bool {
	return t != nil && containsAny(item, t.RareDrops)
}

// IsSignificantBossKill reports whether the boss name mentions a tracked boss.
func (t *Taxonomy) IsSignificantBossKill(boss string) bool {
	return t != nil && containsAny(boss, t.BossKills)
}

func containsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func dedupeInts(in []int) []int {
	out := make([]int, 0, len(in))
	seen := make(map[int]struct{}, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func dedupeStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func sameInts(a, b []int) bool {
	a, b = dedupeInts(a), dedupeInts(b)
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	return true
}

func sameStrings(a, b []string) bool {
	a, b = dedupeStrings(a), dedupeStrings(b)
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	return true
}
