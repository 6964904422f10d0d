package testbackend

import (
	"strings"

	"github.com/okian/irontrials/internal/domain/model"
	"github.com/okian/irontrials/internal/domain/taxonomy"
)

// Milestone envelope metadata served for every group.
const (
	configVersion     = "1.0"
	configLastUpdated = "2025-01-02T00:00:00Z"
	defaultGroupID    = "test-group"
)

// seedOrder lists the built-in groups in the order they are reported.
var seedOrder = []string{"test-group", "hardcore-group", "casual-group"}

func seedConfigs() map[string]*taxonomy.Taxonomy {
	return map[string]*taxonomy.Taxonomy{
		"test-group": {
			LevelMilestones: []int{30, 50, 70, 80, 90, 99},
			QuestMilestones: []string{
				"Quest Point Cape",
				"Achievement Diary Cape",
				"Fire Cape",
				"Infernal Cape",
				"Max Cape",
				"Dragon Slayer",
				"Recipe for Disaster",
			},
			AchievementMilestones: []string{
				"Achievement Diary",
				"Diary Cape",
				"Max Cape",
				"Combat Achievements",
			},
			RareDrops: []string{
				"bandos", "armadyl", "saradomin", "zamorak", "guthix",
				"abyssal", "dragon warhammer", "twisted bow", "scythe", "rapier", "blade",
				"dragon axe", "dragon pickaxe", "dragon harpoon",
				"pet", "baby",
			},
			BossKills: []string{"Kraken", "Zulrah", "Vorkath", "Hydra", "Gauntlet", "Corrupted Gauntlet"},
			CustomMilestones: map[string]int{
				"First Fire Cape": 100,
				"Quest Cape":      200,
				"Max Cape":        500,
			},
		},
		"hardcore-group": {
			LevelMilestones: []int{50, 70, 80, 90, 99},
			QuestMilestones: []string{
				"Quest Point Cape",
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
				"abyssal", "dragon warhammer", "twisted bow", "scythe",
				"pet", "baby",
			},
			BossKills: []string{"Kraken", "Zulrah", "Vorkath", "Hydra"},
			CustomMilestones: map[string]int{
				"First Fire Cape":          150,
				"Quest Cape":               300,
				"Max Cape":                 750,
				"Survive 1000 Total Level": 200,
			},
		},
		"casual-group": {
			LevelMilestones: []int{20, 40, 60, 80, 99},
			QuestMilestones: []string{
				"Dragon Slayer",
				"Recipe for Disaster",
				"Monkey Madness",
				"Quest Point Cape",
			},
			AchievementMilestones: []string{
				"Achievement Diary",
				"Diary Cape",
			},
			RareDrops: []string{
				"dragon", "abyssal", "bandos", "armadyl",
				"pet", "baby",
			},
			BossKills: []string{"Kraken", "Zulrah", "Vorkath"},
			CustomMilestones: map[string]int{
				"First Dragon Drop": 50,
				"Quest Cape":        150,
				"Max Cape":          400,
			},
		},
	}
}

// seedGroup builds the roster and season served for a built-in group.
func seedGroup(id string, now int64) *model.GroupData {
	hardcore := id == "hardcore-group"
	players := []model.PlayerData{
		{Name: "IronManPro", Points: 120, IsHC: hardcore, Status: "alive", TotalLevel: 1650, QuestPoints: 250},
		{Name: "QuestMaster", Points: 95, IsHC: hardcore, Status: "alive", TotalLevel: 1420, QuestPoints: 300},
		{Name: "BossSlayer99", Points: 180, IsHC: hardcore, Status: "alive", TotalLevel: 1875, QuestPoints: 210},
		{Name: "SkillerQueen", Points: 60, Status: "alive", TotalLevel: 1200, QuestPoints: 120},
	}
	g := &model.GroupData{
		ID:      id,
		Name:    groupName(id),
		Players: players,
		CurrentSeason: &model.SeasonData{
			ID:        "season-1",
			Name:      "Season 1",
			Status:    "active",
			StartDate: now - 30*24*3600,
			EndDate:   now + 60*24*3600,
		},
		RecentEvents: []model.GameEvent{},
	}
	if hardcore {
		g.Lives = &model.LivesData{Current: 3, Total: 3, LostLives: []string{}}
	}
	return g
}

// seedBoard builds a 3x3 bingo board. A tile completes when a recorded
// event's description contains the tile's description.
func seedBoard(id string) *model.BingoBoard {
	goals := []string{
		"Fire Cape", "Dragon Slayer", "Twisted Bow",
		"Recipe for Disaster", "Infernal Cape", "Monkey Madness",
		"Attack 70", "Strength 70", "Defence 70",
	}
	const size = 3
	tiles := make([]model.BingoTile, 0, len(goals))
	for i, goal := range goals {
		tiles = append(tiles, model.BingoTile{
			X:           i % size,
			Y:           i / size,
			Description: goal,
			Points:      10 * (1 + i/size),
		})
	}
	return &model.BingoBoard{
		ID:     id + "-board",
		Name:   groupName(id) + " Bingo",
		Tiles:  tiles,
		Size:   size,
		Status: "active",
	}
}

func groupName(id string) string {
	words := strings.Split(id, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
