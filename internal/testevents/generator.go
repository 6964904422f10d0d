package testevents

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/okian/irontrials/internal/domain/classify"
	"github.com/okian/irontrials/internal/domain/evaluator"
	"github.com/okian/irontrials/internal/domain/model"
	"github.com/okian/irontrials/internal/domain/taxonomy"
	"github.com/okian/irontrials/pkg/logger"
)

// Generation constants.
const (
	maxLevel        = 99
	xpPerLevel      = 7500
	maxKillCount    = 500
	maxLevelStep    = 4
	chatNoisePct    = 30
	publicChatPct   = 15
	deathPct        = 5
	publicChatType  = string(model.MessagePublicChat)
	gameMessageType = string(model.MessageGame)
)

var skillNames = []string{
	"Attack", "Strength", "Defence", "Ranged", "Prayer", "Magic", "Runecraft",
	"Hitpoints", "Crafting", "Mining", "Smithing", "Fishing", "Cooking",
	"Firemaking", "Woodcutting", "Agility", "Herblore", "Thieving", "Fletching",
	"Slayer", "Farming", "Construction", "Hunter",
}

var questNames = []string{
	"Cook's Assistant", "Dragon Slayer", "Recipe for Disaster", "Monkey Madness",
	"the Fire Cape challenge", "the Quest Point Cape", "the Karamja Achievement Diary",
	"Sheep Shearer",
}

var commonItems = []string{
	"bones", "coins", "feather", "raw shrimps", "iron dagger", "logs",
}

var noiseLines = []string{
	"Welcome to Gielinor.",
	"You need a higher Agility level to use this shortcut.",
	"Your inventory is too full to hold any more items.",
	"You eat the shark.",
	"The bank has been updated.",
}

// generateScript builds a deterministic replay script for the taxonomy.
// Stat steps of one skill are in ascending level order.
func generateScript(ctx context.Context, config *Config, tax *taxonomy.Taxonomy, stats *Stats) ([]Step, error) {
	if tax == nil {
		return nil, fmt.Errorf("no taxonomy to generate against")
	}
	skills := config.Skills
	if skills <= 0 || skills > len(skillNames) {
		skills = len(skillNames)
	}

	rng := rand.New(rand.NewSource(config.Seed)) //nolint:gosec // reproducible load, not security
	var steps []Step

	for _, skill := range skillNames[:skills] {
		for level := 1 + rng.Intn(maxLevelStep); level <= maxLevel; level += 1 + rng.Intn(maxLevelStep) {
			steps = append(steps, Step{Kind: StepStat, Skill: skill, Level: level, XP: level * xpPerLevel})
		}
		steps = append(steps, Step{Kind: StepStat, Skill: skill, Level: maxLevel, XP: maxLevel * xpPerLevel})
	}

	drops := append(append([]string{}, tax.RareDrops...), commonItems...)
	for i := 0; i < config.ChatLines; i++ {
		steps = append(steps, chatStep(rng, drops))
	}

	rng.Shuffle(len(steps), func(i, j int) { steps[i], steps[j] = steps[j], steps[i] })
	steps = orderStats(steps)

	expect(steps, tax)
	stats.StepsGenerated = len(steps)
	for _, s := range steps {
		stats.EventsExpected += len(s.Expect)
		for _, k := range s.Expect {
			stats.ExpectedByKind[k]++
		}
	}

	logger.Get().Info(ctx, "replay script generated",
		logger.Int("steps", len(steps)),
		logger.Int("skills", skills),
		logger.Int("expectedEvents", stats.EventsExpected))
	return steps, nil
}

func chatStep(rng *rand.Rand, drops []string) Step {
	typ := gameMessageType
	if rng.Intn(100) < publicChatPct {
		typ = publicChatType
	}
	roll := rng.Intn(100)
	var text string
	switch {
	case roll < deathPct:
		text = "Oh dear, you are dead!"
	case roll < chatNoisePct:
		text = noiseLines[rng.Intn(len(noiseLines))]
	case roll < 50:
		text = fmt.Sprintf("Congratulations! You have completed %s.", questNames[rng.Intn(len(questNames))])
	case roll < 70:
		text = fmt.Sprintf("Your kill count is: %d.", 1+rng.Intn(maxKillCount))
	default:
		text = fmt.Sprintf("You have received a %s.", drops[rng.Intn(len(drops))])
	}
	return Step{Kind: StepChat, Text: text, Type: typ}
}

// orderStats restores ascending level order per skill while keeping the
// shuffled interleaving of slots.
func orderStats(steps []Step) []Step {
	bySkill := make(map[string][]Step)
	for _, s := range steps {
		if s.Kind == StepStat {
			bySkill[s.Skill] = append(bySkill[s.Skill], s)
		}
	}
	for _, ss := range bySkill {
		for i := 1; i < len(ss); i++ {
			for j := i; j > 0 && ss[j].Level < ss[j-1].Level; j-- {
				ss[j], ss[j-1] = ss[j-1], ss[j]
			}
		}
	}
	next := make(map[string]int)
	for i, s := range steps {
		if s.Kind != StepStat {
			continue
		}
		steps[i] = bySkill[s.Skill][next[s.Skill]]
		next[s.Skill]++
	}
	return steps
}

// expect fills in the events each step should produce under the default
// capture toggles.
func expect(steps []Step, tax *taxonomy.Taxonomy) {
	eval := evaluator.New(evaluator.WithClock(time.Now))
	for i := range steps {
		s := &steps[i]
		s.Expect = nil
		if s.Kind == StepStat {
			if ev, ok := eval.OnStatDelta(s.Skill, s.Level, s.XP, tax); ok {
				s.Expect = append(s.Expect, ev.Kind)
			}
			continue
		}
		s.Expect = expectChat(eval, s.Text, model.ParseMessageType(s.Type), tax)
	}
}

func expectChat(eval *evaluator.Evaluator, text string, typ model.MessageType, tax *taxonomy.Taxonomy) []model.EventKind {
	if classify.IsTestCommand(text) {
		return nil
	}
	var kinds []model.EventKind
	if typ == model.MessageGame {
		if name, ok := classify.QuestName(text); ok {
			if ev, ok := eval.OnQuestFact(name, tax); ok {
				kinds = append(kinds, ev.Kind)
			}
		}
		if name, kc, ok := classify.BossKill(text); ok {
			if ev, ok := eval.OnBossFact(name, kc, tax); ok {
				kinds = append(kinds, ev.Kind)
			}
		}
		if item, ok := classify.ItemName(text); ok {
			if ev, ok := eval.OnDropFact(item, tax); ok {
				kinds = append(kinds, ev.Kind)
			}
		}
	}
	if classify.IsDeath(text) {
		kinds = append(kinds, model.KindDeath)
	}
	return kinds
}
