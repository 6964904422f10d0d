// Package classify extracts structured facts from raw chat lines.
//
// Matching is literal substring search over a fixed set of anchor phrases.
// Lines that carry none of the anchors yield no fact.
package classify

import (
	"strconv"
	"strings"
)

// Anchor phrases recognized in game messages.
const (
	questCongratsAnchor = "Congratulations! You have completed"
	questAnchor         = "You have completed"
	questWord           = "quest"

	killCountAnchor = "Your kill count is:"

	deathAnchor    = "You have died"
	deathAltAnchor = "Oh dear, you are dead"

	testCommandPrefix = "::irontrials"
)

// UnknownBoss is reported as the boss name of every kill-count line. The kill
// count message does not name the boss it belongs to.
const UnknownBoss = "Unknown Boss"

// itemAnchors are checked in order; the first one present wins.
var itemAnchors = []string{
	"You have received a",
	"You received",
	"You got",
}

// QuestName returns the quest named by a completion message.
func QuestName(line string) (string, bool) {
	if i := strings.Index(line, questCongratsAnchor); i >= 0 {
		return between(line, i+len(questCongratsAnchor), ".")
	}
	if !strings.Contains(line, questAnchor) || !strings.Contains(line, questWord) {
		return "", false
	}
	i := strings.Index(line, questAnchor)
	return between(line, i+len(questAnchor), questWord)
}

// BossKill returns the boss and kill count reported by a kill-count message.
// The count is the digits after the last colon, concatenated.
func BossKill(line string) (name string, killCount int, ok bool) {
	if !strings.Contains(line, killCountAnchor) {
		return "", 0, false
	}
	tail := line[strings.LastIndex(line, ":")+1:]
	var digits strings.Builder
	for _, r := range tail {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return UnknownBoss, 0, true
	}
	kc, err := strconv.Atoi(digits.String())
	if err != nil {
		// overflow; report the line without a usable count
		return UnknownBoss, 0, true
	}
	return UnknownBoss, kc, true
}

// ItemName returns the item named by a loot message.
func ItemName(line string) (string, bool) {
	for _, anchor := range itemAnchors {
		if i := strings.Index(line, anchor); i >= 0 {
			return between(line, i+len(anchor), ".")
		}
	}
	return "", false
}

// IsDeath reports whether the line announces the player's death.
func IsDeath(line string) bool {
	return strings.Contains(line, deathAnchor) || strings.Contains(line, deathAltAnchor)
}

// IsTestCommand reports whether the line is the connection-test command.
func IsTestCommand(line string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), testCommandPrefix)
}

// between returns the trimmed text from start up to the next terminator.
func between(line string, start int, terminator string) (string, bool) {
	end := strings.Index(line[start:], terminator)
	if end < 0 {
		return "", false
	}
	name := strings.TrimSpace(line[start : start+end])
	if name == "" {
		return "", false
	}
	return name, true
}
