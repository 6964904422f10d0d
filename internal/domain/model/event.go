// Package model contains the wire schemas shared between the tracker and its
// backend.
package model

import "strings"

// EventKind classifies an achievement event.
type EventKind string

const (
	KindLevelUp        EventKind = "LEVEL_UP"
	KindQuestCompleted EventKind = "QUEST_COMPLETED"
	KindBossKill       EventKind = "BOSS_KILL"
	KindRareDrop       EventKind = "RARE_DROP"
	KindDeath          EventKind = "DEATH"
	KindOther          EventKind = "OTHER"
)

// Valid reports whether k is one of the known kinds.
func (k EventKind) Valid() bool {
	switch k {
	case KindLevelUp, KindQuestCompleted, KindBossKill, KindRareDrop, KindDeath, KindOther:
		return true
	}
	return false
}

// GameEvent is a single achievement reported by a player. Values are never
// mutated after construction; copies are passed around.
type GameEvent struct {
	ID          string    `json:"id"`
	PlayerName  string    `json:"playerName"`
	Kind        EventKind `json:"kind"`
	Description string    `json:"description"`
	Timestamp   int64     `json:"timestamp"` // unix seconds
	Points      int       `json:"points"`
	Metadata    string    `json:"metadata"` // free-form "key:value"
}

// MessageType is the host's classification of a chat line.
type MessageType string

const (
	MessageGame        MessageType = "GAMEMESSAGE"
	MessagePublicChat  MessageType = "PUBLICCHAT"
	MessagePrivateChat MessageType = "PRIVATECHAT"
	MessageSpam        MessageType = "SPAM"
	MessageOther       MessageType = "OTHER"
)

// ParseMessageType maps a host supplied type name onto a MessageType.
// Unknown names become MessageOther.
func ParseMessageType(s string) MessageType {
	switch t := MessageType(strings.ToUpper(strings.TrimSpace(s))); t {
	case MessageGame, MessagePublicChat, MessagePrivateChat, MessageSpam:
		return t
	}
	return MessageOther
}
