package app

import (
	"context"

	"github.com/okian/irontrials/internal/domain/model"
)

// seedDemoEvents fills the feed with sample achievements so an empty group
// still has something to show. They are never sent to the backend.
func (s *Session) seedDemoEvents(ctx context.Context) {
	now := s.now().Unix()
	demo := []model.GameEvent{
		{PlayerName: "IronManPro", Kind: model.KindLevelUp, Description: "Reached level 70 Attack",
			Timestamp: now - 300, Points: 70, Metadata: "xp:737627"},
		{PlayerName: "QuestMaster", Kind: model.KindQuestCompleted, Description: "Completed Dragon Slayer",
			Timestamp: now - 600, Points: 25, Metadata: "quest:dragon_slayer"},
		{PlayerName: "BossSlayer99", Kind: model.KindBossKill, Description: "Killed Zulrah (KC: 100)",
			Timestamp: now - 900, Points: 100, Metadata: "boss:zulrah"},
		{PlayerName: "SkillerQueen", Kind: model.KindRareDrop, Description: "Received Twisted Bow",
			Timestamp: now - 1200, Points: 50, Metadata: "item:twisted_bow"},
	}
	// oldest first so the newest lands at the front
	for i := len(demo) - 1; i >= 0; i-- {
		ev := demo[i]
		ev.ID = s.newID()
		s.push(ctx, ev)
	}
	s.logger.Info(ctx, "seeded demo events")
}
