package taxonomy_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/irontrials/internal/domain/taxonomy"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaults(t *testing.T) {
	Convey("Given the built-in taxonomy", t, func() {
		d := taxonomy.Defaults()

		Convey("Then it should carry the exact compatibility values", func() {
			So(d.LevelMilestones, ShouldResemble, []int{50, 70, 80, 90, 99})
			So(d.QuestMilestones, ShouldResemble, []string{
				"Quest Point Cape", "Achievement Diary Cape", "Fire Cape", "Infernal Cape", "Max Cape",
			})
			So(d.AchievementMilestones, ShouldResemble, []string{"Achievement Diary", "Diary Cape", "Max Cape"})
			So(d.RareDrops, ShouldHaveLength, 16)
			So(d.RareDrops, ShouldContain, "twisted bow")
			So(d.RareDrops, ShouldContain, "dragon harpoon")
			So(d.BossKills, ShouldResemble, []string{"Kraken", "Zulrah", "Vorkath", "Hydra", "Gauntlet", "Corrupted Gauntlet"})
			So(d.CustomMilestones, ShouldResemble, map[string]int{"First Fire Cape": 100, "Quest Cape": 200, "Max Cape": 500})
			So(d.IsEmpty(), ShouldBeFalse)
		})

		Convey("Then each call should return an independent copy", func() {
			d.LevelMilestones[0] = 1
			d.CustomMilestones["Max Cape"] = 1
			fresh := taxonomy.Defaults()
			So(fresh.LevelMilestones[0], ShouldEqual, 50)
			So(fresh.CustomMilestones["Max Cape"], ShouldEqual, 500)
		})
	})
}

func TestMatching(t *testing.T) {
	Convey("Given the default taxonomy", t, func() {
		d := taxonomy.Defaults()

		Convey("Level milestones should match exact members only", func() {
			So(d.IsMilestoneLevel(99), ShouldBeTrue)
			So(d.IsMilestoneLevel(98), ShouldBeFalse)
		})

		Convey("String milestones should match case-insensitive substrings", func() {
			So(d.IsRareDrop("Twisted bow"), ShouldBeTrue)
			So(d.IsRareDrop("Bandos chestplate"), ShouldBeTrue)
			So(d.IsRareDrop("Bronze dagger"), ShouldBeFalse)
			So(d.IsSignificantAchievement("the FIRE CAPE challenge"), ShouldBeTrue)
			So(d.IsSignificantAchievement("Ardougne Achievement Diary"), ShouldBeTrue)
			So(d.IsSignificantAchievement("Cook's Assistant"), ShouldBeFalse)
			So(d.IsSignificantBossKill("zulrah"), ShouldBeTrue)
			So(d.IsSignificantBossKill("Unknown Boss"), ShouldBeFalse)
		})

		Convey("A nil taxonomy should match nothing", func() {
			var none *taxonomy.Taxonomy
			So(none.IsMilestoneLevel(99), ShouldBeFalse)
			So(none.IsRareDrop("twisted bow"), ShouldBeFalse)
			So(none.IsSignificantAchievement("Max Cape"), ShouldBeFalse)
			So(none.IsSignificantBossKill("Zulrah"), ShouldBeFalse)
			So(none.IsEmpty(), ShouldBeTrue)
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given a taxonomy with duplicates, blanks and nil collections", t, func() {
		tx := &taxonomy.Taxonomy{
			LevelMilestones: []int{99, 50, 99},
			RareDrops:       []string{"pet", "", "pet", "  ", "scythe"},
		}
		tx.Normalize()

		Convey("Then sets should be deduplicated in first-seen order", func() {
			So(tx.LevelMilestones, ShouldResemble, []int{99, 50})
			So(tx.RareDrops, ShouldResemble, []string{"pet", "scythe"})
			So(tx.QuestMilestones, ShouldNotBeNil)
			So(tx.CustomMilestones, ShouldNotBeNil)
		})

		Convey("Then a blank member should no longer match every item", func() {
			So(tx.IsRareDrop("Bronze dagger"), ShouldBeFalse)
		})
	})
}

func TestJSONRoundTrip(t *testing.T) {
	Convey("Given the default taxonomy", t, func() {
		original := taxonomy.Defaults()

		Convey("When it is serialized and parsed back", func() {
			raw, err := json.MarshalIndent(original, "", "  ")
			So(err, ShouldBeNil)

			var parsed taxonomy.Taxonomy
			So(json.Unmarshal(raw, &parsed), ShouldBeNil)

			Convey("Then the result should be equal as sets and maps", func() {
				So(parsed.Equal(original), ShouldBeTrue)
				So(original.Equal(&parsed), ShouldBeTrue)
			})
		})

		Convey("When compared with a reordered copy", func() {
			c := original.Clone()
			c.LevelMilestones = []int{99, 90, 80, 70, 50}

			Convey("Then order should not matter", func() {
				So(c.Equal(original), ShouldBeTrue)
			})
		})

		Convey("When compared with a modified copy", func() {
			c := original.Clone()
			c.CustomMilestones["Max Cape"] = 1

			Convey("Then they should differ", func() {
				So(c.Equal(original), ShouldBeFalse)
				So(original.CustomMilestones["Max Cape"], ShouldEqual, 500)
			})
		})
	})

	Convey("Given an envelope from the remote endpoint", t, func() {
		raw := `{"groupId":"test-group","version":"1.0","lastUpdated":"2025-01-02T00:00:00Z",
			"config":{"levelMilestones":[30,50],"questMilestones":["Dragon Slayer"],"achievementMilestones":[],
			"rareDrops":["pet"],"bossKills":["Zulrah"],"customMilestones":{"Quest Cape":150}}}`

		var env taxonomy.Envelope
		So(json.Unmarshal([]byte(raw), &env), ShouldBeNil)
		So(env.GroupID, ShouldEqual, "test-group")
		So(env.Version, ShouldEqual, "1.0")
		So(env.Config, ShouldNotBeNil)
		So(env.Config.LevelMilestones, ShouldResemble, []int{30, 50})
		So(env.Config.CustomMilestones["Quest Cape"], ShouldEqual, 150)
	})
}
