package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/okian/irontrials/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestGameEventWireFormat(t *testing.T) {
	convey.Convey("Given a level-up event", t, func() {
		ev := model.GameEvent{
			ID:          "e-1",
			PlayerName:  "IronManPro",
			Kind:        model.KindLevelUp,
			Description: "Attack 70",
			Timestamp:   1735776000,
			Points:      70,
			Metadata:    "xp:737627",
		}

		convey.Convey("When it is encoded to JSON", func() {
			raw, err := json.Marshal(ev)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then field names and kind should match the backend schema", func() {
				var fields map[string]any
				convey.So(json.Unmarshal(raw, &fields), convey.ShouldBeNil)
				convey.So(fields["kind"], convey.ShouldEqual, "LEVEL_UP")
				convey.So(fields["playerName"], convey.ShouldEqual, "IronManPro")
				convey.So(fields["timestamp"], convey.ShouldEqual, float64(1735776000))
				convey.So(fields["metadata"], convey.ShouldEqual, "xp:737627")
			})
		})
	})
}

func TestEventKind(t *testing.T) {
	convey.Convey("Given event kinds", t, func() {
		convey.So(model.KindBossKill.Valid(), convey.ShouldBeTrue)
		convey.So(model.KindOther.Valid(), convey.ShouldBeTrue)
		convey.So(model.EventKind("LEVELUP").Valid(), convey.ShouldBeFalse)
	})
}

func TestParseMessageType(t *testing.T) {
	convey.Convey("Given host message type names", t, func() {
		convey.So(model.ParseMessageType("gamemessage"), convey.ShouldEqual, model.MessageGame)
		convey.So(model.ParseMessageType(" PUBLICCHAT "), convey.ShouldEqual, model.MessagePublicChat)
		convey.So(model.ParseMessageType("CLAN_CHAT"), convey.ShouldEqual, model.MessageOther)
		convey.So(model.ParseMessageType(""), convey.ShouldEqual, model.MessageOther)
	})
}

func TestGroupData(t *testing.T) {
	convey.Convey("Given group data decoded from the backend", t, func() {
		raw := `{"id":"g1","name":"Irons","players":[{"name":"Bob","points":12,"isHc":true,"status":"alive","totalLevel":1500,"questPoints":200}],
			"currentSeason":{"id":"s1","name":"Season 1","status":"active","startDate":1,"endDate":2},
			"lives":{"current":2,"total":3,"lostLives":["Alice"]}}`
		var g model.GroupData
		convey.So(json.Unmarshal([]byte(raw), &g), convey.ShouldBeNil)

		convey.Convey("Then roster lookups should work", func() {
			p, ok := g.Player("Bob")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(p.IsHC, convey.ShouldBeTrue)
			convey.So(p.TotalLevel, convey.ShouldEqual, 1500)

			_, ok = g.Player("Nobody")
			convey.So(ok, convey.ShouldBeFalse)
			convey.So(g.Lives.LostLives, convey.ShouldResemble, []string{"Alice"})
		})

		convey.Convey("Then a nil group should report no players", func() {
			var none *model.GroupData
			_, ok := none.Player("Bob")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestBingoBoard(t *testing.T) {
	convey.Convey("Given a bingo board", t, func() {
		b := &model.BingoBoard{Tiles: []model.BingoTile{{Completed: true}, {}, {Completed: true}}}
		convey.So(b.CompletedCount(), convey.ShouldEqual, 2)

		var none *model.BingoBoard
		convey.So(none.CompletedCount(), convey.ShouldEqual, 0)
	})
}
