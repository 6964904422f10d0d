package testbackend_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/irontrials/internal/adapters/http/tracker"
	"github.com/okian/irontrials/internal/adapters/mq/queue"
	"github.com/okian/irontrials/internal/adapters/mq/worker"
	"github.com/okian/irontrials/internal/adapters/resolver"
	"github.com/okian/irontrials/internal/app"
	"github.com/okian/irontrials/internal/config"
	"github.com/okian/irontrials/internal/domain/model"
	"github.com/okian/irontrials/internal/domain/taxonomy"
	"github.com/okian/irontrials/internal/testbackend"
	"github.com/okian/irontrials/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.WithWriter(io.Discard))
	os.Exit(m.Run())
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, r))
	return w
}

type errorBody struct {
	Error           string   `json:"error"`
	AvailableGroups []string `json:"available_groups"`
}

func TestMilestoneRoutes(t *testing.T) {
	Convey("Given the sample backend", t, func() {
		h := testbackend.New().Handler()

		Convey("When a group's milestones are requested", func() {
			w := do(h, "GET", "/api/iron-trials/milestones?groupId=hardcore-group", "")
			var env taxonomy.Envelope
			So(json.Unmarshal(w.Body.Bytes(), &env), ShouldBeNil)

			Convey("Then the config is wrapped in an envelope", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(env.GroupID, ShouldEqual, "hardcore-group")
				So(env.Version, ShouldEqual, "1.0")
				So(env.LastUpdated, ShouldEqual, "2025-01-02T00:00:00Z")
				So(env.Config.LevelMilestones, ShouldResemble, []int{50, 70, 80, 90, 99})
				So(env.Config.CustomMilestones["Survive 1000 Total Level"], ShouldEqual, 200)
			})
		})

		Convey("When no group is named", func() {
			w := do(h, "GET", "/v1/milestones", "")
			var env taxonomy.Envelope
			So(json.Unmarshal(w.Body.Bytes(), &env), ShouldBeNil)
			So(env.GroupID, ShouldEqual, "test-group")
			So(env.Config.LevelMilestones, ShouldResemble, []int{30, 50, 70, 80, 90, 99})
		})

		Convey("When an unknown group is requested", func() {
			w := do(h, "GET", "/api/iron-trials/milestones?groupId=nope", "")
			var body errorBody
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then the available groups are listed", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(body.Error, ShouldEqual, "Group 'nope' not found")
				So(body.AvailableGroups, ShouldResemble, []string{"test-group", "hardcore-group", "casual-group"})
			})
		})

		Convey("When groups are listed", func() {
			w := do(h, "GET", "/api/iron-trials/groups", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"count":3`)
		})

		Convey("When a config update misses a field", func() {
			w := do(h, "PUT", "/api/iron-trials/milestones/new-group",
				`{"levelMilestones":[10],"questMilestones":[],"achievementMilestones":[],"rareDrops":[],"bossKills":[]}`)
			var body errorBody
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(body.Error, ShouldEqual, "Missing required field: customMilestones")
		})

		Convey("When a config update has no body", func() {
			w := do(h, "PUT", "/api/iron-trials/milestones/new-group", "{}")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "No data provided")
		})

		Convey("When a complete config update is sent for a new group", func() {
			w := do(h, "PUT", "/api/iron-trials/milestones/new-group",
				`{"levelMilestones":[10,10,20],"questMilestones":["Cook's Assistant"],"achievementMilestones":[],
				  "rareDrops":["pet"],"bossKills":[],"customMilestones":{"First Kill":5}}`)

			Convey("Then the group becomes available", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "Configuration updated for group 'new-group'")

				var env taxonomy.Envelope
				So(json.Unmarshal(do(h, "GET", "/v1/milestones?groupId=new-group", "").Body.Bytes(), &env), ShouldBeNil)
				So(env.Config.LevelMilestones, ShouldResemble, []int{10, 20})
				So(do(h, "GET", "/v1/groups/new-group", "").Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestGroupRoutes(t *testing.T) {
	Convey("Given the sample backend", t, func() {
		h := testbackend.New(testbackend.WithClock(func() time.Time { return time.Unix(1735776000, 0) })).Handler()

		Convey("When a group is fetched", func() {
			w := do(h, "GET", "/v1/groups/hardcore-group", "")
			var g model.GroupData
			So(json.Unmarshal(w.Body.Bytes(), &g), ShouldBeNil)
			So(g.Name, ShouldEqual, "Hardcore Group")
			So(g.Players, ShouldHaveLength, 4)
			So(g.Lives.Current, ShouldEqual, 3)
			So(g.CurrentSeason.StartDate, ShouldBeLessThan, int64(1735776000))
		})

		Convey("When an unknown group is fetched", func() {
			So(do(h, "GET", "/v1/groups/nope", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(h, "GET", "/v1/bingo/boards/nope", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When a death is recorded for a hardcore player", func() {
			w := do(h, "POST", "/v1/groups/hardcore-group/events",
				`{"id":"e1","playerName":"IronManPro","kind":"DEATH","description":"Player Death","timestamp":1735776000}`)
			So(w.Code, ShouldEqual, http.StatusCreated)

			Convey("Then the group loses a life and the event is listed", func() {
				var g model.GroupData
				So(json.Unmarshal(do(h, "GET", "/v1/groups/hardcore-group", "").Body.Bytes(), &g), ShouldBeNil)
				So(g.Lives.Current, ShouldEqual, 2)
				So(g.Lives.LostLives, ShouldResemble, []string{"IronManPro"})
				So(g.RecentEvents[0].ID, ShouldEqual, "e1")
				p, ok := g.Player("IronManPro")
				So(ok, ShouldBeTrue)
				So(p.IsHC, ShouldBeFalse)
			})
		})

		Convey("When an event matches a bingo tile", func() {
			do(h, "POST", "/v1/groups/test-group/events",
				`{"id":"e2","playerName":"Newcomer","kind":"QUEST_COMPLETED","description":"the Dragon Slayer quest","points":25,"timestamp":42}`)

			Convey("Then the tile is completed and the player joins the roster", func() {
				var b model.BingoBoard
				So(json.Unmarshal(do(h, "GET", "/v1/bingo/boards/test-group", "").Body.Bytes(), &b), ShouldBeNil)
				So(b.CompletedCount(), ShouldEqual, 1)
				So(b.Tiles[1].CompletedBy, ShouldEqual, "Newcomer")
				So(b.Tiles[1].CompletedAt, ShouldEqual, int64(42))

				var g model.GroupData
				So(json.Unmarshal(do(h, "GET", "/v1/groups/test-group", "").Body.Bytes(), &g), ShouldBeNil)
				p, ok := g.Player("Newcomer")
				So(ok, ShouldBeTrue)
				So(p.Points, ShouldEqual, 25)
			})
		})

		Convey("When the same event is sent twice", func() {
			body := `{"id":"dup","playerName":"QuestMaster","kind":"OTHER","description":"x","points":5}`
			first := do(h, "POST", "/v1/groups/test-group/events", body)
			second := do(h, "POST", "/v1/groups/test-group/events", body)

			Convey("Then it is applied once", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(second.Body.String(), ShouldContainSubstring, `"duplicate"`)

				var g model.GroupData
				So(json.Unmarshal(do(h, "GET", "/v1/groups/test-group", "").Body.Bytes(), &g), ShouldBeNil)
				p, _ := g.Player("QuestMaster")
				So(p.Points, ShouldEqual, 100)
			})
		})

		Convey("When an event is malformed", func() {
			So(do(h, "POST", "/v1/groups/test-group/events", `{`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, "POST", "/v1/groups/test-group/events", `{"kind":"LEVELUP"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When more events arrive than the group keeps", func() {
			for i := 0; i < 60; i++ {
				do(h, "POST", "/v1/groups/casual-group/events", `{"kind":"OTHER","description":"x"}`)
			}
			var g model.GroupData
			So(json.Unmarshal(do(h, "GET", "/v1/groups/casual-group", "").Body.Bytes(), &g), ShouldBeNil)
			So(g.RecentEvents, ShouldHaveLength, 50)
		})
	})
}

func TestClientAgainstBackend(t *testing.T) {
	Convey("Given the tracker client talking to a running sample backend", t, func() {
		ctx := context.Background()
		srv := httptest.NewServer(testbackend.New().Handler())
		defer srv.Close()

		jobs := queue.NewInMemoryQueue[worker.Job](queue.WithName("sync-test"), queue.WithCapacity(16))
		pool := worker.NewPool(jobs, worker.WithWorkerCount(2), worker.WithPoolName("sync-test"))
		pool.Start(ctx)
		defer func() { _ = pool.Shutdown(ctx) }()

		client, err := tracker.New(pool)
		So(err, ShouldBeNil)

		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		Convey("When the taxonomy is resolved remotely", func() {
			tax, src := resolver.New(client).Resolve(ctx, resolver.Settings{
				UseRemoteConfig: true,
				RemoteConfigURL: srv.URL + "/v1/milestones",
				GroupID:         "casual-group",
				MilestoneLevels: "1,2,3",
			})
			So(src, ShouldEqual, resolver.SourceRemote)
			So(tax.LevelMilestones, ShouldResemble, []int{20, 40, 60, 80, 99})
		})

		Convey("When an event is sent and the group fetched", func() {
			sent, err := client.SendEvent(ctx, srv.URL, "test-group", model.GameEvent{
				ID: "e1", PlayerName: "IronManPro", Kind: model.KindRareDrop, Description: "Twisted bow", Points: 50,
			}).Wait(waitCtx)
			So(err, ShouldBeNil)
			So(sent.Value, ShouldBeTrue)

			group, err := client.FetchGroupData(ctx, srv.URL, "test-group").Wait(waitCtx)
			So(err, ShouldBeNil)

			board, err := client.FetchBingoBoard(ctx, srv.URL, "test-group").Wait(waitCtx)
			So(err, ShouldBeNil)

			Convey("Then the backend reflects the event", func() {
				So(group.Value.RecentEvents[0].ID, ShouldEqual, "e1")
				p, _ := group.Value.Player("IronManPro")
				So(p.Points, ShouldEqual, 170)
				So(board.Value.CompletedCount(), ShouldEqual, 1)
			})

			Convey("Then a new session reads the client's last fetched values", func() {
				cfg := config.New()
				cfg.ServerURL = srv.URL
				session := app.New(cfg, taxonomy.Defaults(), client, nil)
				So(session.Start(ctx), ShouldBeNil)
				defer func() { _ = session.Stop(ctx) }()

				g, err := session.GroupData(ctx)
				So(err, ShouldBeNil)
				So(g.Name, ShouldEqual, "Test Group")
				b, err := session.BingoBoard(ctx)
				So(err, ShouldBeNil)
				So(b.CompletedCount(), ShouldEqual, 1)
			})
		})
	})
}
