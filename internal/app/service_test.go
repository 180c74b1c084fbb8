package app_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/okian/xpboard/internal/adapters/artifact"
	"github.com/okian/xpboard/internal/adapters/snapshot"
	"github.com/okian/xpboard/internal/app"
	"github.com/okian/xpboard/internal/domain/model"
	"github.com/okian/xpboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeSource serves a fixed zip payload from memory.
type fakeSource struct {
	mu        sync.Mutex
	payload   []byte
	listErr   error
	gate      chan struct{} // when set, Download blocks until it is closed
	downloads int
}

func (f *fakeSource) List(ctx context.Context, runID string) ([]artifact.Artifact, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []artifact.Artifact{
		{Name: "report.txt", URL: "mem://report.txt", Size: 1},
		{Name: "results.zip", URL: "mem://results.zip", Size: int64(len(f.payload))},
	}, nil
}

func (f *fakeSource) Download(ctx context.Context, url string, progress artifact.ProgressFunc) ([]byte, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.downloads++
	f.mu.Unlock()
	if progress != nil {
		progress(100)
	}
	return f.payload, nil
}

func (f *fakeSource) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads
}

const runPayload = `[{
	"repo": "org/repo",
	"issue": "42",
	"records": {
		"alice": {"contributorId": 1, "totalReward": 10,
			"task": {"reward": 10, "multiplier": 1, "timestamp": "2024-01-01T00:00:00Z"}},
		"bob": {"contributorId": 2, "totalReward": 5,
			"comments": [{"id": 1, "timestamp": "2024-01-02T00:00:00Z", "reward": 5, "url": "https://github.com/org/repo/issues/42#1"}]}
	}
}]`

func zipPayload(t *testing.T, payload string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("output.json")
	if err != nil {
		t.Fatalf("create payload entry: %v", err)
	}
	if _, err := w.Write([]byte(payload)); err != nil {
		t.Fatalf("write payload entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close payload archive: %v", err)
	}
	return buf.Bytes()
}

func drain(msgs <-chan app.Message) []app.Message {
	var all []app.Message
	for msg := range msgs {
		all = append(all, msg)
	}
	return all
}

func seededSnapshot(t *testing.T) []byte {
	t.Helper()
	data := model.RunData{
		"org/repo": {
			"42": {
				"alice": {ContributorID: 1, TotalReward: 10},
			},
		},
	}
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal seed snapshot: %v", err)
	}
	return raw
}

func TestService_Load(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with an empty store", t, func() {
		source := &fakeSource{payload: zipPayload(t, runPayload)}
		store := snapshot.NewMemoryStore()
		svc := app.New(app.WithSource(source), app.WithStore(store))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("When loading a run for the first time", func() {
			msgs, err := svc.Load(ctx, "7")
			So(err, ShouldBeNil)
			all := drain(msgs)

			Convey("Then the first delivery should be the empty placeholder", func() {
				So(len(all), ShouldBeGreaterThanOrEqualTo, 2)
				first := all[0]
				So(first.Kind, ShouldEqual, app.KindResult)
				So(first.Result.Empty, ShouldBeTrue)
				So(first.Result.FromCache, ShouldBeFalse)
				So(first.Result.Bundle.Leaderboard, ShouldHaveLength, 0)
			})

			Convey("And the terminal delivery should carry the refreshed bundle", func() {
				last := all[len(all)-1]
				So(last.Kind, ShouldEqual, app.KindResult)
				So(last.Result.FromCache, ShouldBeFalse)
				So(last.Result.Empty, ShouldBeFalse)
				board := last.Result.Bundle.Leaderboard
				So(board, ShouldHaveLength, 2)
				So(board[0].Contributor, ShouldEqual, "alice")
				So(board[0].TotalXP, ShouldEqual, 10)
				So(board[1].Contributor, ShouldEqual, "bob")
				So(board[1].TotalXP, ShouldEqual, 5)
			})

			Convey("And everything in between should be progress", func() {
				for _, msg := range all[1 : len(all)-1] {
					So(msg.Kind, ShouldEqual, app.KindProgress)
					So(msg.Progress, ShouldNotBeNil)
				}
			})

			Convey("And the snapshot should be persisted by the time the terminal lands", func() {
				_, ok, getErr := store.Get(ctx, "7")
				So(getErr, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When loading the same run a second time", func() {
			firstLoad, err := svc.Load(ctx, "7")
			So(err, ShouldBeNil)
			drain(firstLoad)

			msgs, err := svc.Load(ctx, "7")
			So(err, ShouldBeNil)
			all := drain(msgs)

			Convey("Then the first delivery should come from the cache, fully aggregated", func() {
				first := all[0]
				So(first.Kind, ShouldEqual, app.KindResult)
				So(first.Result.FromCache, ShouldBeTrue)
				So(first.Result.Empty, ShouldBeFalse)
				So(first.Result.Bundle.Leaderboard, ShouldHaveLength, 2)
			})

			Convey("And a fresh terminal result should still follow", func() {
				last := all[len(all)-1]
				So(last.Kind, ShouldEqual, app.KindResult)
				So(last.Result.FromCache, ShouldBeFalse)
				So(source.downloadCount(), ShouldEqual, 2)
			})
		})

		Convey("When the run's stats are requested after a load", func() {
			msgs, err := svc.Load(ctx, "7")
			So(err, ShouldBeNil)
			drain(msgs)
			stats := svc.GetStats()

			Convey("Then they should reflect the refresh", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats["runs_refreshed"], ShouldEqual, 1)
				So(stats, ShouldContainKey, "last_refresh")
				So(stats, ShouldContainKey, "snapshot_stored_at")
			})
		})
	})

	Convey("Given a service whose source is down but whose cache is warm", t, func() {
		source := &fakeSource{listErr: errors.New("upstream offline")}
		store := snapshot.NewMemoryStore()
		So(store.Put(ctx, "7", seededSnapshot(t)), ShouldBeNil)
		svc := app.New(app.WithSource(source), app.WithStore(store))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("When loading the run", func() {
			msgs, err := svc.Load(ctx, "7")
			So(err, ShouldBeNil)
			all := drain(msgs)

			Convey("Then the cached bundle should arrive first", func() {
				first := all[0]
				So(first.Result.FromCache, ShouldBeTrue)
				So(first.Result.Bundle.Leaderboard, ShouldHaveLength, 1)
			})

			Convey("And the terminal delivery should be the refresh failure", func() {
				last := all[len(all)-1]
				So(last.Kind, ShouldEqual, app.KindFailure)
				So(last.Err, ShouldNotBeNil)
			})

			Convey("And the previously cached snapshot should survive", func() {
				raw, ok, getErr := store.Get(ctx, "7")
				So(getErr, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(raw, ShouldResemble, seededSnapshot(t))
			})
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc := app.New(app.WithSource(&fakeSource{}))

		Convey("When loading a run", func() {
			_, err := svc.Load(ctx, "7")

			Convey("Then it should refuse with ErrNotStarted", func() {
				So(err, ShouldWrap, app.ErrNotStarted)
			})
		})
	})

	Convey("Given a service configured without a source", t, func() {
		svc := app.New()

		Convey("When starting it", func() {
			err := svc.Start(ctx)

			Convey("Then it should fail with ErrNoSource", func() {
				So(err, ShouldWrap, app.ErrNoSource)
			})
		})
	})
}

func TestService_SharedRefresh(t *testing.T) {
	ctx := context.Background()

	Convey("Given two concurrent loads for the same run", t, func() {
		gate := make(chan struct{})
		source := &fakeSource{payload: zipPayload(t, runPayload), gate: gate}
		svc := app.New(app.WithSource(source), app.WithStore(snapshot.NewMemoryStore()))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		msgsA, errA := svc.Load(ctx, "7")
		msgsB, errB := svc.Load(ctx, "7")
		So(errA, ShouldBeNil)
		So(errB, ShouldBeNil)

		// Give the second request time to join the in-flight refresh before
		// the download is released.
		time.Sleep(100 * time.Millisecond)
		close(gate)

		allA := drain(msgsA)
		allB := drain(msgsB)

		Convey("Then both requests should receive their own terminal result", func() {
			So(allA[len(allA)-1].Kind, ShouldEqual, app.KindResult)
			So(allB[len(allB)-1].Kind, ShouldEqual, app.KindResult)
			So(allA[len(allA)-1].Result.Bundle.Leaderboard, ShouldHaveLength, 2)
			So(allB[len(allB)-1].Result.Bundle.Leaderboard, ShouldHaveLength, 2)
		})

		Convey("And the download should have happened once", func() {
			So(source.downloadCount(), ShouldEqual, 1)
		})
	})
}

func TestService_ExportRows(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a warm cache and a dead source", t, func() {
		source := &fakeSource{listErr: errors.New("upstream offline")}
		store := snapshot.NewMemoryStore()
		So(store.Put(ctx, "7", seededSnapshot(t)), ShouldBeNil)
		svc := app.New(app.WithSource(source), app.WithStore(store))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("When exporting the cached run", func() {
			rows, err := svc.ExportRows(ctx, "7")

			Convey("Then the snapshot alone should feed the export", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 0) // seeded record has no events
				So(source.downloadCount(), ShouldEqual, 0)
			})
		})

		Convey("When exporting a run that was never cached", func() {
			_, err := svc.ExportRows(ctx, "8")

			Convey("Then the forced refresh failure should surface", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given a service with a working source and no cache", t, func() {
		source := &fakeSource{payload: zipPayload(t, runPayload)}
		svc := app.New(app.WithSource(source), app.WithStore(snapshot.NewMemoryStore()))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("When exporting the run", func() {
			rows, err := svc.ExportRows(ctx, "7")

			Convey("Then a full load should run and its events should flatten", func() {
				So(err, ShouldBeNil)
				So(source.downloadCount(), ShouldEqual, 1)
				So(rows, ShouldHaveLength, 2)
				So(rows[0].Contributor, ShouldEqual, "alice")
				So(rows[0].EventType, ShouldEqual, "task")
				So(rows[1].Contributor, ShouldEqual, "bob")
			})
		})
	})
}
