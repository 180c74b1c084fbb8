package snapshot_test

import (
	"context"
	"os"
	"testing"

	"github.com/okian/xpboard/internal/adapters/snapshot"
	"github.com/okian/xpboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestBadgerStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an on-disk store in a fresh directory", t, func() {
		store, err := snapshot.NewBadgerStore(t.TempDir())
		So(err, ShouldBeNil)
		Reset(func() { _ = store.Close() })

		Convey("When reading a run that was never stored", func() {
			data, ok, getErr := store.Get(ctx, "7")

			Convey("Then it should report absence without error", func() {
				So(getErr, ShouldBeNil)
				So(ok, ShouldBeFalse)
				So(data, ShouldBeNil)
			})
		})

		Convey("When storing and reading back a snapshot", func() {
			So(store.Put(ctx, "7", []byte(`{"org/repo":{}}`)), ShouldBeNil)
			data, ok, getErr := store.Get(ctx, "7")

			Convey("Then the bytes should round-trip", func() {
				So(getErr, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(string(data), ShouldEqual, `{"org/repo":{}}`)
			})

			Convey("And the write time should be retrievable", func() {
				ts, found, ageErr := store.StoredAt(ctx, "7")
				So(ageErr, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(ts.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When overwriting an existing snapshot", func() {
			So(store.Put(ctx, "7", []byte(`old`)), ShouldBeNil)
			So(store.Put(ctx, "7", []byte(`new`)), ShouldBeNil)
			data, ok, getErr := store.Get(ctx, "7")

			Convey("Then only the replacement should remain", func() {
				So(getErr, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(string(data), ShouldEqual, `new`)
			})
		})

		Convey("When asking for the write time of an unknown run", func() {
			_, found, ageErr := store.StoredAt(ctx, "missing")

			Convey("Then it should report absence without error", func() {
				So(ageErr, ShouldBeNil)
				So(found, ShouldBeFalse)
			})
		})
	})

	Convey("Given snapshots written before a restart", t, func() {
		dir := t.TempDir()
		store, err := snapshot.NewBadgerStore(dir)
		So(err, ShouldBeNil)
		So(store.Put(ctx, "7", []byte(`persisted`)), ShouldBeNil)
		So(store.Close(), ShouldBeNil)

		Convey("When reopening the same directory", func() {
			reopened, reopenErr := snapshot.NewBadgerStore(dir)
			So(reopenErr, ShouldBeNil)
			Reset(func() { _ = reopened.Close() })

			data, ok, getErr := reopened.Get(ctx, "7")

			Convey("Then the snapshot should survive", func() {
				So(getErr, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(string(data), ShouldEqual, `persisted`)
			})
		})
	})
}
