package snapshot_test

import (
	"context"
	"testing"

	"github.com/okian/xpboard/internal/adapters/snapshot"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty in-memory store", t, func() {
		store := snapshot.NewMemoryStore()

		Convey("When reading a run that was never stored", func() {
			data, ok, err := store.Get(ctx, "7")

			Convey("Then it should report absence without error", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				So(data, ShouldBeNil)
			})
		})

		Convey("When storing and reading back a snapshot", func() {
			So(store.Put(ctx, "7", []byte(`{"org/repo":{}}`)), ShouldBeNil)
			data, ok, err := store.Get(ctx, "7")

			Convey("Then the bytes should round-trip", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(string(data), ShouldEqual, `{"org/repo":{}}`)
			})

			Convey("And the write time should be recorded", func() {
				ts, found, ageErr := store.StoredAt(ctx, "7")
				So(ageErr, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(ts.IsZero(), ShouldBeFalse)
			})

			Convey("And mutating the returned slice should not affect the store", func() {
				data[0] = 'X'
				again, _, _ := store.Get(ctx, "7")
				So(string(again), ShouldEqual, `{"org/repo":{}}`)
			})
		})

		Convey("When overwriting an existing snapshot", func() {
			So(store.Put(ctx, "7", []byte(`old`)), ShouldBeNil)
			So(store.Put(ctx, "7", []byte(`new`)), ShouldBeNil)
			data, ok, err := store.Get(ctx, "7")

			Convey("Then only the replacement should remain", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(string(data), ShouldEqual, `new`)
			})
		})

		Convey("When the store is closed", func() {
			So(store.Close(), ShouldBeNil)

			Convey("Then every operation should fail with ErrStoreClosed", func() {
				_, _, getErr := store.Get(ctx, "7")
				So(getErr, ShouldWrap, snapshot.ErrStoreClosed)
				So(store.Put(ctx, "7", nil), ShouldWrap, snapshot.ErrStoreClosed)
				_, _, ageErr := store.StoredAt(ctx, "7")
				So(ageErr, ShouldWrap, snapshot.ErrStoreClosed)
			})
		})
	})
}
