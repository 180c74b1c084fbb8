package artifact_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/xpboard/internal/adapters/artifact"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClient_List(t *testing.T) {
	ctx := context.Background()

	Convey("Given a source serving an artifact listing", t, func() {
		var gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.EscapedPath()
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"name":"run.zip","url":"http://example.com/run.zip","size":128}]`))
		}))
		defer srv.Close()
		client := artifact.New(srv.URL)

		Convey("When listing a run's artifacts", func() {
			artifacts, err := client.List(ctx, "7")

			Convey("Then it should hit the run-scoped endpoint and decode the list", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldEqual, "/runs/7/artifacts")
				So(artifacts, ShouldHaveLength, 1)
				So(artifacts[0].Name, ShouldEqual, "run.zip")
				So(artifacts[0].Size, ShouldEqual, 128)
			})
		})

		Convey("When the run identifier needs escaping", func() {
			_, err := client.List(ctx, "a/b")

			Convey("Then the path segment should be escaped", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldEqual, "/runs/a%2Fb/artifacts")
			})
		})
	})

	Convey("Given a source returning an error status", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer srv.Close()
		client := artifact.New(srv.URL)

		Convey("When listing artifacts", func() {
			_, err := client.List(ctx, "7")

			Convey("Then it should fail with ErrFetchFailed", func() {
				So(err, ShouldWrap, artifact.ErrFetchFailed)
			})
		})
	})

	Convey("Given an unreachable source", t, func() {
		client := artifact.New("http://127.0.0.1:1")

		Convey("When listing artifacts", func() {
			_, err := client.List(ctx, "7")

			Convey("Then the transport error should wrap ErrFetchFailed", func() {
				So(err, ShouldWrap, artifact.ErrFetchFailed)
			})
		})
	})
}

func TestClient_Download(t *testing.T) {
	ctx := context.Background()

	Convey("Given a source serving artifact bytes", t, func() {
		payload := strings.Repeat("x", 200*1024)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(payload))
		}))
		defer srv.Close()
		client := artifact.New(srv.URL)

		Convey("When downloading with a progress callback", func() {
			var percents []float64
			data, err := client.Download(ctx, srv.URL+"/run.zip", func(p float64) {
				percents = append(percents, p)
			})

			Convey("Then the full payload should come back", func() {
				So(err, ShouldBeNil)
				So(len(data), ShouldEqual, len(payload))
			})

			Convey("And progress should be non-decreasing up to 100", func() {
				So(len(percents), ShouldBeGreaterThan, 0)
				for i := 1; i < len(percents); i++ {
					So(percents[i], ShouldBeGreaterThanOrEqualTo, percents[i-1])
				}
				So(percents[len(percents)-1], ShouldEqual, 100)
			})
		})

		Convey("When downloading without a callback", func() {
			data, err := client.Download(ctx, srv.URL+"/run.zip", nil)

			Convey("Then it should still return the bytes", func() {
				So(err, ShouldBeNil)
				So(len(data), ShouldEqual, len(payload))
			})
		})
	})

	Convey("Given a source returning an error status", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()
		client := artifact.New(srv.URL)

		Convey("When downloading", func() {
			_, err := client.Download(ctx, srv.URL+"/run.zip", nil)

			Convey("Then it should fail with ErrFetchFailed", func() {
				So(err, ShouldWrap, artifact.ErrFetchFailed)
			})
		})
	})
}
