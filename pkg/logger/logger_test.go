package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the logger package", t, func() {
		Convey("When initializing with defaults", func() {
			err := Init()

			Convey("Then a global logger is available", func() {
				So(err, ShouldBeNil)
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initializing with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat("json"), WithOutput(&buf)), ShouldBeNil)
		ctx := ContextWithRequestID(context.Background(), "req-42")

		Convey("When logging with fields", func() {
			Named("scorer").With(String("domain", "iot")).Info(ctx, "ranked",
				Int("candidates", 3),
				Duration("took", 2*time.Millisecond),
				Error(errors.New("boom")),
			)
			out := buf.String()

			Convey("Then fields, component and request id are present", func() {
				So(out, ShouldContainSubstring, `"msg":"ranked"`)
				So(out, ShouldContainSubstring, `"component":"scorer"`)
				So(out, ShouldContainSubstring, `"domain":"iot"`)
				So(out, ShouldContainSubstring, `"candidates":3`)
				So(out, ShouldContainSubstring, `"request_id":"req-42"`)
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When debug is below the configured level", func() {
			Get().Debug(ctx, "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the level is lowered to debug", func() {
			So(SetLevelString("DEBUG"), ShouldBeNil)
			Get().Debug(ctx, "visible")

			Convey("Then debug records are written", func() {
				So(strings.Contains(buf.String(), "visible"), ShouldBeTrue)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(Init(), ShouldBeNil)

		for _, lvl := range []string{"debug", "info", "", "warn", "warning", "error"} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
	})
}
