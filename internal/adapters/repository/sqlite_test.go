package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSQLiteStore(t *testing.T) {
	Convey("Given a fresh database file", t, func() {
		now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
		path := filepath.Join(t.TempDir(), "calmate.db")
		ctx := context.Background()

		s, err := Open(ctx, path, WithClock(func() time.Time { return now }), WithBusyTimeout(time.Second))
		So(err, ShouldBeNil)
		defer s.Close()

		Convey("Then every migration is applied", func() {
			v, err := s.Version(ctx)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, len(migrations))
		})

		Convey("When reopening the same file", func() {
			So(s.SaveCredential(ctx, model.Credential{UserID: "u1", AccessToken: "a"}), ShouldBeNil)
			So(s.Close(), ShouldBeNil)

			again, err := Open(ctx, path)
			So(err, ShouldBeNil)
			defer again.Close()

			Convey("Then data survives and migrations are not rerun", func() {
				c, err := again.Credential(ctx, "u1")
				So(err, ShouldBeNil)
				So(c.AccessToken, ShouldEqual, "a")
				v, _ := again.Version(ctx)
				So(v, ShouldEqual, len(migrations))
			})
		})

		Convey("When a session is stored", func() {
			So(s.PutSession(ctx, model.Session{Token: "tok", UserID: "u1", ExpiresAt: now.Add(time.Hour)}), ShouldBeNil)

			Convey("Then it resolves to its user", func() {
				sess, err := s.ResolveSession(ctx, "tok")
				So(err, ShouldBeNil)
				So(sess.UserID, ShouldEqual, "u1")
				So(sess.ExpiresAt, ShouldEqual, now.Add(time.Hour))
			})

			Convey("Then it stops resolving once expired", func() {
				now = now.Add(2 * time.Hour)
				_, err := s.ResolveSession(ctx, "tok")
				So(errors.Is(err, apperr.ErrUnauthorized), ShouldBeTrue)
				So(errors.Is(err, ErrSessionExpired), ShouldBeTrue)

				n, err := s.PurgeExpiredSessions(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})

			Convey("Then deleting it revokes it", func() {
				So(s.DeleteSession(ctx, "tok"), ShouldBeNil)
				_, err := s.ResolveSession(ctx, "tok")
				So(errors.Is(err, ErrSessionNotFound), ShouldBeTrue)
			})
		})

		Convey("When a session never expires", func() {
			So(s.PutSession(ctx, model.Session{Token: "forever", UserID: "u2"}), ShouldBeNil)
			now = now.Add(24 * 365 * time.Hour)
			sess, err := s.ResolveSession(ctx, "forever")
			So(err, ShouldBeNil)
			So(sess.ExpiresAt.IsZero(), ShouldBeTrue)
		})

		Convey("When an unknown token is resolved", func() {
			_, err := s.ResolveSession(ctx, "nope")
			So(errors.Is(err, apperr.ErrUnauthorized), ShouldBeTrue)
		})

		Convey("When credentials are saved twice", func() {
			exp := now.Add(time.Hour)
			So(s.SaveCredential(ctx, model.Credential{UserID: "u1", AccessToken: "a1", RefreshToken: "r1", ExpiresAt: exp, Scope: model.CalendarScope}), ShouldBeNil)
			So(s.SaveCredential(ctx, model.Credential{UserID: "u1", AccessToken: "a2", RefreshToken: "r1", ExpiresAt: exp.Add(time.Hour)}), ShouldBeNil)

			Convey("Then the latest values win", func() {
				c, err := s.Credential(ctx, "u1")
				So(err, ShouldBeNil)
				So(c.AccessToken, ShouldEqual, "a2")
				So(c.RefreshToken, ShouldEqual, "r1")
				So(c.ProviderID, ShouldEqual, model.GoogleProvider)
				So(c.ExpiresAt, ShouldEqual, exp.Add(time.Hour))
			})
		})

		Convey("When no account is linked", func() {
			_, err := s.Credential(ctx, "ghost")
			So(errors.Is(err, apperr.ErrNotFound), ShouldBeTrue)
			So(errors.Is(err, ErrNoAccount), ShouldBeTrue)
		})

		Convey("When required fields are missing", func() {
			So(errors.Is(s.PutSession(ctx, model.Session{Token: "t"}), apperr.ErrInvalidArguments), ShouldBeTrue)
			So(errors.Is(s.SaveCredential(ctx, model.Credential{}), apperr.ErrInvalidArguments), ShouldBeTrue)
		})

		Convey("When the store is closed", func() {
			So(s.Close(), ShouldBeNil)
			So(s.Close(), ShouldBeNil)
			_, err := s.Credential(ctx, "u1")
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
		})
	})
}
