package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos/testutil"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
)

func TestContentRepoResolvesAndOrders(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	c := testutil.SeedCourse(t, ctx, db)
	m2 := testutil.SeedModule(t, ctx, db, c.ID, 2)
	m1 := testutil.SeedModule(t, ctx, db, c.ID, 1)
	l21 := testutil.SeedLesson(t, ctx, db, m2.ID, 1)
	l12 := testutil.SeedLesson(t, ctx, db, m1.ID, 2)
	l11 := testutil.SeedLesson(t, ctx, db, m1.ID, 1)
	testutil.SeedVideo(t, ctx, db, c.ID, 1)

	repo := NewContentRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	ref, err := repo.ResolveLesson(dbc, l12.ID)
	if err != nil || ref == nil {
		t.Fatalf("ResolveLesson: got=%+v err=%v", ref, err)
	}
	if ref.CourseID != c.ID || ref.ModuleID != m1.ID {
		t.Fatalf("ResolveLesson: want course=%s module=%s got=%+v", c.ID, m1.ID, ref)
	}
	if missing, err := repo.ResolveLesson(dbc, uuid.New()); err != nil || missing != nil {
		t.Fatalf("ResolveLesson (missing): got=%+v err=%v", missing, err)
	}

	n, err := repo.CountLessonsInCourse(dbc, c.ID)
	if err != nil || n != 3 {
		t.Fatalf("CountLessonsInCourse: want=3 got=%d err=%v", n, err)
	}

	lessons, err := repo.ListLessons(dbc, c.ID)
	if err != nil {
		t.Fatalf("ListLessons: %v", err)
	}
	want := []uuid.UUID{l11.ID, l12.ID, l21.ID}
	if len(lessons) != len(want) {
		t.Fatalf("ListLessons: want=%d got=%d", len(want), len(lessons))
	}
	for i := range want {
		if lessons[i].ID != want[i] {
			t.Fatalf("ListLessons[%d]: want=%s got=%s", i, want[i], lessons[i].ID)
		}
	}
	videos, err := repo.ListVideos(dbc, c.ID)
	if err != nil || len(videos) != 1 {
		t.Fatalf("ListVideos: want=1 got=%d err=%v", len(videos), err)
	}
}
