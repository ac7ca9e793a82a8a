package catalog

import (
	"sort"

	"github.com/google/uuid"
)

type ContentKind string

const (
	ContentLesson ContentKind = "lesson"
	ContentVideo  ContentKind = "video"
)

// ContentUnit is one playable item of a course, addressed by (CourseID, Position).
// Structured lessons and legacy videos both map onto it.
type ContentUnit struct {
	Kind            ContentKind `json:"kind"`
	ID              uuid.UUID   `json:"id"`
	CourseID        uuid.UUID   `json:"course_id"`
	ModuleID        uuid.UUID   `json:"module_id,omitempty"`
	Position        int         `json:"position"`
	Title           string      `json:"title"`
	DurationSeconds int         `json:"duration_seconds"`
}

// SequenceUnits orders a course's content: module lessons by (module position, lesson position),
// then legacy videos by their own position. Positions are reassigned 1..n.
// Lessons whose module is not in modules are dropped.
func SequenceUnits(courseID uuid.UUID, modules []*Module, lessons []*Lesson, videos []*Video) []ContentUnit {
	modulePos := make(map[uuid.UUID]int, len(modules))
	for _, m := range modules {
		if m != nil && m.CourseID == courseID {
			modulePos[m.ID] = m.Position
		}
	}

	ls := make([]*Lesson, 0, len(lessons))
	for _, l := range lessons {
		if l == nil {
			continue
		}
		if _, ok := modulePos[l.ModuleID]; ok {
			ls = append(ls, l)
		}
	}
	sort.SliceStable(ls, func(i, j int) bool {
		mi, mj := modulePos[ls[i].ModuleID], modulePos[ls[j].ModuleID]
		if mi != mj {
			return mi < mj
		}
		return ls[i].Position < ls[j].Position
	})

	vs := make([]*Video, 0, len(videos))
	for _, v := range videos {
		if v != nil && v.CourseID == courseID {
			vs = append(vs, v)
		}
	}
	sort.SliceStable(vs, func(i, j int) bool { return vs[i].Position < vs[j].Position })

	out := make([]ContentUnit, 0, len(ls)+len(vs))
	for _, l := range ls {
		out = append(out, ContentUnit{
			Kind:            ContentLesson,
			ID:              l.ID,
			CourseID:        courseID,
			ModuleID:        l.ModuleID,
			Position:        len(out) + 1,
			Title:           l.Title,
			DurationSeconds: l.DurationSeconds,
		})
	}
	for _, v := range vs {
		out = append(out, ContentUnit{
			Kind:            ContentVideo,
			ID:              v.ID,
			CourseID:        courseID,
			Position:        len(out) + 1,
			Title:           v.Title,
			DurationSeconds: v.DurationSeconds,
		})
	}
	return out
}
