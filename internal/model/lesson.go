package model

// Lesson is a row of the `lessons` table and doubles as its API
// representation; timestamps are not exposed.
type Lesson struct {
    ID          uint64 `json:"id"`
    Title       string `json:"title"`
    Description string `json:"description"`
}

// LessonPatch carries the fields of a partial update.  Nil means
// "leave unchanged".
type LessonPatch struct {
    Title       *string
    Description *string
}

// Empty reports whether the patch changes nothing.
func (p LessonPatch) Empty() bool { return p.Title == nil && p.Description == nil }
