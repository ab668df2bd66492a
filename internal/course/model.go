package course

import (
	"time"

	"github.com/google/uuid"
)

// Course levels.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Lesson is a single unit of course content.
type Lesson struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Module groups lessons. Modules are stored as JSONB on the course row.
type Module struct {
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

// Course represents a row in the courses table.
type Course struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Title     string
	Topic     string
	Level     string
	Summary   string
	Modules   []Module
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpdateFields holds user-editable course fields. Nil fields are not updated.
type UpdateFields struct {
	Title     *string
	Summary   *string
	Published *bool
}

// Draft is a generated course that has not been saved yet.
type Draft struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Modules []Module `json:"modules"`
}

// LessonCount returns the total number of lessons across modules.
func LessonCount(modules []Module) int {
	n := 0
	for _, m := range modules {
		n += len(m.Lessons)
	}
	return n
}
