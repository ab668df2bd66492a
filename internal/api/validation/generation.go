package validation

import (
	"github.com/google/uuid"

	"github.com/bandhub/bandhub/internal/collectible"
	"github.com/bandhub/bandhub/internal/course"
)

var courseLevels = []string{course.LevelBeginner, course.LevelIntermediate, course.LevelAdvanced}

// ValidateGenerateCollectible validates a collectible generation request.
func ValidateGenerateCollectible(theme, style string, bandID *string) []FieldError {
	var errs fieldErrors

	errs.text("theme", theme, true, 200)
	errs.text("style", style, false, 100)
	optionalUUID(&errs, "bandId", bandID)

	return errs
}

// CollectibleRequest mirrors the fields of a collectible being saved.
type CollectibleRequest struct {
	Name        string
	Description string
	Rarity      string
	ImagePrompt string
	Attributes  map[string]string
	BandID      *string
}

// ValidateSaveCollectible validates a collectible draft before it is saved.
func ValidateSaveCollectible(req CollectibleRequest) []FieldError {
	var errs fieldErrors

	errs.text("name", req.Name, true, 100)
	errs.text("description", req.Description, false, 1000)
	if !collectible.IsValidRarity(req.Rarity) {
		errs.oneOf("rarity", req.Rarity, collectible.Rarities)
	}
	errs.text("imagePrompt", req.ImagePrompt, false, 1000)
	if len(req.Attributes) > 20 {
		errs.add("attributes", "attributes must contain at most 20 entries")
	}
	optionalUUID(&errs, "bandId", req.BandID)

	return errs
}

// ValidateGenerateCourse validates a course generation request.
func ValidateGenerateCourse(topic, level string, lessons int) []FieldError {
	var errs fieldErrors

	errs.text("topic", topic, true, 200)
	errs.oneOf("level", level, courseLevels)
	if lessons < 3 || lessons > 12 {
		errs.add("lessons", "lessons must be between 3 and 12")
	}

	return errs
}

// CourseRequest mirrors the fields of a course being saved.
type CourseRequest struct {
	Title   string
	Topic   string
	Level   string
	Summary string
	Modules []course.Module
}

// ValidateSaveCourse validates a course draft before it is saved.
func ValidateSaveCourse(req CourseRequest) []FieldError {
	var errs fieldErrors

	errs.text("title", req.Title, true, 200)
	errs.text("topic", req.Topic, true, 200)
	errs.oneOf("level", req.Level, courseLevels)
	errs.text("summary", req.Summary, false, 2000)

	switch n := course.LessonCount(req.Modules); {
	case len(req.Modules) == 0 || n == 0:
		errs.add("modules", "modules must contain at least one lesson")
	case len(req.Modules) > 20 || n > 60:
		errs.add("modules", "modules must contain at most 20 modules and 60 lessons")
	}
	for _, m := range req.Modules {
		for _, l := range m.Lessons {
			if l.Title == "" {
				errs.add("modules", "every lesson needs a title")
				return errs
			}
		}
	}

	return errs
}

// ValidateUpdateCourse validates only non-nil fields on a course update.
func ValidateUpdateCourse(title, summary *string) []FieldError {
	var errs fieldErrors
	errs.optionalText("title", title, true, 200)
	errs.optionalText("summary", summary, false, 2000)
	return errs
}

func optionalUUID(errs *fieldErrors, field string, value *string) {
	if value == nil || *value == "" {
		return
	}
	if _, err := uuid.Parse(*value); err != nil {
		errs.add(field, "%s must be a valid UUID", field)
	}
}
