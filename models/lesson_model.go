package models

import "strings"

type LessonKind string

const (
	LessonTrial    LessonKind = "TRIAL"
	LessonStandard LessonKind = "STANDARD"
)

func ParseLessonKind(s string) (LessonKind, bool) {
	switch k := LessonKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case LessonTrial, LessonStandard:
		return k, true
	}
	return "", false
}

func (k LessonKind) DurationMinutes() int {
	if k == LessonTrial {
		return 30
	}
	return 60
}

type Quote struct {
	InstructorID    string     `json:"instructor_id"`
	LessonKind      LessonKind `json:"lesson_kind"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency"`
	DurationMinutes int        `json:"duration_minutes"`
}
