package runtime

import (
	"fmt"
	"strconv"
	"time"
)

// SetStatus writes cmi.core.lesson_status.
func SetStatus(rt Runtime, s Status) bool {
	return rt.Write(ElementLessonStatus, string(s))
}

// GetStatus reads cmi.core.lesson_status.
func GetStatus(rt Runtime) Status {
	return Status(rt.Read(ElementLessonStatus))
}

// SetScore writes the raw score with the 0..100 range and commits.
func SetScore(rt Runtime, raw int) bool {
	return SetScoreRange(rt, raw, 100, 0)
}

// SetScoreRange writes raw, max and min, then commits. Every write is
// attempted even if an earlier one fails.
func SetScoreRange(rt Runtime, raw, max, min int) bool {
	ok := rt.Write(ElementScoreRaw, strconv.Itoa(raw))
	ok = rt.Write(ElementScoreMax, strconv.Itoa(max)) && ok
	ok = rt.Write(ElementScoreMin, strconv.Itoa(min)) && ok
	return rt.Commit() && ok
}

// SetBookmark writes cmi.core.lesson_location.
func SetBookmark(rt Runtime, location string) bool {
	return rt.Write(ElementLessonLocation, location)
}

// Bookmark reads cmi.core.lesson_location.
func Bookmark(rt Runtime) string {
	return rt.Read(ElementLessonLocation)
}

// SetSuspendData writes cmi.suspend_data.
func SetSuspendData(rt Runtime, data string) bool {
	return rt.Write(ElementSuspendData, data)
}

// SuspendData reads cmi.suspend_data.
func SuspendData(rt Runtime) string {
	return rt.Read(ElementSuspendData)
}

// SetSessionTime writes cmi.core.session_time for the current launch.
func SetSessionTime(rt Runtime, d time.Duration) bool {
	return rt.Write(ElementSessionTime, FormatSessionTime(d))
}

// FormatSessionTime renders d as the CMITimespan HHHH:MM:SS.SS.
func FormatSessionTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	cs := d.Milliseconds() / 10
	h := cs / 360000
	cs -= h * 360000
	m := cs / 6000
	cs -= m * 6000
	s := cs / 100
	cs -= s * 100
	return fmt.Sprintf("%04d:%02d:%02d.%02d", h, m, s, cs)
}
