package progress_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/p-n-ai/course-player/internal/progress"
)

func TestModuleSet(t *testing.T) {
	var ms progress.ModuleSet
	if !ms.Add(2) || !ms.Add(0) || ms.Add(2) {
		t.Error("Add() should report only new members")
	}
	if !reflect.DeepEqual(ms, progress.ModuleSet{0, 2}) {
		t.Errorf("set = %v", ms)
	}
	if !ms.Has(0) || ms.Has(1) {
		t.Error("Has() wrong")
	}

	out, _ := json.Marshal(ms)
	if string(out) != "[0,2]" {
		t.Errorf("Marshal() = %s", out)
	}
}

func TestBookmark(t *testing.T) {
	if got := progress.FormatBookmark(3, 7); got != "3:7" {
		t.Errorf("FormatBookmark() = %q", got)
	}

	tests := []struct {
		in            string
		module, slide int
		ok            bool
	}{
		{"", 0, 0, false},
		{"3:7", 3, 7, true},
		{"1:2:3", 1, 2, true},
		{"5", 5, 0, true},
		{"x:4", 0, 4, true},
		{" 2 : 1 ", 2, 1, true},
	}
	for _, tt := range tests {
		m, s, ok := progress.ParseBookmark(tt.in)
		if m != tt.module || s != tt.slide || ok != tt.ok {
			t.Errorf("ParseBookmark(%q) = %d, %d, %v, want %d, %d, %v", tt.in, m, s, ok, tt.module, tt.slide, tt.ok)
		}
	}
}

func TestState_Clone(t *testing.T) {
	st := progress.New(epoch)
	st.QuizAnswers["0-0"] = 1
	st.CompletedModules.Add(0)

	c := st.Clone()
	c.QuizAnswers["0-0"] = 2
	c.CompletedModules.Add(5)

	if st.QuizAnswers["0-0"] != 1 || st.CompletedModules.Has(5) {
		t.Error("Clone() shares storage with its source")
	}
}
