package runtime_test

import (
	"testing"

	"github.com/p-n-ai/course-player/internal/runtime"
)

func TestBridge_FindsNestedHost(t *testing.T) {
	tests := []struct {
		name        string
		depth       int
		maxDepth    int
		wantPreview bool
	}{
		{"same frame", 0, 10, false},
		{"three frames up", 3, 10, false},
		{"at the bound", 10, 10, false},
		{"past the bound", 11, 10, true},
		{"custom bound", 3, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := runtime.NewMemoryHost(nil)
			b := runtime.NewBridge(runtime.Options{Frame: runtime.Nest(host, tt.depth), MaxDepth: tt.maxDepth})

			got := b.Initialize()
			if got == tt.wantPreview {
				t.Errorf("Initialize() = %v, want %v", got, !tt.wantPreview)
			}
			if b.Preview() != tt.wantPreview {
				t.Errorf("Preview() = %v, want %v", b.Preview(), tt.wantPreview)
			}
		})
	}
}

func TestBridge_InitializeSetsIncomplete(t *testing.T) {
	host := runtime.NewMemoryHost(nil)
	b := runtime.NewBridge(runtime.Options{Frame: runtime.Nest(host, 1)})

	if !b.Initialize() {
		t.Fatal("Initialize() = false")
	}
	if got := host.Pending(runtime.ElementLessonStatus); got != "incomplete" {
		t.Errorf("lesson_status = %q, want incomplete", got)
	}
	if got := runtime.GetStatus(b); got != runtime.StatusIncomplete {
		t.Errorf("GetStatus() = %q", got)
	}
}

func TestBridge_NotInitialized(t *testing.T) {
	b := runtime.NewBridge(runtime.Options{Frame: runtime.Nest(runtime.NewMemoryHost(nil), 0)})

	if v := b.Read(runtime.ElementSuspendData); v != "" {
		t.Errorf("Read() = %q, want empty", v)
	}
	if b.LastError() != runtime.CodeNotInitialized {
		t.Errorf("LastError() = %q, want 301", b.LastError())
	}
	if b.Write(runtime.ElementSuspendData, "x") || b.Commit() || b.Terminate() {
		t.Error("calls before Initialize should fail")
	}
	if b.LastError().Err() != runtime.ErrNotInitialized {
		t.Errorf("Err() = %v", b.LastError().Err())
	}
}

func TestBridge_PreviewUsesPrefixedLocalKeys(t *testing.T) {
	local := runtime.NewMemoryLocalStore()
	b := runtime.NewBridge(runtime.Options{Local: local})

	if b.Initialize() {
		t.Fatal("Initialize() should report no host")
	}
	if !runtime.SetSuspendData(b, `{"a":1}`) {
		t.Fatal("SetSuspendData() = false in preview")
	}
	if got := local.Snapshot()["scorm_cmi.suspend_data"]; got != `{"a":1}` {
		t.Errorf("local value = %q", got)
	}
	if got := runtime.SuspendData(b); got != `{"a":1}` {
		t.Errorf("SuspendData() = %q", got)
	}
	if !b.Commit() || !b.Terminate() {
		t.Error("Commit/Terminate should succeed in preview")
	}
	if b.LastError() != runtime.CodeNoError {
		t.Errorf("LastError() = %q", b.LastError())
	}
}

func TestBridge_HostInitializeFailureFallsBack(t *testing.T) {
	host := runtime.NewMemoryHost(nil)
	host.FailInitialize = true
	b := runtime.NewBridge(runtime.Options{Frame: runtime.Nest(host, 0)})

	if b.Initialize() {
		t.Fatal("Initialize() should fail")
	}
	if !b.Preview() {
		t.Error("bridge should be in preview after host failure")
	}
	if !runtime.SetBookmark(b, "1:2") || runtime.Bookmark(b) != "1:2" {
		t.Error("preview writes should still work")
	}
}

func TestBridge_WriteFailureIsReported(t *testing.T) {
	host := runtime.NewMemoryHost(nil)
	b := runtime.NewBridge(runtime.Options{Frame: runtime.Nest(host, 0)})
	b.Initialize()

	if b.Write(runtime.ElementLessonStatus, "bogus") {
		t.Error("invalid status should be rejected")
	}
	if b.LastError() != runtime.CodeIncorrectDataType {
		t.Errorf("LastError() = %q, want 405", b.LastError())
	}

	host.FailWrites = true
	if runtime.SetBookmark(b, "0:1") {
		t.Error("write should fail")
	}
	if b.LastError() == runtime.CodeNoError {
		t.Error("LastError() should be set after a failed write")
	}
}

func TestBridge_TerminateIdempotent(t *testing.T) {
	host := runtime.NewMemoryHost(nil)
	b := runtime.NewBridge(runtime.Options{Frame: runtime.Nest(host, 0)})
	b.Initialize()
	runtime.SetBookmark(b, "0:3")

	if !b.Terminate() {
		t.Fatal("Terminate() = false")
	}
	if !b.Terminate() {
		t.Error("second Terminate() should succeed")
	}
	if !host.Finished() {
		t.Error("host not finished")
	}
	if host.Value(runtime.ElementLessonLocation) != "0:3" {
		t.Error("finish should commit pending values")
	}
	if b.Write(runtime.ElementLessonLocation, "1:0") {
		t.Error("write after terminate should fail")
	}
}

func TestFormatSessionTime(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0000:00:00.00"},
		{1500, "0000:00:01.50"},
		{(2*3600 + 5*60 + 9) * 1000, "0002:05:09.00"},
		{-10, "0000:00:00.00"},
	}
	for _, tt := range tests {
		d := msDuration(tt.ms)
		if got := runtime.FormatSessionTime(d); got != tt.want {
			t.Errorf("FormatSessionTime(%v) = %q, want %q", d, got, tt.want)
		}
	}
}
