package outcome

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectStructuredResult(t *testing.T) {
	v, ok := DetectStructuredResult("Compile: Success\nResult: Pass\n")
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = DetectStructuredResult("Result: Fail")
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = DetectStructuredResult("no structured line here")
	assert.False(t, ok)
}

func TestIsCompileSuccessText(t *testing.T) {
	cases := []string{
		`compilation successful`,
		`Compilation: Success`,
		`Compilation: **SUCCESS**`,
		`✅ compilation`,
		`✅ Success`,
		`{"success":true,"message":"ok"}`,
		`{"success": true}`,
		`success: true`,
		`returning success: true`,
	}
	for _, c := range cases {
		assert.True(t, IsCompileSuccessText(c), c)
	}
	assert.False(t, IsCompileSuccessText("nothing relevant here"))
}

func TestIsTestSuccessText(t *testing.T) {
	cases := []string{
		"All tests passed",
		"7 tests passed",
		"3/3 passed",
		"all 12 verification tests passed",
		"all 12 tests passed",
		"Task completed successfully",
		"The task is now complete",
		"ran successfully (0 failures)",
	}
	for _, c := range cases {
		assert.True(t, IsTestSuccessText(c), c)
	}
	assert.False(t, IsTestSuccessText("4/7 passed"))
}

func TestTestStats(t *testing.T) {
	p, total, ok := TestStats("Compile: Success\n3/7 passed\nResult: Fail")
	assert.True(t, ok)
	assert.Equal(t, 3, p)
	assert.Equal(t, 7, total)

	_, _, ok = TestStats("no stats here")
	assert.False(t, ok)
}
