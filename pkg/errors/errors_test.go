package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  Config("missing output"),
			want: "config: missing output",
		},
		{
			name: "with cause",
			err:  Wrap(fmt.Errorf("no such file"), CategoryInput, "read %s", "lcov.info"),
			want: "input: read lcov.info: no such file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestPrefixMismatchNamesPathAndPrefix(t *testing.T) {
	err := PrefixMismatch("my/very/long/path/", "another/prefix/file.cpp")

	assert.Equal(t, "my/very/long/path/", err.Prefix)
	assert.Equal(t, "another/prefix/file.cpp", err.Path)
	assert.Contains(t, err.Error(),
		"Some tested files do not start with the prefix 'my/very/long/path/'. For example, another/prefix/file.cpp")
}

func TestIsCategorySeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("build root: %w", Invariant("broken"))

	assert.True(t, IsCategory(err, CategoryInvariant))
	assert.False(t, IsCategory(err, CategoryConfig))
	assert.False(t, IsCategory(fmt.Errorf("plain"), CategoryConfig))
	assert.Equal(t, Category(""), CategoryOf(fmt.Errorf("plain")))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: nil, want: 0},
		{err: fmt.Errorf("plain"), want: 1},
		{err: Input("bad"), want: 2},
		{err: Config("bad"), want: 7},
		{err: Invariant("bad"), want: 10},
		{err: New(CategoryFileSystem, "bad"), want: 11},
		{err: fmt.Errorf("wrapped: %w", New(CategoryStorage, "bad")), want: 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}
