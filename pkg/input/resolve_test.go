package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupierce/coverage-report/pkg/coverage"
	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
	"github.com/jupierce/coverage-report/pkg/links"
	"github.com/jupierce/coverage-report/pkg/tree"
)

func ptr(s string) *string { return &s }

func records(paths ...string) []coverage.RawRecord {
	out := make([]coverage.RawRecord, len(paths))
	for i, p := range paths {
		out[i] = coverage.NewRawRecord(p)
	}
	return out
}

func TestDedupKeys(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       []string
	}{
		{
			name: "empty",
			want: []string{},
		},
		{
			name:       "unique keys stay bare",
			candidates: []string{"lib", "app"},
			want:       []string{"lib", "app"},
		},
		{
			name:       "colliding keys are numbered in input order",
			candidates: []string{"src", "lib", "src"},
			want:       []string{"src_1", "lib", "src_2"},
		},
		{
			name:       "empty key is always suffixed",
			candidates: []string{"", "lib"},
			want:       []string{"_1", "lib"},
		},
		{
			name:       "empty keys share a bucket",
			candidates: []string{"", "", "a"},
			want:       []string{"_1", "_2", "a"},
		},
		{
			name:       "generated key skips a bare key",
			candidates: []string{"src", "src_1", "src"},
			want:       []string{"src_2", "src_1", "src_3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupKeys(tt.candidates))
		})
	}
}

func TestDedupKeysIsDeterministic(t *testing.T) {
	candidates := []string{"a", "b", "a", "", "b", "c", "a"}
	first := DedupKeys(candidates)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, DedupKeys(candidates))
	}
	assert.Equal(t, []string{"a_1", "b_1", "a_2", "_1", "b_2", "c", "a_3"}, first)
}

func TestResolveInfersPrefixesAndKeys(t *testing.T) {
	resolved, err := Resolve([]Source{
		{Records: records("one/src/a.cpp", "one/src/b/c.cpp")},
		{Records: records("lib/x.cpp")},
		{Records: records("two/src/a.cpp")},
	})
	require.NoError(t, err)
	require.Len(t, resolved, 3)

	assert.Equal(t, []string{"one", "src"}, resolved[0].Spec.Prefix)
	assert.Equal(t, "src_1", resolved[0].Spec.Key)
	assert.Equal(t, []string{"lib"}, resolved[1].Spec.Prefix)
	assert.Equal(t, "lib", resolved[1].Spec.Key)
	assert.Equal(t, "src_2", resolved[2].Spec.Key)
	assert.Equal(t, "src", resolved[2].Spec.DisplayName())
}

func TestResolveExplicitPrefix(t *testing.T) {
	resolved, err := Resolve([]Source{
		{Prefix: ptr("my/very/long/path/"), Records: records("my/very/long/path/file.cpp")},
		{Prefix: ptr(""), Name: "Generated", Records: records("gen/a.cpp", "other/b.cpp")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"my", "very", "long", "path"}, resolved[0].Spec.Prefix)
	assert.Equal(t, "path", resolved[0].Spec.Key)
	assert.Empty(t, resolved[1].Spec.Prefix)
	assert.Equal(t, "Generated", resolved[1].Spec.Key, "falls back to the name")
	assert.Equal(t, "Generated", resolved[1].Spec.DisplayName())
}

func TestResolveEmptyPrefixWithoutName(t *testing.T) {
	resolved, err := Resolve([]Source{
		{Records: records("a.cpp", "b/c.cpp")},
		{Records: records("x/y.cpp", "z/w.cpp")},
	})
	require.NoError(t, err)
	assert.Equal(t, "_1", resolved[0].Spec.Key)
	assert.Equal(t, "_2", resolved[1].Spec.Key)
	assert.Equal(t, tree.DefaultName, resolved[0].Spec.DisplayName())
}

func TestResolvePrefixMismatch(t *testing.T) {
	_, err := Resolve([]Source{
		{Records: records("ok/a.cpp")},
		{Prefix: ptr("my/very/long/path/"), Records: records("my/very/long/path/a.cpp", "another/prefix/file.cpp")},
	})
	require.Error(t, err)
	assert.True(t, reporterrors.IsCategory(err, reporterrors.CategoryConfig))
	assert.Contains(t, err.Error(),
		"Some tested files do not start with the prefix 'my/very/long/path/'. For example, another/prefix/file.cpp")
}

func TestResolveSingle(t *testing.T) {
	in, err := ResolveSingle(Source{Records: records("project/src/a.cpp", "project/src/b/c.cpp")}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"project", "src"}, in.Spec.Prefix)
	assert.Empty(t, in.Spec.Key)
	assert.Equal(t, "src", in.Spec.DisplayName())

	in, err = ResolveSingle(Source{Records: records("a.cpp")}, "Nightly")
	require.NoError(t, err)
	assert.Equal(t, "Nightly", in.Spec.DisplayName())

	in, err = ResolveSingle(Source{Name: "Input", Records: records("a.cpp")}, "Nightly")
	require.NoError(t, err)
	assert.Equal(t, "Input", in.Spec.DisplayName())
}

func TestResolvedInputsBuildMultiReport(t *testing.T) {
	resolved, err := Resolve([]Source{
		{Records: records("p1/src/a.cpp")},
		{Records: records("p2/src/a.cpp")},
	})
	require.NoError(t, err)

	multi := tree.NewMultiReport("Merged")
	for _, in := range resolved {
		root, err := tree.NewBuilder(nil).Build(in)
		require.NoError(t, err)
		require.NoError(t, multi.AddRoot(root))
	}
	assert.Equal(t, "src_1/a.cpp", multi.Roots()[0].Files()[0].Path().String())
	assert.Equal(t, "src_2/a.cpp", multi.Roots()[1].Files()[0].Path().String())
}

func TestResolveParentDirectoryPrefix(t *testing.T) {
	resolved, err := Resolve([]Source{
		{Records: records("../a.c", "../b.c")},
		{Records: records("lib/x.c")},
		{Name: "Up", Records: records("../../sub/y.c")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{".."}, resolved[0].Spec.Prefix)
	assert.Equal(t, "_1", resolved[0].Spec.Key, "a '..' prefix falls back to the empty bucket")
	assert.Equal(t, "lib", resolved[1].Spec.Key)
	assert.Equal(t, "sub", resolved[2].Spec.Key)

	resolved, err = Resolve([]Source{
		{Name: "Parent", Records: records("../a.c")},
		{Records: records("lib/x.c")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Parent", resolved[0].Spec.Key, "a '..' prefix falls back to the name")

	multi := tree.NewMultiReport("Merged")
	for _, in := range resolved {
		root, err := tree.NewBuilder(nil).Build(in)
		require.NoError(t, err)
		require.NoError(t, multi.AddRoot(root))
	}
	f := multi.Roots()[0].Files()[0]
	assert.Equal(t, "Parent/a.c", f.Path().String())

	crumbs, err := links.NewComputer("").Breadcrumbs(multi, f)
	require.NoError(t, err)
	assert.Equal(t, []links.Link{{Href: "../index.html", Label: "Merged"}, {Href: "index.html", Label: "Parent"}}, crumbs)
}
