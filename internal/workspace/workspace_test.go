package workspace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Setup project structure", "setup-project-structure"},
		{"punctuation", "Add User's Auth & Login!!", "add-user-s-auth-login"},
		{"alreadyHyphenated", "foo-bar-baz", "foo-bar-baz"},
		{"leadingTrailingJunk", "  ---weird??task---  ", "weird-task"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Slug(c.in))
		})
	}
}

func TestSlugTruncatesTo50NoTrailingHyphen(t *testing.T) {
	in := strings.Repeat("a", 200)
	got := Slug(in)
	assert.Len(t, got, 50)
	assert.False(t, strings.HasSuffix(got, "-"))
}

func TestSlugTruncationDropsTrailingHyphen(t *testing.T) {
	// 49 letters + a hyphen that would land exactly at position 50.
	in := strings.Repeat("a", 49) + "-" + strings.Repeat("b", 10)
	got := Slug(in)
	assert.False(t, strings.HasSuffix(got, "-"))
	assert.LessOrEqual(t, len(got), 50)
}

func TestBranchName(t *testing.T) {
	assert.Equal(t, "impl-003-feature-x-session-2", BranchName("003-feature-x", 2))
}

func TestIntegrationBranch(t *testing.T) {
	assert.Equal(t, "impl-003-feature-x-integrated", IntegrationBranch("003-feature-x"))
}

func TestParsePorcelain(t *testing.T) {
	output := "worktree /repo\n" +
		"HEAD abc123\n" +
		"branch refs/heads/main\n" +
		"\n" +
		"worktree /repo/.worktrees-003/session-0-setup\n" +
		"HEAD def456\n" +
		"branch refs/heads/impl-003-session-0\n" +
		"\n"

	got := parsePorcelain(output)
	assert.Len(t, got, 2)
	assert.Equal(t, "/repo", got[0].Path)
	assert.Equal(t, "main", got[0].Branch)
	assert.Equal(t, "/repo/.worktrees-003/session-0-setup", got[1].Path)
	assert.Equal(t, "impl-003-session-0", got[1].Branch)
	assert.Equal(t, "def456", got[1].Commit)
}
