package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runShellInput(t *testing.T, db string, input string, args ...string) string {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(append([]string{"--db", db, "shell"}, args...))
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestShellBrowse(t *testing.T) {
	db, _ := seeded(t, 30)

	out := runShellInput(t, db, "status\ncategory Tops\nitems\nstatus\nmore\nquit\n")

	assert.Contains(t, out, "pages: 1, items: 20, exhausted: false")
	assert.Contains(t, out, "filter: search=\"\" category=Tops")
	assert.Contains(t, out, "pages: 1, items: 5, exhausted: true")
	assert.Contains(t, out, "You've reached the end!")
	assert.Contains(t, out, "nothing to fetch")
}

func TestShellSearchIsDebounced(t *testing.T) {
	t.Setenv("REELFEED_FEED_DEBOUNCE", "20ms")
	db, _ := seeded(t, 30)

	out := runShellInput(t, db, "search no such thing\nitems\nmin abc\nstatus\n")

	assert.Contains(t, out, "No listings match.")
	assert.Contains(t, out, `filter: search="no such thing" category=All`)
	assert.NotContains(t, out, "min=", "invalid price text means no bound")
}

func TestShellLike(t *testing.T) {
	db, ids := seeded(t, 2)

	out := runShellInput(t, db, "like "+ids[0]+"\nlike\nbogus\n", "--user", "buyer-1")
	assert.NotContains(t, out, "error:")
	assert.Contains(t, out, "usage: like <id>")
	assert.Contains(t, out, `unknown command "bogus"`)

	out = runShellInput(t, db, "items\n", "--user", "buyer-1")
	assert.Contains(t, out, "♥ 1 like")

	out = runShellInput(t, db, "like "+ids[0]+"\n")
	assert.Contains(t, out, "error: UNAUTHORIZED")
}
