package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reelfeed/internal/model"
)

// quietEnv isolates a test from the caller's REELFEED_* environment and
// silences logging.
func quietEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REELFEED_CONFIG", "")
	t.Setenv("REELFEED_LOG_LEVEL", "disabled")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	return resp.Data
}

// seeded returns a database with n synthetic listings and their ids,
// oldest first.
func seeded(t *testing.T, n int) (string, []string) {
	t.Helper()
	quietEnv(t)
	db := filepath.Join(t.TempDir(), "feed.db")
	out, err := execute(t, "--db", db, "--format", "json", "seed", "--generate", strconv.Itoa(n))
	require.NoError(t, err, out)
	res := decode[SeedResult](t, out)
	require.Len(t, res.IDs, n)
	return db, res.IDs
}

func TestSeedText(t *testing.T) {
	quietEnv(t)
	db := filepath.Join(t.TempDir(), "feed.db")
	out, err := execute(t, "--db", db, "seed", "--generate", "5")
	require.NoError(t, err)
	assert.Equal(t, "Seeded 5 listings from 3 sellers.\n", out)
}

func TestSeedRequiresSource(t *testing.T) {
	quietEnv(t)
	_, err := execute(t, "--db", filepath.Join(t.TempDir(), "feed.db"), "seed")
	require.Error(t, err)
}

func TestSeedFromCatalog(t *testing.T) {
	quietEnv(t)
	db := filepath.Join(t.TempDir(), "feed.db")
	out, err := execute(t, "--db", db, "seed", "--catalog", filepath.Join("..", "catalog", "testdata", "valid"))
	require.NoError(t, err, out)
	assert.Equal(t, "Seeded 2 listings from 2 sellers.\n", out)

	out, err = execute(t, "--db", db, "browse", "--category", "Outerwear")
	require.NoError(t, err)
	assert.Contains(t, out, "Denim jacket")
	assert.Contains(t, out, "€25.00")
	assert.NotContains(t, out, "Linen shirt")
}

func TestSeedInvalidCatalog(t *testing.T) {
	quietEnv(t)
	_, err := execute(t, "--db", filepath.Join(t.TempDir(), "feed.db"),
		"seed", "--catalog", filepath.Join("..", "catalog", "testdata", "invalid"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBrowsePages(t *testing.T) {
	db, ids := seeded(t, 30)

	out, err := execute(t, "--db", db, "--format", "json", "browse")
	require.NoError(t, err)
	first := decode[BrowseResult](t, out)
	assert.Equal(t, 1, first.Pages)
	assert.Len(t, first.Items, model.DefaultPageSize)
	assert.False(t, first.Exhausted)
	assert.Equal(t, ids[len(ids)-1], first.Items[0].ID, "newest first")

	out, err = execute(t, "--db", db, "--format", "json", "browse", "--pages", "5")
	require.NoError(t, err)
	all := decode[BrowseResult](t, out)
	assert.Equal(t, 2, all.Pages, "stops at the last page")
	assert.Len(t, all.Items, 30)
	assert.True(t, all.Exhausted)
	assert.Equal(t, "You've reached the end!", all.Indicator)
}

func TestBrowseFilters(t *testing.T) {
	db, _ := seeded(t, 30)

	out, err := execute(t, "--db", db, "--format", "json", "browse", "--category", "Tops", "--pages", "3")
	require.NoError(t, err)
	res := decode[BrowseResult](t, out)
	require.Len(t, res.Items, 5)
	for _, it := range res.Items {
		assert.Equal(t, "Tops", it.Category)
	}
	assert.Equal(t, "Tops", res.Filter.Category)

	out, err = execute(t, "--db", db, "--format", "json", "browse", "--min", "50", "--max", "100", "--pages", "3")
	require.NoError(t, err)
	res = decode[BrowseResult](t, out)
	for _, it := range res.Items {
		assert.GreaterOrEqual(t, it.PriceCents, int64(5000))
		assert.LessOrEqual(t, it.PriceCents, int64(10000))
	}

	out, err = execute(t, "--db", db, "browse", "--search", "no such thing")
	require.NoError(t, err)
	assert.Contains(t, out, "No listings match.")
}

func TestBrowseMetrics(t *testing.T) {
	db, _ := seeded(t, 3)

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--db", db, "browse", "--metrics"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "reelfeed_filter_emissions_total")
}

func TestLikeToggle(t *testing.T) {
	db, ids := seeded(t, 3)
	id := ids[0]

	out, err := execute(t, "--db", db, "like", id, "--user", "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, "Liked "+id+" (1 like)\n", out)

	out, err = execute(t, "--db", db, "--format", "json", "like", id, "--user", "buyer-2")
	require.NoError(t, err)
	res := decode[LikeResult](t, out)
	assert.Equal(t, int64(1), res.Before.TotalCount)
	assert.False(t, res.Before.LikedByCurrentUser)
	assert.Equal(t, int64(2), res.After.TotalCount)

	out, err = execute(t, "--db", db, "like", id, "--user", "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, "Unliked "+id+" (1 like)\n", out)

	out, err = execute(t, "--db", db, "--format", "json", "browse", "--user", "buyer-2")
	require.NoError(t, err)
	for _, it := range decode[BrowseResult](t, out).Items {
		if it.ID == id {
			assert.True(t, it.Likes.LikedByCurrentUser)
			assert.Equal(t, int64(1), it.Likes.TotalCount)
		}
	}
}

func TestLikeRequiresUser(t *testing.T) {
	db, ids := seeded(t, 1)

	out, err := execute(t, "--db", db, "like", ids[0])
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [UNAUTHORIZED]")
}

func TestLikeUnknownListing(t *testing.T) {
	db, _ := seeded(t, 1)

	out, err := execute(t, "--db", db, "like", "missing", "--user", "buyer-1")
	require.Error(t, err)
	assert.Contains(t, out, "Error [NOT_FOUND]")
}

func TestDetail(t *testing.T) {
	db, ids := seeded(t, 2)

	out, err := execute(t, "--db", db, "--format", "json", "detail", ids[1])
	require.NoError(t, err)
	res := decode[DetailResult](t, out)
	assert.Equal(t, ids[1], res.ID)
	assert.Equal(t, "seller-2", res.SellerID)
	assert.Equal(t, int64(0), res.Likes.TotalCount)

	out, err = execute(t, "--db", db, "--format", "json", "detail", "missing")
	require.Error(t, err)
	assert.Contains(t, out, `"NOT_FOUND"`)
}

func TestCheckoutAndComplete(t *testing.T) {
	db, ids := seeded(t, 2)
	id := ids[0]

	out, err := execute(t, "--db", db, "--format", "json", "checkout", id, "--user", "buyer-1")
	require.NoError(t, err, out)
	sess := decode[CheckoutResult](t, out)
	assert.Equal(t, id, sess.ListingID)
	assert.Equal(t, "buyer-1", sess.BuyerID)
	assert.True(t, strings.HasPrefix(sess.RedirectURL, "https://checkout.reelfeed.local/session/"))

	out, err = execute(t, "--db", db, "--format", "json", "complete", sess.ID, "--payment-intent", "pi_123")
	require.NoError(t, err, out)
	tx := decode[CompleteResult](t, out)
	assert.Equal(t, model.TransactionCompleted, tx.Status)
	assert.Equal(t, "seller-1", tx.SellerID)
	assert.Equal(t, "pi_123", tx.PaymentIntent)

	out, err = execute(t, "--db", db, "checkout", id, "--user", "buyer-2")
	require.Error(t, err)
	assert.Contains(t, out, "Error [CONFLICT]")

	out, err = execute(t, "--db", db, "complete", sess.ID)
	require.Error(t, err)
	assert.Contains(t, out, "Error [CONFLICT]")
}

func TestCheckoutRejectsSellerAndAnonymous(t *testing.T) {
	db, ids := seeded(t, 1)

	out, err := execute(t, "--db", db, "checkout", ids[0], "--user", "seller-1")
	require.Error(t, err)
	assert.Contains(t, out, "Error [VALIDATION_REJECTED]")

	out, err = execute(t, "--db", db, "checkout", ids[0])
	require.Error(t, err)
	assert.Contains(t, out, "Error [UNAUTHORIZED]")
}

func TestScenarioCommand(t *testing.T) {
	quietEnv(t)
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")

	out, err := execute(t, "scenario", scenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ scroll_to_end")
	assert.Contains(t, out, "3 passed, 0 failed, 3 total")

	out, err = execute(t, "--format", "json", "scenario", scenarios, "--filter", "search_*")
	require.NoError(t, err)
	report := decode[ScenarioReport](t, out)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, "search_debounce", report.Scenarios[0].Name)
}

func TestScenarioUpdateAndMismatch(t *testing.T) {
	quietEnv(t)
	root := t.TempDir()
	dir := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	src, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "scenarios", "scroll_to_end.yaml"))
	require.NoError(t, err)
	file := filepath.Join(dir, "scroll_to_end.yaml")
	require.NoError(t, os.WriteFile(file, src, 0o644))

	out, err := execute(t, "scenario", file, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "golden updated")

	golden := filepath.Join(root, "golden", "scroll_to_end.golden")
	want, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", "scroll_to_end.golden"))
	require.NoError(t, err)
	got, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0o644))
	out, err = execute(t, "scenario", file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestScenarioMissingPath(t *testing.T) {
	quietEnv(t)
	_, err := execute(t, "scenario", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
