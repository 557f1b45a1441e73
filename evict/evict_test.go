package evict

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/dustin/go-humanize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3uddz/delugetools/client/clienttest"
	"github.com/l3uddz/delugetools/config"
	"github.com/l3uddz/delugetools/expression"
	"github.com/l3uddz/delugetools/logger"
)

const gib = int64(humanize.GiByte)

func torrent(i int, added float64, size int64) config.Torrent {
	return config.Torrent{
		Hash:       fmt.Sprintf("%040d", i),
		Name:       fmt.Sprintf("Release.%03d", i),
		TimeAdded:  added,
		TotalBytes: size,
	}
}

func hashes(torrents []config.Torrent) []string {
	out := make([]string, 0, len(torrents))
	for _, t := range torrents {
		out = append(out, t.Hash)
	}
	return out
}

/* Planning */

func TestPlanSpace_TargetAlreadyMet(t *testing.T) {
	torrents := []config.Torrent{torrent(1, 1, gib)}

	plan := PlanSpace(torrents, 200*gib, 150*gib)
	assert.True(t, plan.Empty())
	assert.Equal(t, -50*gib, plan.ToFree)

	plan = PlanSpace(torrents, 150*gib, 150*gib)
	assert.True(t, plan.Empty())
	assert.Zero(t, plan.ToFree)
}

func TestPlanSpace_RemovesExactlyEnoughOldest(t *testing.T) {
	// newest first, so the plan has to reorder
	torrents := make([]config.Torrent, 0, 40)
	for i := 40; i > 0; i-- {
		torrents = append(torrents, torrent(i, float64(i), 5*gib))
	}

	plan := PlanSpace(torrents, 10*gib, 150*gib)
	require.Len(t, plan.Torrents, 28)
	assert.Equal(t, 140*gib, plan.ToFree)
	assert.Equal(t, 140*gib, plan.Bytes)
	assert.Zero(t, plan.Remaining)

	for i, victim := range plan.Torrents {
		assert.Equal(t, float64(i+1), victim.TimeAdded)
	}
}

func TestPlanSpace_IsMinimal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		n := 1 + rng.Intn(30)
		torrents := make([]config.Torrent, 0, n)
		var total int64
		for i := 0; i < n; i++ {
			size := 1 + rng.Int63n(10*gib)
			total += size
			torrents = append(torrents, torrent(i, float64(rng.Intn(1000)), size))
		}

		free := rng.Int63n(50 * gib)
		want := free + 1 + rng.Int63n(total)

		plan := PlanSpace(torrents, free, want)
		require.False(t, plan.Empty())
		assert.GreaterOrEqual(t, plan.Bytes, plan.ToFree)
		assert.Zero(t, plan.Remaining)

		last := plan.Torrents[len(plan.Torrents)-1]
		assert.Less(t, plan.Bytes-last.TotalBytes, plan.ToFree, "plan without its last torrent must fall short")

		for i := 1; i < len(plan.Torrents); i++ {
			assert.LessOrEqual(t, plan.Torrents[i-1].TimeAdded, plan.Torrents[i].TimeAdded)
		}
	}
}

func TestPlanSpace_RunsOutOfTorrents(t *testing.T) {
	torrents := []config.Torrent{torrent(1, 2, 5*gib), torrent(2, 1, 5*gib)}

	plan := PlanSpace(torrents, 0, 100*gib)
	assert.Equal(t, []string{torrents[1].Hash, torrents[0].Hash}, hashes(plan.Torrents))
	assert.Equal(t, 10*gib, plan.Bytes)
	assert.Equal(t, 90*gib, plan.Remaining)

	plan = PlanSpace(nil, 0, 100*gib)
	assert.True(t, plan.Empty())
	assert.Equal(t, 100*gib, plan.Remaining)
}

func TestPlanSpace_TiesKeepInputOrder(t *testing.T) {
	torrents := []config.Torrent{torrent(3, 5, gib), torrent(1, 5, gib), torrent(2, 1, gib)}

	plan := PlanSpace(torrents, 0, 3*gib)
	assert.Equal(t, []string{torrents[2].Hash, torrents[0].Hash, torrents[1].Hash}, hashes(plan.Torrents))
}

func TestSortOldestFirst_TiesUseHash(t *testing.T) {
	a, b, c := torrent(2, 10, 1), torrent(1, 10, 1), torrent(3, 5, 1)
	sorted := SortOldestFirst(map[string]config.Torrent{a.Hash: a, b.Hash: b, c.Hash: c})
	assert.Equal(t, []string{c.Hash, b.Hash, a.Hash}, hashes(sorted))
}

func TestSortOldestFirst_EqualTimesUseActiveTime(t *testing.T) {
	// added 50s apart, collapsed to the same float32 time added
	older := config.Torrent{Hash: "zzz", Name: "older", TimeAdded: 1700000000, ActiveTime: 1050, TotalBytes: gib}
	newer := config.Torrent{Hash: "aaa", Name: "newer", TimeAdded: 1700000000, ActiveTime: 1000, TotalBytes: gib}

	sorted := SortOldestFirst(map[string]config.Torrent{older.Hash: older, newer.Hash: newer})
	assert.Equal(t, []string{"zzz", "aaa"}, hashes(sorted))

	plan := PlanSpace([]config.Torrent{newer, older}, 0, gib)
	assert.Equal(t, []string{"zzz"}, hashes(plan.Torrents))
}

func TestExecutor_SpaceEqualTimesRemovesLongestActive(t *testing.T) {
	fake := clienttest.New("d1", 0,
		config.Torrent{Hash: "zzz", Name: "older", TimeAdded: 1700000000, ActiveTime: 1050, TotalBytes: gib},
		config.Torrent{Hash: "aaa", Name: "newer", TimeAdded: 1700000000, ActiveTime: 1000, TotalBytes: gib},
	)

	res, err := NewExecutor().Space(context.Background(), logger.Discard(), fake, gib)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, []string{"zzz"}, fake.Removed())
}

func TestSelectUnregistered(t *testing.T) {
	statuses := []string{
		"Unregistered torrent",
		"Error: Unregistered torrent",
		"unregistered torrent",
		"Announce OK",
		"Torrent not found",
		"",
	}

	torrents := make([]config.Torrent, 0, len(statuses))
	for i, s := range statuses {
		tr := torrent(i, float64(i), gib)
		tr.TrackerStatus = s
		torrents = append(torrents, tr)
	}

	selected := SelectUnregistered(torrents)
	assert.Equal(t, []string{torrents[0].Hash, torrents[1].Hash}, hashes(selected))
}

/* Execution */

func TestExecutor_SpaceNoOp(t *testing.T) {
	fake := clienttest.New("d1", 200*gib, torrent(1, 1, gib))
	fake.TorrentsErr = errors.New("inventory must not be read")

	res, err := NewExecutor().Space(context.Background(), logger.Discard(), fake, 150*gib)
	require.NoError(t, err)
	assert.True(t, res.NoOp)
	assert.Equal(t, 200*gib, res.FreeBytes)
	assert.Zero(t, res.Removed)
	assert.Empty(t, fake.Removed())
}

func TestExecutor_SpaceRemovesOldestInOrder(t *testing.T) {
	torrents := make([]config.Torrent, 0, 40)
	for i := 1; i <= 40; i++ {
		torrents = append(torrents, torrent(i, float64(1000-i), 5*gib))
	}
	fake := clienttest.New("d1", 10*gib, torrents...)

	res, err := NewExecutor(WithRemoveRate(0)).Space(context.Background(), logger.Discard(), fake, 150*gib)
	require.NoError(t, err)

	assert.Equal(t, 28, res.Removed)
	assert.Equal(t, 140*gib, res.FreedBytes)
	assert.Equal(t, 10*gib, res.FreeBytes)
	assert.Zero(t, res.Failed)
	assert.Zero(t, res.Remaining)

	plan := PlanSpace(torrents, 10*gib, 150*gib)
	assert.Equal(t, hashes(plan.Torrents), fake.Removed())

	free, err := fake.GetFreeSpace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150*gib, free)
}

func TestExecutor_SpaceFailedRemovalTakesNextOldest(t *testing.T) {
	t1, t2, t3 := torrent(1, 1, 5*gib), torrent(2, 2, 5*gib), torrent(3, 3, 5*gib)
	fake := clienttest.New("d1", 0, t1, t2, t3)
	fake.RemoveErr[t1.Hash] = errors.New("torrent busy")

	res, err := NewExecutor().Space(context.Background(), logger.Discard(), fake, 10*gib)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 10*gib, res.FreedBytes)
	assert.Equal(t, []string{t2.Hash, t3.Hash}, fake.Removed())
}

func TestExecutor_SpaceExhaustsInventory(t *testing.T) {
	fake := clienttest.New("d1", 0, torrent(1, 1, gib), torrent(2, 2, gib))

	res, err := NewExecutor().Space(context.Background(), logger.Discard(), fake, 10*gib)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, 8*gib, res.Remaining)
	assert.Len(t, fake.Removed(), 2)
}

func TestExecutor_SpaceDryRun(t *testing.T) {
	fake := clienttest.New("d1", 0, torrent(1, 1, gib), torrent(2, 2, gib), torrent(3, 3, gib))

	res, err := NewExecutor(WithDryRun(true)).Space(context.Background(), logger.Discard(), fake, 2*gib)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, 2*gib, res.FreedBytes)
	assert.Empty(t, fake.Removed())
}

func TestExecutor_SpaceInventoryFailures(t *testing.T) {
	fake := clienttest.New("d1", 0)
	fake.FreeSpaceErr = errors.New("rpc timeout")

	_, err := NewExecutor().Space(context.Background(), logger.Discard(), fake, gib)
	require.ErrorContains(t, err, "rpc timeout")

	fake = clienttest.New("d1", 0)
	fake.TorrentsErr = errors.New("rpc timeout")

	res, err := NewExecutor().Space(context.Background(), logger.Discard(), fake, gib)
	require.ErrorContains(t, err, "get torrents")
	assert.Zero(t, res.FreeBytes)
}

func TestExecutor_SpaceHonoursIgnore(t *testing.T) {
	keep := torrent(1, 1, 5*gib)
	keep.Ratio = 0.1
	other := torrent(2, 2, 5*gib)
	other.Ratio = 3
	fake := clienttest.New("d1", 0, keep, other)

	exp, err := expression.Compile(&config.FilterConfiguration{Ignore: []string{`Ratio < 1.0`}})
	require.NoError(t, err)

	res, err := NewExecutor(WithIgnore(exp)).Space(context.Background(), logger.Discard(), fake, 5*gib)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Ignored)
	assert.Equal(t, []string{other.Hash}, fake.Removed())
}

func TestExecutor_Unregistered(t *testing.T) {
	unreg := torrent(1, 1, 3*gib)
	unreg.TrackerStatus = "Error: Unregistered torrent"
	lower := torrent(2, 2, 3*gib)
	lower.TrackerStatus = "unregistered torrent"
	ok := torrent(3, 3, 3*gib)
	ok.TrackerStatus = "Announce OK"
	fake := clienttest.New("d1", 7*gib, unreg, lower, ok)

	res, err := NewExecutor().Unregistered(context.Background(), logger.Discard(), fake)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, 3*gib, res.FreedBytes)
	assert.Equal(t, 7*gib, res.FreeBytes)
	assert.Equal(t, []string{unreg.Hash}, fake.Removed())
}

func TestExecutor_UnregisteredFreeSpaceUnknown(t *testing.T) {
	fake := clienttest.New("d1", 0)
	fake.FreeSpaceErr = errors.New("no such path")

	res, err := NewExecutor().Unregistered(context.Background(), logger.Discard(), fake)
	require.NoError(t, err)
	assert.EqualValues(t, -1, res.FreeBytes)
}

func TestExecutor_UnregisteredInventoryFailure(t *testing.T) {
	fake := clienttest.New("d1", 0)
	fake.TorrentsErr = errors.New("connection reset")

	_, err := NewExecutor().Unregistered(context.Background(), logger.Discard(), fake)
	require.ErrorContains(t, err, "connection reset")
}
