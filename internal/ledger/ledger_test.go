package ledger

import (
	"testing"

	"github.com/Freeeeeet/classbooking_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestTotalSlots_PriorityChain(t *testing.T) {
	l := New(map[string]int{"pkg-ext": 12})

	tests := []struct {
		name      string
		sub       model.PackageSubscription
		wantTotal int
		wantOK    bool
	}{
		{
			name:      "snapshot wins over everything",
			sub:       model.PackageSubscription{PackageID: "pkg-ext", TotalSlotsSnapshot: intp(10), TotalSlots: intp(20), RemainingSlots: intp(1), PackageName: "Gói 30 buổi"},
			wantTotal: 10, wantOK: true,
		},
		{
			name:      "totalSlots second",
			sub:       model.PackageSubscription{PackageID: "pkg-ext", TotalSlots: intp(20), PackageName: "Gói 30 buổi"},
			wantTotal: 20, wantOK: true,
		},
		{
			name:      "external package total third",
			sub:       model.PackageSubscription{PackageID: "pkg-ext", UsedSlot: 2, RemainingSlots: intp(1), PackageName: "Gói 30 buổi"},
			wantTotal: 12, wantOK: true,
		},
		{
			name:      "used plus remaining fourth",
			sub:       model.PackageSubscription{PackageID: "other", UsedSlot: 4, RemainingSlots: intp(6), PackageName: "Gói 30 buổi"},
			wantTotal: 10, wantOK: true,
		},
		{
			name:      "first number in package name fifth",
			sub:       model.PackageSubscription{PackageID: "other", PackageName: "Gói 10 buổi (tặng 2)"},
			wantTotal: 10, wantOK: true,
		},
		{
			name:   "unknown",
			sub:    model.PackageSubscription{PackageID: "other", PackageName: "Unlimited"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, ok := l.TotalSlots(&tt.sub)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestRemainingSlots_NeverNegative(t *testing.T) {
	l := New(map[string]int{"pkg": 5})
	subs := []model.PackageSubscription{
		{UsedSlot: 3, TotalSlotsSnapshot: intp(10)},
		{UsedSlot: 12, TotalSlots: intp(10)},
		{PackageID: "pkg", UsedSlot: 7},
		{UsedSlot: 2, RemainingSlots: intp(0)},
		{UsedSlot: 11, PackageName: "Gói 10 buổi"},
	}
	want := []int{7, 0, 0, 0, 0}

	for i := range subs {
		remaining, ok := l.RemainingSlots(&subs[i])
		require.True(t, ok)
		assert.GreaterOrEqual(t, remaining, 0)
		assert.Equal(t, want[i], remaining)
	}

	_, ok := l.RemainingSlots(&model.PackageSubscription{PackageName: "no digits"})
	assert.False(t, ok)
}

func TestScenarioB_SnapshotBalance(t *testing.T) {
	l := New(nil)
	sub := model.PackageSubscription{Status: "Active", UsedSlot: 3, TotalSlotsSnapshot: intp(10)}

	remaining, ok := l.RemainingSlots(&sub)
	require.True(t, ok)
	assert.Equal(t, 7, remaining)
	assert.True(t, l.IsFundable(&sub))
}

func TestScenarioC_TotalFromPackageName(t *testing.T) {
	l := New(nil)
	sub := model.PackageSubscription{Status: "Active", UsedSlot: 10, PackageName: "Gói 10 buổi"}

	total, ok := l.TotalSlots(&sub)
	require.True(t, ok)
	assert.Equal(t, 10, total)

	remaining, _ := l.RemainingSlots(&sub)
	assert.Equal(t, 0, remaining)
	assert.False(t, l.IsFundable(&sub))
}

func TestIsFundable(t *testing.T) {
	l := New(nil)

	for _, status := range []model.SubscriptionStatus{"Expired", "Cancelled", "Refunded", "Pending", "", "inactive"} {
		sub := model.PackageSubscription{Status: status, TotalSlots: intp(100)}
		assert.False(t, l.IsFundable(&sub), status)
	}

	for _, status := range []model.SubscriptionStatus{"Active", "ACTIVE", " active "} {
		sub := model.PackageSubscription{Status: status, TotalSlots: intp(2), UsedSlot: 1}
		assert.True(t, l.IsFundable(&sub), status)
	}

	unknown := model.PackageSubscription{Status: "Active", UsedSlot: 50, PackageName: "Unlimited"}
	assert.True(t, l.IsFundable(&unknown))
	assert.False(t, l.IsFundable(nil))
}

func TestSelectDefault(t *testing.T) {
	l := New(nil)

	subs := []model.PackageSubscription{
		{ID: "expired", Status: "Expired", TotalSlots: intp(10)},
		{ID: "empty", Status: "Active", TotalSlots: intp(5), UsedSlot: 5},
		{ID: "funded", Status: "Active", TotalSlots: intp(5), UsedSlot: 1},
	}
	got := l.SelectDefault(subs)
	require.NotNil(t, got)
	assert.Equal(t, "funded", got.ID)

	got = l.SelectDefault(subs[:2])
	require.NotNil(t, got)
	assert.Equal(t, "empty", got.ID)

	assert.Nil(t, l.SelectDefault(subs[:1]))
	assert.Nil(t, l.SelectDefault(nil))
}

func TestActiveAndFind(t *testing.T) {
	subs := []model.PackageSubscription{
		{ID: "a", Status: "Active"},
		{ID: "b", Status: "Pending"},
		{ID: "c", Status: "active"},
	}

	active := Active(subs)
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].ID)
	assert.Equal(t, "c", active[1].ID)

	assert.Equal(t, "c", Find(active, "c").ID)
	assert.Nil(t, Find(active, "b"))
	assert.Nil(t, Find(active, ""))
}

func TestBalances(t *testing.T) {
	l := New(nil)
	got := l.Balances([]model.PackageSubscription{
		{ID: "a", Status: "Active", TotalSlots: intp(8), UsedSlot: 3},
		{ID: "b", Status: "Active", PackageName: "Unlimited"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, 8, *got[0].Total)
	assert.Equal(t, 5, *got[0].Remaining)
	assert.True(t, got[0].Fundable)
	assert.Nil(t, got[1].Total)
	assert.Nil(t, got[1].Remaining)
	assert.True(t, got[1].Fundable)
}
