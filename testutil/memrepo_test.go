package testutil_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-karte/internal/domain"
	"github.com/pkordes/travel-karte/testutil"
)

func createKarte(t *testing.T, r *testutil.MemoryKarteRepo, no, destination string, persons float64) domain.Karte {
	t.Helper()
	k := domain.Karte{Basic: domain.BasicInfo{
		KarteNo:     no,
		StaffName:   "鈴木",
		ClientOrg:   "Kyoto Shoji",
		Destination: destination,
		PersonCount: domain.Number(persons),
	}}
	k.Derive()
	created, err := r.Create(context.Background(), k)
	require.NoError(t, err)
	return created
}

func TestMemoryKarteRepo_ListRecent_Search(t *testing.T) {
	r := testutil.NewMemoryKarteRepo()
	hakone := createKarte(t, r, "D-20250402-1", "箱根", 20)
	kyoto := createKarte(t, r, "D-20250402-2", "京都", 35)

	tests := []struct {
		search string
		want   []string
	}{
		{"京都", []string{kyoto.Info.KarteNo}},
		{"kyoto", []string{kyoto.Info.KarteNo, hakone.Info.KarteNo}},
		{"35", []string{kyoto.Info.KarteNo}},
		{"", []string{kyoto.Info.KarteNo, hakone.Info.KarteNo}},
		{"大阪", nil},
	}
	for _, tc := range tests {
		items, err := r.ListRecent(context.Background(), domain.ListQuery{Limit: 50, Search: tc.search})
		require.NoError(t, err)

		var got []string
		for _, it := range items {
			got = append(got, it.Info.KarteNo)
		}
		assert.Equal(t, tc.want, got, "search %q", tc.search)
	}
}

func TestMemoryKarteRepo_ListRecent_SearchStaysInWindow(t *testing.T) {
	r := testutil.NewMemoryKarteRepo()
	createKarte(t, r, "D-1", "京都", 10)
	createKarte(t, r, "D-2", "箱根", 10)

	items, err := r.ListRecent(context.Background(), domain.ListQuery{Limit: 1, Search: "京都"})

	require.NoError(t, err)
	assert.Empty(t, items)
}
