package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-karte/internal/domain"
)

func TestPrintList(t *testing.T) {
	now := time.Now().UTC()
	items := []domain.KarteListItem{{
		ID:          uuid.MustParse("0b7e6c1e-2f9a-4c67-9a55-5d1f7b6f2c11"),
		Info:        domain.KarteInfo{KarteNo: "D-20250601-1", StaffName: "佐藤", ClientOrg: "山田商事", PersonCount: 12},
		LastUpdated: now,
		Editors: map[string]domain.Editor{
			"editor_a": {Name: "鈴木 1", LastActive: now},
			"editor_b": {Name: "田中 2", LastActive: now.Add(-time.Hour)},
		},
	}}
	var buf bytes.Buffer

	require.NoError(t, printList(&buf, items, ""))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "カルテNo")
	assert.Contains(t, lines[1], "D-20250601-1")
	assert.Contains(t, lines[1], "山田商事")
	assert.True(t, strings.HasSuffix(lines[1], " 1"), "stale editors are not counted: %q", lines[1])
}

func TestPrintList_noMatch(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printList(&buf, nil, " 京都 "))

	assert.Equal(t, "「京都」に一致するカルテはありません\n", buf.String())
}

func TestPrintList_emptyWithoutSearch(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printList(&buf, nil, ""))

	assert.Contains(t, buf.String(), "カルテNo", "an unfiltered empty list still prints the header")
}

func TestParseID(t *testing.T) {
	id, err := parseID(" 0b7e6c1e-2f9a-4c67-9a55-5d1f7b6f2c11 ")
	require.NoError(t, err)
	assert.Equal(t, "0b7e6c1e-2f9a-4c67-9a55-5d1f7b6f2c11", id.String())

	_, err = parseID("D-20250601-1")
	assert.ErrorContains(t, err, "invalid karte id")
}
