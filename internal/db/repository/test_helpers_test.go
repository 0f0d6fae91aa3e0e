package repository

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/trivia-engine/internal/db/pg"
)

func itemRow(t *testing.T, pos int32, name string, weight int32, doc map[string]any) pg.PackageItem {
	t.Helper()
	doc["name"] = name
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return pg.PackageItem{PackageID: "countries", Position: pos, Name: name, Weight: weight, Data: data}
}
