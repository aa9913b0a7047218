package selections

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

func newStore(t *testing.T) *YAMLStore {
	t.Helper()
	store := NewYAMLStore(filepath.Join(t.TempDir(), "data", "selections.yaml"))
	clock := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return store
}

func TestYAMLStore_SaveLoad(t *testing.T) {
	store := newStore(t)

	err := store.Save(Selection{
		Name: " weekly ",
		Targets: []entities.TargetRequest{
			{PartID: 12, Quantity: entities.Qty(5)},
			{PartID: 14, Quantity: entities.QtyFromFloat(2.5)},
		},
	})
	require.NoError(t, err)

	sel, err := store.Load("weekly")
	require.NoError(t, err)
	assert.Equal(t, "weekly", sel.Name)
	require.Len(t, sel.Targets, 2)
	assert.Equal(t, entities.PartID(14), sel.Targets[1].PartID)
	assert.Equal(t, "2.5", sel.Targets[1].Quantity.String())
	assert.False(t, sel.CreatedAt.IsZero())
}

func TestYAMLStore_SaveReplaces(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Save(Selection{Name: "a", Targets: []entities.TargetRequest{{PartID: 1, Quantity: entities.Qty(1)}}}))
	require.NoError(t, store.Save(Selection{Name: "a", Targets: []entities.TargetRequest{{PartID: 2, Quantity: entities.Qty(3)}}}))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entities.PartID(2), list[0].Targets[0].PartID)
}

func TestYAMLStore_ListNewestFirst(t *testing.T) {
	store := newStore(t)
	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, store.Save(Selection{Name: name, Targets: []entities.TargetRequest{{PartID: 1, Quantity: entities.Qty(1)}}}))
	}

	list, err := store.List()
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, s := range list {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"third", "second", "first"}, names)
}

func TestYAMLStore_Delete(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Save(Selection{Name: "gone", Targets: []entities.TargetRequest{{PartID: 1, Quantity: entities.Qty(1)}}}))

	require.NoError(t, store.Delete("gone"))
	_, err := store.Load("gone")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete("gone"), ErrNotFound)
}

func TestYAMLStore_Validation(t *testing.T) {
	store := newStore(t)

	assert.Error(t, store.Save(Selection{Name: "  "}))
	assert.Error(t, store.Save(Selection{Name: "empty"}))
	err := store.Save(Selection{Name: "bad", Targets: []entities.TargetRequest{{PartID: 1, Quantity: entities.Qty(0)}}})
	assert.ErrorIs(t, err, entities.ErrInvalidTarget)
}

func TestYAMLStore_MissingFileIsEmpty(t *testing.T) {
	store := newStore(t)
	list, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestYAMLStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selections.yaml")
	require.NoError(t, os.WriteFile(path, []byte("selections: [unterminated"), 0o644))

	_, err := NewYAMLStore(path).List()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse selections file")
}
