package payroll_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-engine/fleet"
	"github.com/warp/fleet-engine/fleet/store"
	"github.com/warp/fleet-engine/payroll"
)

func TestBook_PersistsAcrossLoads(t *testing.T) {
	// GIVEN: A deduction entered for one driver
	// WHEN: The book is reloaded from the same KV
	// THEN: The entry survives with its raw text intact

	kv := store.NewMemoryKV()
	ctx := context.Background()

	book := payroll.LoadBook(ctx, kv)
	require.NoError(t, book.Set(ctx, "Kofi", "300"))

	reloaded := payroll.LoadBook(ctx, kv)
	assert.Equal(t, "300", reloaded.Get("Kofi").String())
	assert.Equal(t, map[string]string{"Kofi": "300"}, reloaded.Raw())
}

func TestBook_BlankAndUnparseableCountAsZero(t *testing.T) {
	kv := store.NewMemoryKV()
	ctx := context.Background()

	book := payroll.LoadBook(ctx, kv)
	require.NoError(t, book.Set(ctx, "Kofi", "abc"))

	assert.True(t, book.Get("Kofi").IsZero())
	assert.True(t, book.Get("Nobody").IsZero())
}

func TestBook_EmptyValueClearsEntry(t *testing.T) {
	kv := store.NewMemoryKV()
	ctx := context.Background()

	book := payroll.LoadBook(ctx, kv)
	require.NoError(t, book.Set(ctx, "Kofi", "300"))
	require.NoError(t, book.Set(ctx, "Kofi", ""))

	assert.Empty(t, book.Raw())
	reloaded := payroll.LoadBook(ctx, kv)
	assert.Empty(t, reloaded.Raw())
}

func TestBook_CorruptStoredJSONTreatedAsEmpty(t *testing.T) {
	kv := store.NewMemoryKV()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, fleet.KeyCNDeductions, "{not json"))

	book := payroll.LoadBook(ctx, kv)
	assert.Empty(t, book.Raw())
	assert.True(t, book.Get("Kofi").IsZero())
}

func TestBook_DeductionsParsesAllEntries(t *testing.T) {
	kv := store.NewMemoryKV()
	ctx := context.Background()

	book := payroll.LoadBook(ctx, kv)
	require.NoError(t, book.Set(ctx, "Kofi", "300"))
	require.NoError(t, book.Set(ctx, "Yaw", "150.5"))

	d := book.Deductions()
	assert.Equal(t, "300", d.Get("Kofi").String())
	assert.Equal(t, "150.5", d.Get("Yaw").String())
	assert.True(t, d.Get("Esi").IsZero())
}
