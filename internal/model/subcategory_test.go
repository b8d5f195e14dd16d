package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcategoryCatalogInvariants(t *testing.T) {
	for id, s := range Subcategories {
		assert.Equal(t, id, s.ID, "map key must match entry ID")
		assert.NotEmpty(t, s.Label, "%s has no label", id)
		if s.CanExpire {
			assert.NotEmpty(t, s.Expiry, "%s can expire but has no expiry class", id)
		}
		// A booking cannot count against both spending caps at once.
		assert.False(t, s.IsDigitalDeposit && s.IsPhysicalDeposit, "%s in both deposit buckets", id)
		if s.IsEvent {
			assert.False(t, s.CanExpire, "event subcategory %s must not auto-expire", id)
		}
	}
}

func TestSubcategoryByID(t *testing.T) {
	s, ok := SubcategoryByID("CONCERT")
	require.True(t, ok)
	assert.True(t, s.IsEvent)
	assert.True(t, s.CanBeDuo)

	_, ok = SubcategoryByID("PEINTURE_SUR_SOIE")
	assert.False(t, ok)
}

func TestSubcategoryIDsWhere(t *testing.T) {
	books := SubcategoryIDsWhere(func(s Subcategory) bool {
		return s.CanExpire && s.Expiry == ExpiryKindBook
	})
	assert.ElementsMatch(t, []string{"LIVRE_PAPIER", "LIVRE_AUDIO_PHYSIQUE", "LIVRE_NUMERIQUE"}, books)

	none := SubcategoryIDsWhere(func(Subcategory) bool { return false })
	assert.Empty(t, none)
}
