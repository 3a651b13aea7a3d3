package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/formwire/pkg/domain"
)

func contractState(id string) *domain.SessionState {
	return &domain.SessionState{
		ID:           id,
		FormID:       "i18n.newlang",
		Locale:       "de",
		BusinessPath: "[Admin:0][I18n:0]",
		Form: domain.FormSnapshot{
			Fields: map[string]domain.FieldSnapshot{
				"country": {Value: "CH", HasValue: true, Visible: true, Enabled: true},
				"variant": {Visible: false, Enabled: true},
				"inEnglish": {
					Visible: true, Enabled: true,
					ErrorKey: "form.error.mandatory",
				},
			},
		},
		Revision:  3,
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := contractState(sessionID)

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.FormID, loaded.FormID)
		assert.Equal(t, state.Locale, loaded.Locale)
		assert.Equal(t, state.Revision, loaded.Revision)
		assert.Equal(t, state.Form.Fields["country"], loaded.Form.Fields["country"])
		assert.False(t, loaded.Form.Fields["variant"].HasValue, "null values stay null")
		assert.Equal(t, "form.error.mandatory", loaded.Form.Fields["inEnglish"].ErrorKey)
		assert.True(t, state.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		state := contractState(sessionID)
		state.Revision = 4
		require.NoError(t, store.Save(ctx, sessionID, state))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), loaded.Revision)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, contractState(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Delete is idempotent")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, contractState(id1)))
		require.NoError(t, store.Save(ctx, id2, contractState(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
