package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/formwire/pkg/adapters/memory"
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/persistence/middleware"
	"github.com/aretw0/formwire/pkg/ports"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"password", "^ssn"})
	require.NoError(t, err)
	store := mw(underlying)
	ctx := context.Background()

	state := &domain.SessionState{
		ID: "pii",
		Form: domain.FormSnapshot{Fields: map[string]domain.FieldSnapshot{
			"username":     {Value: "jdoe", HasValue: true},
			"userPassword": {Value: "secret123", HasValue: true},
			"ssnNumber":    {Value: "999-99-9999", HasValue: true},
			"passwordHint": {Value: "", HasValue: true},
			"password2":    {},
		}},
	}
	require.NoError(t, store.Save(ctx, "pii", state))

	assert.Equal(t, "secret123", state.Form.Fields["userPassword"].Value, "in-memory state is not modified")

	stored, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.Form.Fields["username"].Value)
	assert.Equal(t, middleware.Mask, stored.Form.Fields["userPassword"].Value, "patterns ignore case")
	assert.Equal(t, middleware.Mask, stored.Form.Fields["ssnNumber"].Value)
	assert.True(t, stored.Form.Fields["ssnNumber"].Masked)
	assert.False(t, stored.Form.Fields["username"].Masked)
	assert.False(t, state.Form.Fields["ssnNumber"].Masked)
	assert.Equal(t, "", stored.Form.Fields["passwordHint"].Value, "empty values stay empty")
	assert.False(t, stored.Form.Fields["password2"].HasValue, "null values stay null")
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"(unclosed"})
	assert.Error(t, err)
}

func TestChain_Contract(t *testing.T) {
	pii, err := middleware.NewPIIMiddleware([]string{"password"})
	require.NoError(t, err)
	enc := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ports.RunSessionStoreContract(t, middleware.Chain(memory.NewStore(), pii, enc))
}
