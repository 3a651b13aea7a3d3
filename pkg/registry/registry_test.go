package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/formwire/pkg/ports"
	"github.com/aretw0/formwire/pkg/registry"
)

func TestRegistry(t *testing.T) {
	r := registry.NewRegistry()
	r.RegisterFunc("i18n.create_language", func(ctx context.Context, req ports.SubmitRequest) (ports.SubmitResult, error) {
		return ports.SubmitResult{BusinessPath: "[I18n:" + req.Values["language"] + "]"}, nil
	})

	res, err := r.Submit(context.Background(), "i18n.create_language", ports.SubmitRequest{
		Values: map[string]string{"language": "de"},
	})
	require.NoError(t, err)
	assert.Equal(t, "[I18n:de]", res.BusinessPath)
	assert.Equal(t, []string{"i18n.create_language"}, r.Names())

	_, err = r.Submit(context.Background(), "missing", ports.SubmitRequest{})
	assert.Error(t, err)

	r.RegisterFunc("i18n.create_language", func(ctx context.Context, req ports.SubmitRequest) (ports.SubmitResult, error) {
		return ports.SubmitResult{ErrorKey: "exists"}, nil
	})
	res, err = r.Submit(context.Background(), "i18n.create_language", ports.SubmitRequest{})
	require.NoError(t, err)
	assert.Equal(t, "exists", res.ErrorKey)
}
