package session

import (
	"context"
	"testing"

	"github.com/scibee/farmwiz/internal/farmapi"
	"github.com/scibee/farmwiz/internal/wizard"
	"github.com/stretchr/testify/assert"
)

func TestSignInAndOut(t *testing.T) {
	ctx := context.Background()
	store := wizard.NewStore(wizard.NewMemoryBackend())

	_, ok := Identity(ctx, store, "tab-1")
	assert.False(t, ok)

	SignIn(ctx, store, "tab-1", farmapi.Identity{Email: "jane@example.com", Token: "tok"})
	store.Save(ctx, Key("tab-1", "parcel-add"), wizard.Record{"sizeHa": 2.5})
	store.Save(ctx, Key("tab-2", "parcel-add"), wizard.Record{"sizeHa": 1.0})

	id, ok := Identity(ctx, store, "tab-1")
	assert.True(t, ok)
	assert.Equal(t, farmapi.Identity{Email: "jane@example.com", Token: "tok"}, id)

	SignOut(ctx, store, "tab-1", []string{"parcel-add", "crop-add"})

	_, ok = Identity(ctx, store, "tab-1")
	assert.False(t, ok)
	assert.Empty(t, store.Load(ctx, Key("tab-1", "parcel-add")))
	assert.NotEmpty(t, store.Load(ctx, Key("tab-2", "parcel-add")), "other owners keep their records")
}
