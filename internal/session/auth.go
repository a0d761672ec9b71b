package session

import (
	"context"

	"github.com/scibee/farmwiz/internal/farmapi"
	"github.com/scibee/farmwiz/internal/wizard"
)

// SignIn keeps the login of owner next to its wizard records.
func SignIn(ctx context.Context, store *wizard.Store, owner string, id farmapi.Identity) {
	store.Save(ctx, Key(owner, AuthFlow), wizard.Record{"email": id.Email, "token": id.Token})
}

// Identity returns the login kept for owner. ok is false without a token.
func Identity(ctx context.Context, store *wizard.Store, owner string) (farmapi.Identity, bool) {
	rec := store.Load(ctx, Key(owner, AuthFlow))
	id := farmapi.Identity{Email: rec.String("email"), Token: rec.String("token")}
	return id, id.Token != ""
}

// SignOut forgets the login of owner and clears the records of flows.
func SignOut(ctx context.Context, store *wizard.Store, owner string, flows []string) {
	for _, f := range flows {
		store.Clear(ctx, Key(owner, f))
	}
	store.Clear(ctx, Key(owner, AuthFlow))
}
