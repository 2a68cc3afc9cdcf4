package shared

import "context"

type accountContextKey struct{}

// ContextWithAccount stores the authenticated account id in context.
func ContextWithAccount(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountContextKey{}, accountID)
}

// AccountFromContext extracts the authenticated account id from context.
func AccountFromContext(ctx context.Context) string {
	id, _ := ctx.Value(accountContextKey{}).(string)
	return id
}
