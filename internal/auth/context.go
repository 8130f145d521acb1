package auth

import "context"

type contextKey string

const (
	contextKeyAccount contextKey = "auth.account_id"
)

// WithAccount stores the authenticated account id in context.
func WithAccount(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, contextKeyAccount, accountID)
}

// AccountIDFromContext extracts the account id from context.
func AccountIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if accountID, ok := ctx.Value(contextKeyAccount).(string); ok {
		return accountID
	}
	return ""
}
