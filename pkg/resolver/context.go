package resolver

import (
	"context"

	"github.com/leapstack-labs/leapark/pkg/domain"
)

type generatingDomainKey struct{}

// WithGeneratingDomain returns a context naming the domain that is performing
// a proxy generation call.
func WithGeneratingDomain(ctx context.Context, h domain.Handle) context.Context {
	return context.WithValue(ctx, generatingDomainKey{}, h)
}

// GeneratingDomain returns the domain stored by WithGeneratingDomain.
func GeneratingDomain(ctx context.Context) (domain.Handle, bool) {
	if ctx == nil {
		return domain.None, false
	}
	h, ok := ctx.Value(generatingDomainKey{}).(domain.Handle)
	if !ok || !h.Valid() {
		return domain.None, false
	}
	return h, true
}
