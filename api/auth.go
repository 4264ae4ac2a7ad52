package api

import (
	"net/http"
	"strings"

	"github.com/xraph/stockledger"
)

// Header names read by HeaderAuthenticator.
const (
	HeaderStoreID = "X-Store-ID"
	HeaderUserID  = "X-User-ID"
	HeaderRole    = "X-Role"
)

// Authenticator resolves the caller's tenant scope from an inbound request.
// Implementations return an error whose kind is unauthenticated or
// permission-denied.
type Authenticator interface {
	Authenticate(r *http.Request) (stockledger.Scope, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(r *http.Request) (stockledger.Scope, error)

// Authenticate calls f(r).
func (f AuthenticatorFunc) Authenticate(r *http.Request) (stockledger.Scope, error) {
	return f(r)
}

// HeaderAuthenticator trusts identity headers set by an upstream gateway.
// It performs no signature verification.
type HeaderAuthenticator struct{}

// Authenticate implements Authenticator.
func (HeaderAuthenticator) Authenticate(r *http.Request) (stockledger.Scope, error) {
	storeID := strings.TrimSpace(r.Header.Get(HeaderStoreID))
	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if storeID == "" || userID == "" {
		return stockledger.Scope{}, stockledger.Errorf(stockledger.KindUnauthenticated, stockledger.ErrUnauthenticated,
			"%s and %s headers are required", HeaderStoreID, HeaderUserID)
	}

	role := stockledger.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderRole))))
	switch role {
	case stockledger.RoleOwner, stockledger.RoleStaff:
	default:
		return stockledger.Scope{}, stockledger.Errorf(stockledger.KindPermissionDenied, stockledger.ErrPermissionDenied,
			"role %q may not use the store", role)
	}

	return stockledger.Scope{StoreID: storeID, UserID: userID, Role: role}, nil
}
