package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vulndesk/vulndesk/pkg/models"
	"github.com/vulndesk/vulndesk/pkg/store"
)

// HeaderUserID carries the requesting user's ID. Deployments terminate
// authentication upstream and forward the resolved identity in this
// header.
const HeaderUserID = "X-User-ID"

// ErrNoUser is returned by resolvers when a request carries no usable
// identity.
var ErrNoUser = errors.New("server: no requesting user")

// UserResolver attributes a request to a user. Resolvers run before
// every report handler; a failure rejects the request with 401.
type UserResolver func(r *http.Request) (*models.User, error)

// UserFromHeader resolves the requesting user by looking the X-User-ID
// header up in the store. It is the default resolver.
func UserFromHeader(st store.Store) UserResolver {
	return func(r *http.Request) (*models.User, error) {
		raw := r.Header.Get(HeaderUserID)
		if raw == "" {
			return nil, ErrNoUser
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed %s header %q", ErrNoUser, HeaderUserID, raw)
		}
		u, err := st.User(r.Context(), id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoUser, err)
		}
		return &u, nil
	}
}

// requireUser resolves the requesting user and rejects requests it
// cannot attribute. The resolved user rides the request context.
func requireUser(resolve UserResolver, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolve(r)
			if err != nil {
				reqLog := loggerFrom(r.Context(), log)
				reqLog.Warn("unattributed request rejected", "error", err)
				writeError(w, reqLog, http.StatusUnauthorized, "request is not attributed to a user")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// userFrom returns the user injected by requireUser, or nil outside the
// authenticated subtree.
func userFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxKeyUser).(*models.User)
	return u
}

// visibleTo applies the row-level rule: staff see every report row,
// other users only their own. Unowned rows are visible to everyone.
func visibleTo(u *models.User, rep *models.Report) bool {
	switch {
	case u == nil:
		return false
	case u.IsStaff, rep.Requester == nil:
		return true
	}
	return rep.Requester.ID == u.ID
}
