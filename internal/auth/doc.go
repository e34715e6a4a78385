// Package auth provides authentication and authorization for studio-portal.
//
// # Credentials
//
// Passwords are stored as bcrypt hashes (cost 10). Hashing goes through a
// Hasher that bounds how many bcrypt computations run at once:
//
//	h := auth.NewHasher(4)
//	hash, err := h.Hash(ctx, "s3cret")
//	ok := h.Verify(ctx, "s3cret", hash)
//
// # Session Tokens
//
// A session is a signed HS256 JWT holding the user ID, email, and role,
// valid for seven days. Nothing is stored server side; a session exists
// exactly as long as its token verifies:
//
//	codec, err := auth.NewCodec(secret)
//	token, err := codec.Sign(auth.Identity{UserID: id, Email: email, Role: auth.RoleUser})
//	claims, err := codec.Verify(token) // err is always ErrInvalidToken on failure
//
// The token travels in the "auth-token" cookie (see CookiePolicy).
//
// # Guard
//
// Every protected operation calls the Guard before doing anything else:
//
//	claims, err := guard.RequireAdmin(r)
//	if err != nil {
//	    http.Error(w, err.Error(), auth.HTTPStatus(err))
//	    return
//	}
//
// RequireAuthHTTP and RequireAdminHTTP wrap handlers with the same checks and
// put the claims on the request context.
package auth
