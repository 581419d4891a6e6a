// Package auth authenticates HTTP callers by API key.
//
// Keys come from server.auth.keys. Each key carries a set of scopes naming
// the endpoints it may call; a key without scopes may call every endpoint.
//
//	store, err := auth.NewKeyStore(cfg.Server.Auth.Keys)
//	if err != nil {
//	    return err
//	}
//	mw := auth.NewMiddleware(store, cfg.Server.Auth.Header, handlers.WriteError)
//	r.With(mw.Require(auth.ScopeExport)).Get("/export", exportHandler)
//
// Keys are compared in constant time against SHA-256 digests, so the store
// never holds plaintext keys after construction.
package auth
