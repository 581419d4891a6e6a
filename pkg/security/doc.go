/*
Package security groups the transport, credential and access controls of the
audit export service.

# TLS

Package tls builds the server's tls.Config and reloads the certificate when
the files on disk change:

	tlsCfg, reloader, err := tls.NewServerConfig(&cfg.Server.TLS)
	if err != nil {
		return err
	}
	g.Go(func() error { return reloader.Run(ctx) })

# Secrets

Package secrets resolves ${secret:name} references in credential fields
from a directory of secret files and the environment:

	mgr, err := secrets.NewManagerFromConfig(&cfg.Secrets)
	if err != nil {
		return err
	}
	err = mgr.ResolveConfig(ctx, cfg)

# API Key Authentication

Package auth checks API keys and scopes on the export and audit routes:

	keys, err := auth.NewKeyStore(cfg.Server.Auth.Keys)
	if err != nil {
		return err
	}
	mw := auth.NewMiddleware(keys, cfg.Server.Auth.Header, handlers.WriteError)
	r.With(mw.Require(auth.ScopeExport)).Get("/export", exportHandler)
*/
package security
