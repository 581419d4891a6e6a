// Package secrets resolves ${secret:name} references in configuration.
//
// Credentials such as service passwords, Git tokens and API keys may be
// written as references instead of literal values:
//
//	info:
//	  password: ${secret:info-password}
//
// A Manager looks each name up in its providers in order. The file provider
// reads one file per secret from a directory (the layout of Kubernetes and
// Docker secret mounts); the environment provider maps "info-password" to
// AUDITEXPORT_SECRET_INFO_PASSWORD.
//
//	mgr, err := secrets.NewManagerFromConfig(&cfg.Secrets)
//	if err != nil {
//	    return err
//	}
//	if err := mgr.ResolveConfig(ctx, cfg); err != nil {
//	    return err
//	}
package secrets
