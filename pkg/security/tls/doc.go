/*
Package tls builds the HTTPS configuration of the export server.

The key pair is served through a CertificateReloader so a renewed
certificate is picked up without a restart:

	tlsConfig, reloader, err := tls.NewServerConfig(&cfg.Server.TLS)
	if err != nil {
		return err
	}
	go reloader.Run(ctx)
	srv.TLSConfig = tlsConfig

Setting client_ca_file additionally verifies client certificates against
the given CAs, either always ("require") or only when one is presented
("verify_if_given").
*/
package tls
