package main

import (
	stdtls "crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"casework-hq/auditexport/pkg/cli"
	"casework-hq/auditexport/pkg/config"
	"casework-hq/auditexport/pkg/security/tls"
)

var certsFlags struct {
	certFile string
	keyFile  string
	output   string
}

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Inspect TLS certificates",
}

var certsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the server certificate",
	Long: `Load the server certificate and key, check that they match and that the
certificate is currently valid, and report how long it has left.

Files default to server.tls.cert_file and server.tls.key_file.

Examples:
  auditexport certs check
  auditexport certs check --cert server.crt --key server.key --output json`,
	RunE: checkCerts,
}

func init() {
	rootCmd.AddCommand(certsCmd)
	certsCmd.AddCommand(certsCheckCmd)

	certsCheckCmd.Flags().StringVar(&certsFlags.certFile, "cert", "", "certificate file (default server.tls.cert_file)")
	certsCheckCmd.Flags().StringVar(&certsFlags.keyFile, "key", "", "private key file (default server.tls.key_file)")
	certsCheckCmd.Flags().StringVar(&certsFlags.output, "output", "text", "summary format (text, json)")
}

type certSummary struct {
	Subject       string    `json:"subject"`
	Issuer        string    `json:"issuer"`
	DNSNames      []string  `json:"dns_names,omitempty"`
	NotAfter      time.Time `json:"not_after"`
	DaysRemaining int       `json:"days_remaining"`
	ExpiringSoon  bool      `json:"expiring_soon"`
}

func (s certSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "subject:   %s\n", s.Subject)
	fmt.Fprintf(&b, "issuer:    %s\n", s.Issuer)
	if len(s.DNSNames) > 0 {
		fmt.Fprintf(&b, "dns names: %s\n", strings.Join(s.DNSNames, ", "))
	}
	fmt.Fprintf(&b, "expires:   %s (%d days)", s.NotAfter.Format(time.RFC3339), s.DaysRemaining)
	return b.String()
}

func checkCerts(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()
	certFile, keyFile := certsFlags.certFile, certsFlags.keyFile
	if certFile == "" {
		certFile = cfg.Server.TLS.CertFile
	}
	if keyFile == "" {
		keyFile = cfg.Server.TLS.KeyFile
	}
	if certFile == "" || keyFile == "" {
		return cli.NewUsageError("certs check", errors.New("certificate and key files are required"))
	}

	format, err := cli.ParseOutputFormat(certsFlags.output)
	if err != nil {
		return cli.NewUsageError("certs check", err)
	}

	pair, err := stdtls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return cli.NewCommandError("certs check", fmt.Errorf("failed to load key pair: %w", err))
	}
	now := time.Now()
	leaf, err := tls.ValidateCertificate(&pair, now)
	if err != nil {
		return cli.NewCommandError("certs check", err)
	}
	days, soon := tls.DaysUntilExpiry(leaf, now)

	summary := certSummary{
		Subject:       leaf.Subject.String(),
		Issuer:        leaf.Issuer.String(),
		DNSNames:      leaf.DNSNames,
		NotAfter:      leaf.NotAfter.UTC(),
		DaysRemaining: days,
		ExpiringSoon:  soon,
	}
	if soon {
		cli.NewPrinter(cmd.ErrOrStderr()).Warn("certificate expires in %d days", days)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), summary)
}
