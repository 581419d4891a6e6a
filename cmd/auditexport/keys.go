package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"casework-hq/auditexport/pkg/cli"
	"casework-hq/auditexport/pkg/security/auth"
)

// apiKeyPrefix marks generated keys so they are recognisable in leaks.
const apiKeyPrefix = "aex_"

var keysFlags struct {
	name      string
	scopes    []string
	secretDir string
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an API key",
	Long: `Generate a random API key and print the server.auth.keys entry for it.

With --secret-dir the key is written to <dir>/<name>-api-key with mode 0600
and the entry references it as ${secret:<name>-api-key}, so the key itself
never appears in the configuration file.

Examples:
  # Key for the reporting team, export only
  auditexport keys generate --name reporting

  # Key for a casework service that posts audit commands
  auditexport keys generate --name casework --scopes audit --secret-dir /run/secrets`,
	Annotations: map[string]string{skipConfig: "true"},
	RunE:        generateKey,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysGenerateCmd)

	keysGenerateCmd.Flags().StringVar(&keysFlags.name, "name", "", "key name, logged with every request (required)")
	keysGenerateCmd.Flags().StringSliceVar(&keysFlags.scopes, "scopes", []string{auth.ScopeExport}, "granted scopes (export, audit)")
	keysGenerateCmd.Flags().StringVar(&keysFlags.secretDir, "secret-dir", "", "write the key to this secrets directory")
}

func generateKey(cmd *cobra.Command, args []string) error {
	if keysFlags.name == "" {
		return cli.NewUsageError("keys generate", errors.New("--name is required"))
	}
	for _, s := range keysFlags.scopes {
		if s != auth.ScopeExport && s != auth.ScopeAudit {
			return cli.NewUsageError("keys generate", fmt.Errorf("unknown scope %q", s))
		}
	}

	key, err := newAPIKey()
	if err != nil {
		return cli.NewCommandError("keys generate", err)
	}

	value := key
	printer := cli.NewPrinter(cmd.ErrOrStderr())
	if keysFlags.secretDir != "" {
		secretName := keysFlags.name + "-api-key"
		path := filepath.Join(keysFlags.secretDir, secretName)
		if err := writeSecretFile(path, key); err != nil {
			return cli.NewCommandError("keys generate", err)
		}
		value = "${secret:" + secretName + "}"
		printer.Success("key written to %s", path)
	} else {
		printer.Warn("store this key securely; it is not shown again")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "server:")
	fmt.Fprintln(out, "  auth:")
	fmt.Fprintln(out, "    keys:")
	fmt.Fprintf(out, "      - name: %q\n", keysFlags.name)
	fmt.Fprintf(out, "        key: %q\n", value)
	fmt.Fprintf(out, "        scopes: [%s]\n", strings.Join(keysFlags.scopes, ", "))
	return nil
}

func newAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

func writeSecretFile(path, value string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create secrets directory: %w", err)
	}
	// O_EXCL keeps an existing key from being silently replaced.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create secret file: %w", err)
	}
	if _, err := f.WriteString(value + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to write secret file: %w", err)
	}
	return f.Close()
}
