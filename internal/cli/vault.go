package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amirbrooks/todo-vault/internal/codec"
	"github.com/amirbrooks/todo-vault/internal/envelope"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		passphrase string
		out        string
		format     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole snapshot as an encrypted token",
		Long: `Encrypt every project, task and the filters into one text token.

The default age format is an ASCII-armored age file. --format openssl writes
the "Salted__" AES token that CryptoJS passphrase encryption produces.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := a.passphrase(passphrase)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("format") {
				if a.exportFormat, err = envelope.ParseFormat(format); err != nil {
					return err
				}
			}
			if err := a.open(); err != nil {
				return err
			}
			token, err := a.tr.Export(pass)
			if err != nil {
				return internalErr(err)
			}
			token = strings.TrimRight(token, "\n") + "\n"
			if out == "" || out == "-" {
				_, err := io.WriteString(a.stdout, token)
				return err
			}
			if err := writeToken(out, token); err != nil {
				return internalErr(err)
			}
			a.say("Wrote encrypted snapshot to: %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "Passphrase (default: "+EnvPassphrase+")")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&format, "format", "", "Token format: age|openssl (default from config)")
	return cmd
}

func writeToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

func (a *app) importCmd() *cobra.Command {
	var passphrase string
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the snapshot with the content of an encrypted token",
		Long:  "Read a token from file, or from stdin when no file or - is given. The format (age or openssl) is detected.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := a.passphrase(passphrase)
			if err != nil {
				return err
			}
			var raw []byte
			if len(args) == 0 || args[0] == "-" {
				raw, err = io.ReadAll(a.stdin)
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return internalErr(fmt.Errorf("read token: %w", err))
			}
			if err := a.open(); err != nil {
				return err
			}
			if err := a.tr.Import(string(raw), pass); err != nil {
				return err
			}
			if err := a.saved(); err != nil {
				return err
			}
			n := 0
			for _, p := range a.tr.Projects() {
				n += p.Count()
			}
			a.say("Imported %d projects, %d tasks\n", len(a.tr.Projects()), n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "Passphrase (default: "+EnvPassphrase+")")
	return cmd
}

func (a *app) doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Report where the stored snapshot deviates from its expected shape",
		Long:  "Loading repairs these deviations silently; doctor lists them so they can be inspected before the next save overwrites the slot.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			issues, err := a.gw.Diagnose()
			if err != nil {
				return internalErr(err)
			}
			a.say("store: %s (%s), key %s\n", a.cfg.StorePath(), a.cfg.Backend, a.gw.Key())
			if len(issues) == 0 {
				a.say("OK: snapshot is well formed\n")
				return nil
			}
			for _, issue := range issues {
				a.printf("%s\n", issue)
			}
			return fmt.Errorf("%w: %d issue(s) in stored snapshot", codec.ErrMalformed, len(issues))
		},
	}
}
