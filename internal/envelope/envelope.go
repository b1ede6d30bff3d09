// Package envelope turns a whole AppData snapshot into a single
// passphrase-protected text token and back.
//
// Unlike the store, the envelope never degrades silently: encryption errors
// are returned, and every decryption failure is ErrUnableToDecrypt so the
// caller can ask for another passphrase.
package envelope

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
	openssl "github.com/Luzifer/go-openssl/v4"

	"github.com/amirbrooks/todo-vault/internal/codec"
	"github.com/amirbrooks/todo-vault/internal/model"
)

var (
	ErrUnableToDecrypt = errors.New("unable to decrypt")
	ErrEmptyPassphrase = errors.New("passphrase is empty")
)

type Format string

const (
	// FormatAge is an ASCII-armored age file with an scrypt passphrase stanza.
	FormatAge Format = "age"
	// FormatOpenSSL is the "Salted__" AES-256-CBC format CryptoJS produces
	// for passphrase encryption, base64 encoded.
	FormatOpenSSL Format = "openssl"
)

const (
	DefaultWorkFactor = 18
	// maxWorkFactor bounds the scrypt cost a token may ask us to pay.
	maxWorkFactor = 22
	opensslPrefix = "U2FsdGVkX1" // base64 of "Salted__"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatAge:
		return FormatAge, nil
	case FormatOpenSSL, "cryptojs":
		return FormatOpenSSL, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// Detect identifies the format of token from its prefix.
func Detect(token string) (Format, bool) {
	token = strings.TrimSpace(token)
	switch {
	case strings.HasPrefix(token, armor.Header):
		return FormatAge, true
	case strings.HasPrefix(token, opensslPrefix):
		return FormatOpenSSL, true
	default:
		return "", false
	}
}

type Envelope struct {
	format     Format
	workFactor int
}

type Option func(*Envelope)

func WithFormat(f Format) Option {
	return func(e *Envelope) {
		if f != "" {
			e.format = f
		}
	}
}

// WithWorkFactor sets the scrypt cost (log2 N) for age tokens. Values
// outside 1..22 are ignored, so every token written here can be read back
// by any envelope.
func WithWorkFactor(logN int) Option {
	return func(e *Envelope) {
		if logN >= 1 && logN <= maxWorkFactor {
			e.workFactor = logN
		}
	}
}

func New(opts ...Option) *Envelope {
	e := &Envelope{format: FormatAge, workFactor: DefaultWorkFactor}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Envelope) Format() Format { return e.format }

// Encrypt serializes data with the tree codec and encrypts the text.
func (e *Envelope) Encrypt(data model.AppData, passphrase string) (string, error) {
	if passphrase == "" {
		return "", ErrEmptyPassphrase
	}
	plaintext, err := codec.Marshal(data)
	if err != nil {
		return "", err
	}
	switch e.format {
	case FormatAge:
		return e.encryptAge(plaintext, passphrase)
	case FormatOpenSSL:
		out, err := openssl.New().EncryptBytes(passphrase, plaintext, openssl.BytesToKeyMD5)
		if err != nil {
			return "", fmt.Errorf("encrypt snapshot: %w", err)
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("unknown export format %q", e.format)
	}
}

func (e *Envelope) encryptAge(plaintext []byte, passphrase string) (string, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return "", fmt.Errorf("encrypt snapshot: %w", err)
	}
	recipient.SetWorkFactor(e.workFactor)

	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, recipient)
	if err != nil {
		return "", fmt.Errorf("encrypt snapshot: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("encrypt snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("encrypt snapshot: %w", err)
	}
	if err := aw.Close(); err != nil {
		return "", fmt.Errorf("armor snapshot: %w", err)
	}
	return buf.String(), nil
}

// Decrypt recovers the snapshot from token. Any failure, including a wrong
// passphrase, yields an error matching ErrUnableToDecrypt.
func (e *Envelope) Decrypt(token, passphrase string) (model.AppData, error) {
	format, ok := Detect(token)
	if !ok {
		return model.AppData{}, fmt.Errorf("%w: unrecognized token", ErrUnableToDecrypt)
	}
	var (
		plaintext []byte
		err       error
	)
	switch format {
	case FormatAge:
		plaintext, err = e.decryptAge(token, passphrase)
	case FormatOpenSSL:
		plaintext, err = openssl.New().DecryptBytes(passphrase, []byte(strings.TrimSpace(token)), openssl.BytesToKeyMD5)
	}
	if err != nil {
		return model.AppData{}, fmt.Errorf("%w: %v", ErrUnableToDecrypt, err)
	}
	if len(bytes.TrimSpace(plaintext)) == 0 {
		return model.AppData{}, fmt.Errorf("%w: empty plaintext", ErrUnableToDecrypt)
	}
	data, err := codec.Unmarshal(plaintext)
	if err != nil {
		return model.AppData{}, fmt.Errorf("%w: %v", ErrUnableToDecrypt, err)
	}
	return data, nil
}

func (e *Envelope) decryptAge(token, passphrase string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	identity.SetMaxWorkFactor(maxWorkFactor)
	r, err := age.Decrypt(armor.NewReader(strings.NewReader(strings.TrimSpace(token)+"\n")), identity)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

var defaultEnvelope = New()

// Encrypt uses an age envelope with the default work factor.
func Encrypt(data model.AppData, passphrase string) (string, error) {
	return defaultEnvelope.Encrypt(data, passphrase)
}

// Decrypt accepts both age and OpenSSL/CryptoJS tokens.
func Decrypt(token, passphrase string) (model.AppData, error) {
	return defaultEnvelope.Decrypt(token, passphrase)
}
