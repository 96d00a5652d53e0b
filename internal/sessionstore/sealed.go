package sessionstore

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const envelopeVersion = 1

// ErrWrongPassphrase is returned when a sealed session cannot be opened.
var ErrWrongPassphrase = errors.New("sessionstore: wrong passphrase or corrupted session")

// scrypt cost parameters for new envelopes. Stored envelopes carry their own.
var (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

type envelope struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// Sealed encrypts sessions with a passphrase before handing them to the
// wrapped store. The entry name is bound as associated data so a sealed blob
// cannot be moved to another name.
type Sealed struct {
	Store
	passphrase string
}

// NewSealed wraps inner.
func NewSealed(inner Store, passphrase string) *Sealed {
	return &Sealed{Store: inner, passphrase: passphrase}
}

// Load implements Store.
func (s *Sealed) Load(ctx context.Context, name string) (Entry, error) {
	e, err := s.Store.Load(ctx, name)
	if err != nil {
		return Entry{}, err
	}
	plain, err := open(s.passphrase, name, e.Session)
	if err != nil {
		return Entry{}, err
	}
	e.Session = plain
	return e, nil
}

// Save implements Store.
func (s *Sealed) Save(ctx context.Context, e Entry) error {
	if e.Session.Empty() {
		return errors.New("sessionstore: refusing to save an empty session")
	}
	sealed, err := seal(s.passphrase, e.Name, e.Session)
	if err != nil {
		return err
	}
	e.Session = sealed
	return s.Store.Save(ctx, e)
}

func seal(passphrase, name string, plain []byte) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, fmt.Errorf("sessionstore: salt: %w", err)
	}
	aead, err := deriveAEAD(passphrase, salt[:], scryptN, scryptR, scryptP)
	if err != nil {
		return nil, err
	}
	// The key is unique per salt, so a fixed nonce is never reused.
	var nonce [chacha20poly1305.NonceSize]byte
	return json.Marshal(envelope{
		V:      envelopeVersion,
		Salt:   salt[:],
		N:      scryptN,
		R:      scryptR,
		P:      scryptP,
		Cipher: aead.Seal(nil, nonce[:], plain, []byte(name)),
	})
}

func open(passphrase, name string, data []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("sessionstore: session %s is not sealed: %w", name, err)
	}
	if env.V > envelopeVersion {
		return nil, fmt.Errorf("sessionstore: unsupported envelope version %d", env.V)
	}
	aead, err := deriveAEAD(passphrase, env.Salt, env.N, env.R, env.P)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	plain, err := aead.Open(nil, nonce[:], env.Cipher, []byte(name))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plain, nil
}

func deriveAEAD(passphrase string, salt []byte, n, r, p int) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, n, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: derive key: %w", err)
	}
	return chacha20poly1305.New(key)
}
