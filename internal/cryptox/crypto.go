// Package cryptox derives keys from user passwords and seals opaque blobs
// with AES-GCM.
//
// Login never sends the password: the client derives a master key with
// argon2id from password+salt and sends only MakeVerifier(masterKey).
// Backup archives are sealed under a key derived the same way from a
// passphrase, with a random salt stored in the blob header.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"

	"github.com/dmitrijs2005/finsync/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 16
	KeySize  = 32
)

// ErrMalformed is returned by Open for blobs too short to hold a header.
var ErrMalformed = errors.New("malformed sealed blob")

// DeriveMasterKey stretches password with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

// MakeVerifier is what the server stores and compares at login.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// Seal encrypts plaintext under a key derived from passphrase.
// Layout: salt | nonce | ciphertext.
func Seal(plaintext, passphrase []byte) ([]byte, error) {
	salt := common.GenerateRandByteArray(SaltSize)
	key := DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := common.GenerateRandByteArray(gcm.NonceSize())

	out := make([]byte, 0, SaltSize+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// Open reverses Seal. A wrong passphrase or tampered blob fails
// authentication and returns an error.
func Open(blob, passphrase []byte) ([]byte, error) {
	if len(blob) < SaltSize {
		return nil, ErrMalformed
	}
	key := DeriveMasterKey(passphrase, blob[:SaltSize])
	defer common.WipeByteArray(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	rest := blob[SaltSize:]
	if len(rest) < gcm.NonceSize()+gcm.Overhead() {
		return nil, ErrMalformed
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
