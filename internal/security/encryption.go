package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

const charset = "qwertyuiopasdfghjklzxcvbnmQWERTYUIOPASDFGHJKLZXCVBNM1234567890-_|!/"

var (
	ErrMissingKey = errors.New("secret key is not set; export SIMPLEBUILD_SECRET_KEY")
	ErrCipherText = errors.New("cipher text is too short")
)

type Encrypter interface {
	EncryptAES(string) (string, error)
	DecryptAES(string) ([]byte, error)
}

type AESEncrypter struct {
	Key []byte
}

func NewAESEncrypter(key []byte) *AESEncrypter {
	return &AESEncrypter{Key: key}
}

func (e *AESEncrypter) gcm() (cipher.AEAD, error) {
	if len(e.Key) == 0 {
		return nil, ErrMissingKey
	}
	c, err := aes.NewCipher(e.Key)
	if err != nil {
		return nil, fmt.Errorf("err creating cipher: %w", err)
	}
	return cipher.NewGCM(c)
}

func (e *AESEncrypter) EncryptAES(text string) (string, error) {
	gcm, err := e.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := gcm.Seal(nonce, nonce, []byte(text), nil)
	return hex.EncodeToString(out), nil
}

func (e *AESEncrypter) DecryptAES(encrypted string) ([]byte, error) {
	cipherText, err := hex.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("err decoding hex: %w", err)
	}
	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(cipherText) < nonceSize {
		return nil, ErrCipherText
	}
	nonce, cipherText := cipherText[:nonceSize], cipherText[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return nil, fmt.Errorf("err opening gcm: %w", err)
	}
	return plaintext, nil
}

// GenerateRandomKey returns a printable key usable as SIMPLEBUILD_SECRET_KEY
// when length is 16, 24 or 32.
func GenerateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	n := big.NewInt(int64(len(charset)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", err
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b), nil
}
