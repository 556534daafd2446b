package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"bank-cards/internal/core/domain"
)

const maskPrefix = "**** **** **** "

// AESCardNumberService implements ports.CardNumberService using AES-256-GCM
// with a synthetic nonce, so the same number always encrypts to the same
// ciphertext under one key.
type AESCardNumberService struct {
	aead   cipher.AEAD
	macKey []byte
	rand   io.Reader
}

// NewAESCardNumberService creates a card number service.
// hexKey must be a 64-character hex string (32 bytes decoded).
func NewAESCardNumberService(hexKey string) (*AESCardNumberService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding AES key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("AES key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	// The nonce key is derived so the raw AES key is never fed to HMAC.
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("card-number-nonce"))

	return &AESCardNumberService{aead: aead, macKey: mac.Sum(nil), rand: rand.Reader}, nil
}

// Generate returns 16 uniformly random decimal digits.
func (s *AESCardNumberService) Generate() (string, error) {
	var b strings.Builder
	b.Grow(domain.CardNumberLength)
	buf := make([]byte, 1)
	for b.Len() < domain.CardNumberLength {
		if _, err := io.ReadFull(s.rand, buf); err != nil {
			return "", fmt.Errorf("reading random digits: %w", err)
		}
		// Reject 250..255 to keep digits uniform.
		if buf[0] >= 250 {
			continue
		}
		b.WriteByte('0' + buf[0]%10)
	}
	return b.String(), nil
}

// Encrypt returns hex(nonce || ciphertext).
func (s *AESCardNumberService) Encrypt(plaintext string) (string, error) {
	mac := hmac.New(sha256.New, s.macKey)
	mac.Write([]byte(plaintext))
	nonce := make([]byte, s.aead.NonceSize())
	copy(nonce, mac.Sum(nil))

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (s *AESCardNumberService) Decrypt(ciphertextHex string) (string, error) {
	raw, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ct := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	return string(plaintext), nil
}

// Mask decrypts the number and renders "**** **** **** 1234".
func (s *AESCardNumberService) Mask(ciphertext string) (string, error) {
	plain, err := s.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	if !isCardNumber(plain) {
		return "", domain.ErrInvalidCardNumber
	}
	return maskPrefix + plain[12:], nil
}

// Format renders a plaintext number as four space-separated groups.
func (s *AESCardNumberService) Format(plaintext string) (string, error) {
	if !isCardNumber(plaintext) {
		return "", domain.ErrInvalidCardNumber
	}
	return plaintext[0:4] + " " + plaintext[4:8] + " " + plaintext[8:12] + " " + plaintext[12:16], nil
}

func isCardNumber(s string) bool {
	if len(s) != domain.CardNumberLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
