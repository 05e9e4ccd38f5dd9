// Package secrets 渠道凭证的落库加密
//
// 密文格式: enc:v1:<nonce base64>:<ciphertext base64>
// 算法 XChaCha20-Poly1305，密钥由配置的主密钥经 HKDF-SHA256 派生。
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const prefix = "enc:v1:"

var hkdfInfo = []byte("omnichannel/channel-secrets/v1")

var (
	// ErrNoKey 没有配置密钥却遇到了密文
	ErrNoKey = errors.New("secrets: encrypted value but no key configured")
	// ErrMalformed 密文格式错误
	ErrMalformed = errors.New("secrets: malformed encrypted value")
)

// Box 加解密器；未配置密钥时原样透传（仅开发环境）
type Box struct {
	aead interface {
		NonceSize() int
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// New 由主密钥创建Box，masterKey为空时返回透传Box
func New(masterKey string) (*Box, error) {
	if masterKey == "" {
		return &Box{}, nil
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(masterKey), nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("secrets: derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("secrets: init cipher: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Enabled 是否配置了密钥
func (b *Box) Enabled() bool {
	return b.aead != nil
}

// IsEncrypted 值是否是本包产生的密文
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, prefix)
}

// Seal 加密；空串和透传模式下原样返回
func (b *Box) Seal(plaintext string) (string, error) {
	if plaintext == "" || !b.Enabled() {
		return plaintext, nil
	}

	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secrets: nonce: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, []byte(plaintext), nil)

	return prefix + base64.StdEncoding.EncodeToString(nonce) + ":" + base64.StdEncoding.EncodeToString(ct), nil
}

// Open 解密；不带前缀的值视为历史明文直接返回
func (b *Box) Open(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	if !b.Enabled() {
		return "", ErrNoKey
	}

	parts := strings.Split(strings.TrimPrefix(value, prefix), ":")
	if len(parts) != 2 {
		return "", ErrMalformed
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != b.aead.NonceSize() {
		return "", ErrMalformed
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrMalformed
	}

	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("secrets: decrypt: %w", err)
	}
	return string(pt), nil
}
