// Copyright (c) 2019-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package encrypter

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"

	"github.com/larkkit/lark-sdk-go/utils"
)

// Cipher decrypts the "encrypt" field of inbound event payloads.
type Cipher interface {
	Decrypt(encrypted string) (string, error)
}

// AESCipher implements the platform's event encryption: AES-256-CBC with the
// SHA-256 of the encrypt key as the key, and a 16-byte IV prefixed to the
// ciphertext, all base64-encoded.
type AESCipher struct {
	key []byte
}

var _ Cipher = (*AESCipher)(nil)

func NewAESCipher(encryptKey string) *AESCipher {
	sum := sha256.Sum256([]byte(encryptKey))
	return &AESCipher{key: sum[:]}
}

func (c *AESCipher) Decrypt(encrypted string) (string, error) {
	buf, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", utils.NewInvalidError("failed to decode base64 ciphertext: %v", err)
	}
	if len(buf) < 2*aes.BlockSize {
		return "", utils.NewInvalidError("ciphertext too short")
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", errors.Wrap(err, "could not create a cipher block, check key")
	}

	iv := buf[:aes.BlockSize]
	ciphertext := buf[aes.BlockSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return "", utils.NewInvalidError("ciphertext is not a multiple of the block size")
	}

	// CryptBlocks can work in-place if the two arguments are the same.
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(ciphertext, ciphertext)

	plain, err := unpad(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Encrypt produces a payload in the same format the platform sends, with a
// random IV. It is used by tests and local tooling.
func (c *AESCipher) Encrypt(plain string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", errors.Wrap(err, "could not create a cipher block, check key")
	}

	padded := pad([]byte(plain))
	out := make([]byte, aes.BlockSize+len(padded))
	iv := out[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", errors.Wrap(err, "readFull was unsuccessful, check buffer size")
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, utils.NewInvalidError("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, utils.NewInvalidError("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, utils.NewInvalidError("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
