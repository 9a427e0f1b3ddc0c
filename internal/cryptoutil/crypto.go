// Package cryptoutil implements the two transformations applied to upload
// records: a keyed MAC over the row's verification code and a reversible
// encryption of the retrieval URL. The ciphertext uses the OpenSSL "Salted__"
// envelope (MD5-based EVP key derivation, AES-256-CBC, PKCS#7 padding) so
// downstream consumers of the feed can decrypt with their existing tooling.
package cryptoutil

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	saltedPrefix = "Salted__"
	saltLen      = 8
	keyLen       = 32
)

// HashVerificationCode returns the hex-encoded HMAC-MD5 of the verification
// code under the run's key. One-way: the sink only ever compares hashes.
func HashVerificationCode(code, key string) string {
	mac := hmac.New(md5.New, []byte(key))
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// EncryptReference encrypts a retrieval URL under the run's key and returns
// it base64-encoded.
func EncryptReference(plaintext, key string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	aesKey, iv := evpBytesToKey([]byte(key), salt, keyLen, aes.BlockSize)
	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	envelope := make([]byte, 0, len(saltedPrefix)+saltLen+len(ciphertext))
	envelope = append(envelope, saltedPrefix...)
	envelope = append(envelope, salt...)
	envelope = append(envelope, ciphertext...)
	return base64.StdEncoding.EncodeToString(envelope), nil
}

// DecryptReference reverses EncryptReference.
func DecryptReference(encoded, key string) (string, error) {
	envelope, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(envelope) < len(saltedPrefix)+saltLen || string(envelope[:len(saltedPrefix)]) != saltedPrefix {
		return "", fmt.Errorf("ciphertext is not in the salted envelope format")
	}
	salt := envelope[len(saltedPrefix) : len(saltedPrefix)+saltLen]
	ciphertext := envelope[len(saltedPrefix)+saltLen:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(ciphertext))
	}

	aesKey, iv := evpBytesToKey([]byte(key), salt, keyLen, aes.BlockSize)
	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// evpBytesToKey derives a key and IV from a passphrase and salt by chained
// MD5 digests, matching OpenSSL's EVP_BytesToKey.
func evpBytesToKey(pass, salt []byte, keyLen, ivLen int) (key, iv []byte) {
	var derived, block []byte
	for len(derived) < keyLen+ivLen {
		h := md5.New()
		h.Write(block)
		h.Write(pass)
		h.Write(salt)
		block = h.Sum(nil)
		derived = append(derived, block...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+ivLen]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unpad empty plaintext")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
