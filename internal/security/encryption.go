package security

import (
	"crypto/aes"
	"crypto/cipher"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"os"

	"github.com/gorilla/securecookie"
)

type Encrypter interface {
	EncryptAES(string) string
	DecryptAES(string) ([]byte, error)
}

type AESEncrypter struct {
	Key []byte
}

func NewAESEncrypter(key []byte) *AESEncrypter {
	return &AESEncrypter{Key: key}
}

func (e *AESEncrypter) EncryptAES(text string) string {
	c, err := aes.NewCipher(e.Key)
	if err != nil {
		log.Fatal(err)
	}

	gcm, err := cipher.NewGCM(c)
	if err != nil {
		log.Fatal(err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := crand.Read(nonce); err != nil {
		log.Fatal(err)
	}

	out := gcm.Seal(nonce, nonce, []byte(text), nil)
	return hex.EncodeToString(out)
}

func (e *AESEncrypter) DecryptAES(encrypted string) ([]byte, error) {
	cipherText, err := hex.DecodeString(encrypted)
	if err != nil {
		log.Println("err decoding hex")
		return nil, err
	}

	c, err := aes.NewCipher(e.Key)
	if err != nil {
		log.Println("err new cipher")
		return nil, err
	}

	gcm, err := cipher.NewGCM(c)
	if err != nil {
		log.Println("err new gcm")
		return nil, err
	}
	if len(cipherText) < gcm.NonceSize() {
		return nil, errors.New("ciphertext shorter than nonce")
	}
	nonceSize := gcm.NonceSize()
	nonce, cipherText := cipherText[:nonceSize], cipherText[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, cipherText, nil)
	if err != nil {
		log.Println("err opening gcm")
		return nil, err
	}
	return plaintext, nil
}

// NewVaultKey returns the AES key used to encrypt stored credentials,
// generating and persisting one into .env on first start.
func NewVaultKey() []byte {
	vk, ok := os.LookupEnv("SECPIPE_VAULT_KEY")
	if ok {
		return []byte(vk)
	}
	key := hex.EncodeToString(securecookie.GenerateRandomKey(16))
	writeToDotenv("SECPIPE_VAULT_KEY", key)
	return []byte(key)
}

func writeToDotenv(name, value string) {
	f, err := os.OpenFile(".env", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if _, err := f.Write([]byte(name + "=" + value + "\n")); err != nil {
		log.Fatal(err)
	}
}
