package accounts_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/louisbranch/ocfweb/internal/services/accounts"
)

func keyPair(t *testing.T) (privatePEM, publicPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	privatePEM, publicPEM, err = accounts.EncodeKeyPair(key)
	if err != nil {
		t.Fatalf("encode key pair: %v", err)
	}
	return privatePEM, publicPEM
}
