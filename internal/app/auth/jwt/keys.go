package jwt

import (
	"crypto/rsa"
	"errors"
	"os"

	"github.com/golang-jwt/jwt/v5"
	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
)

// KeyMaterial is the RSA pair tokens are signed and verified with. It is
// built once at startup and never mutated afterwards.
type KeyMaterial struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

func LoadKeyMaterial(privPath, pubPath string) (*KeyMaterial, error) {
	privPem, err := os.ReadFile(privPath)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "read private key")
	}
	pubPem, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "read public key")
	}
	return ParseKeyMaterial(privPem, pubPem)
}

func ParseKeyMaterial(privPem, pubPem []byte) (*KeyMaterial, error) {
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privPem)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "parse private key")
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPem)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "parse public key")
	}
	if !privKey.PublicKey.Equal(pubKey) {
		return nil, customErrors.WrapInternal(errors.New("public key does not match private key"), "load keys")
	}
	return &KeyMaterial{private: privKey, public: pubKey}, nil
}

// ParsePublicKeyMaterial builds verify-only material for components that
// never issue tokens.
func ParsePublicKeyMaterial(pubPem []byte) (*KeyMaterial, error) {
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPem)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "parse public key")
	}
	return &KeyMaterial{public: pubKey}, nil
}

func (k *KeyMaterial) CanSign() bool { return k != nil && k.private != nil }
