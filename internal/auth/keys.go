package auth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

const (
	AlgEd25519   = "ed25519"
	AlgSecp256k1 = "secp256k1"
	AlgRSAPSS    = "rsa-pss"
	AlgRSASHA256 = "rsa-sha256"
)

func SupportedAlg(alg string) bool {
	switch strings.ToLower(alg) {
	case AlgEd25519, AlgSecp256k1, AlgRSAPSS, AlgRSASHA256:
		return true
	}
	return false
}

// VerifySignature checks signature over message. secp256k1 signatures are
// Ethereum personal-sign style: r||s over the keccak of the prefixed message.
func VerifySignature(alg, publicKey, message, signature string) error {
	switch strings.ToLower(alg) {
	case AlgEd25519:
		pubKey, sig, err := decodeEd25519(publicKey, signature)
		if err != nil {
			return err
		}
		if !ed25519.Verify(pubKey, []byte(message), sig) {
			return errors.New("invalid ed25519 signature")
		}
		return nil
	case AlgSecp256k1:
		pubKeyBytes, sigBytes, err := decodeHexPair(publicKey, signature)
		if err != nil {
			return err
		}
		pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
		if err != nil {
			return err
		}
		if len(sigBytes) < 64 {
			return errors.New("invalid secp256k1 signature length")
		}
		r := new(big.Int).SetBytes(sigBytes[:32])
		s := new(big.Int).SetBytes(sigBytes[32:64])
		if !ecdsa.Verify(pubKey.ToECDSA(), PersonalHash([]byte(message)), r, s) {
			return errors.New("invalid secp256k1 signature")
		}
		return nil
	case AlgRSAPSS, AlgRSASHA256:
		pubKey, sig, err := decodeRSA(publicKey, signature)
		if err != nil {
			return err
		}
		h := sha256.Sum256([]byte(message))
		if strings.ToLower(alg) == AlgRSAPSS {
			if err := rsa.VerifyPSS(pubKey, crypto.SHA256, h[:], sig, nil); err != nil {
				return errors.New("invalid rsa-pss signature")
			}
			return nil
		}
		if err := rsa.VerifyPKCS1v15(pubKey, crypto.SHA256, h[:], sig); err != nil {
			return errors.New("invalid rsa signature")
		}
		return nil
	default:
		return fmt.Errorf("unsupported alg: %s", alg)
	}
}

// PersonalHash is keccak256("\x19Ethereum Signed Message:\n" + len + msg).
func PersonalHash(msg []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(msg))
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(prefix))
	h.Write(msg)
	return h.Sum(nil)
}

func decodeEd25519(pub, sig string) (ed25519.PublicKey, []byte, error) {
	pubBytes, err := decodeBase64OrHex(pub)
	if err != nil {
		return nil, nil, err
	}
	sigBytes, err := decodeBase64OrHex(sig)
	if err != nil {
		return nil, nil, err
	}
	if len(pubBytes) != ed25519.PublicKeySize {
		return nil, nil, errors.New("invalid ed25519 public key length")
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return nil, nil, errors.New("invalid ed25519 signature length")
	}
	return ed25519.PublicKey(pubBytes), sigBytes, nil
}

func decodeRSA(pub, sig string) (*rsa.PublicKey, []byte, error) {
	pubKey, err := parseRSAPublicKey(strings.TrimSpace(pub))
	if err != nil {
		return nil, nil, err
	}
	sigBytes, err := decodeBase64OrHex(sig)
	if err != nil {
		return nil, nil, err
	}
	return pubKey, sigBytes, nil
}

// parseRSAPublicKey accepts PEM (PKIX or PKCS#1) or bare base64/hex DER.
func parseRSAPublicKey(pub string) (*rsa.PublicKey, error) {
	var der []byte
	if strings.HasPrefix(pub, "-----BEGIN") {
		block, _ := pem.Decode([]byte(pub))
		if block == nil {
			return nil, errors.New("invalid pem public key")
		}
		der = block.Bytes
	} else {
		b, err := decodeBase64OrHex(pub)
		if err != nil {
			return nil, err
		}
		der = b
	}
	if parsed, err := x509.ParsePKIXPublicKey(der); err == nil {
		if pk, ok := parsed.(*rsa.PublicKey); ok {
			return pk, nil
		}
		return nil, errors.New("unsupported rsa public key")
	}
	pk, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, errors.New("unsupported rsa public key")
	}
	return pk, nil
}

func decodeHexPair(pub, sig string) ([]byte, []byte, error) {
	pubBytes, err := decodeHex(pub)
	if err != nil {
		return nil, nil, err
	}
	sigBytes, err := decodeHex(sig)
	if err != nil {
		return nil, nil, err
	}
	return pubBytes, sigBytes, nil
}

func decodeBase64OrHex(input string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(input); err == nil {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(input); err == nil {
		return b, nil
	}
	return decodeHex(input)
}

func decodeHex(input string) ([]byte, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(input), "0x")
	return hex.DecodeString(clean)
}

func randomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
