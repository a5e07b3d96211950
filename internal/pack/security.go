package pack

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"go.mozilla.org/pkcs7"
)

// ErrSignatureInvalid is returned by Verify when a detached signature
// fails to validate against the pack bytes it was handed.
var ErrSignatureInvalid = errors.New("pack: signature does not verify against pack contents")

// SignatureInfo carries the parts of the signer's certificate worth
// surfacing to a UI without exposing the raw ASN.1 structures.
type SignatureInfo struct {
	Issuer    string
	Subject   string
	NotBefore time.Time
	NotAfter  time.Time
}

// Sign produces a detached PKCS#7 signature over data using cert and its
// matching private key, for publishers that want to let players verify a
// mod pack came from them unmodified.
func Sign(data []byte, cert *x509.Certificate, key crypto.PrivateKey) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(data)
	if err != nil {
		return nil, fmt.Errorf("pack: sign: %w", err)
	}
	if err := sd.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("pack: sign: %w", err)
	}
	sd.Detach()
	return sd.Finish()
}

// Verify checks a detached PKCS#7 signature (sigDER) against data (the
// full encoded pack). On success it returns the signer's certificate
// details; on failure it returns ErrSignatureInvalid wrapping the
// underlying pkcs7 error.
func Verify(data, sigDER []byte) (*SignatureInfo, error) {
	p7, err := pkcs7.Parse(sigDER)
	if err != nil {
		return nil, fmt.Errorf("pack: parse signature: %w", err)
	}
	p7.Content = data

	if err := p7.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	if len(p7.Certificates) == 0 {
		return nil, fmt.Errorf("%w: no signer certificate present", ErrSignatureInvalid)
	}
	cert := p7.Certificates[0]
	return &SignatureInfo{
		Issuer:    cert.Issuer.CommonName,
		Subject:   cert.Subject.CommonName,
		NotBefore: cert.NotBefore,
		NotAfter:  cert.NotAfter,
	}, nil
}
