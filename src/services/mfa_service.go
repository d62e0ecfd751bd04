package services

import (
	"bytes"
	"encoding/base64"
	"image/png"

	"github.com/pquerna/otp/totp"
)

// MFAService wraps TOTP secret generation and token validation.
type MFAService struct{}

func NewMFAService() *MFAService {
	return &MFAService{}
}

// GenerateMFASecret creates a new TOTP secret for the account and returns it
// together with a base64-encoded QR code PNG for the authenticator app.
func (s *MFAService) GenerateMFASecret(username string) (secret string, qrCodeBase64 string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "FinAssist",
		AccountName: username,
	})
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	img, err := key.Image(200, 200)
	if err != nil {
		return "", "", err
	}
	if err := png.Encode(&buf, img); err != nil {
		return "", "", err
	}

	return key.Secret(), base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ValidateToken checks a 6-digit TOTP token against the stored secret,
// allowing for slight clock skew.
func (s *MFAService) ValidateToken(secret, token string) bool {
	return totp.Validate(token, secret)
}
