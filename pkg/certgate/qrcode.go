package certgate

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"time"

	"github.com/skip2/go-qrcode"
	"golang.org/x/crypto/sha3"
)

// QRPayload is the machine-readable block burned into a certificate so a
// scanner can verify it without hitting the original artwork.
type QRPayload struct {
	CertificateNumber string `json:"certificateNumber"`
	RecipientName     string `json:"recipientName"`
	IssueDate         string `json:"issueDate"`
	VerificationHash  string `json:"verificationHash"`
}

// VerificationHash binds the certificate facts to a server-held secret so a
// forged QR block fails verification.
func VerificationHash(certificateNumber, recipientName string, issuedAt time.Time, secret string) string {
	sum := sha3.Sum256(fmt.Appendf(nil, "%s|%s|%s|%s",
		certificateNumber, recipientName, FormatIssueDate(issuedAt), secret))
	return hex.EncodeToString(sum[:])
}

func NewQRPayload(certificateNumber, recipientName string, issuedAt time.Time, secret string) QRPayload {
	return QRPayload{
		CertificateNumber: certificateNumber,
		RecipientName:     recipientName,
		IssueDate:         FormatIssueDate(issuedAt),
		VerificationHash:  VerificationHash(certificateNumber, recipientName, issuedAt, secret),
	}
}

// GenerateQRCodeImage encodes the payload into a QR symbol of sizePx pixels.
func GenerateQRCodeImage(payload QRPayload, sizePx int) (image.Image, error) {
	content, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal QR payload: %w", err)
	}

	qr, err := qrcode.New(string(content), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	qr.DisableBorder = true

	return qr.Image(sizePx), nil
}
