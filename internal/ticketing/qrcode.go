// Package ticketing generates the encrypted QR payload stamped onto
// each issued ticket, adapted from the ticketing platform's qr
// generator: AES-CFB encrypt a JSON ticket summary, then QR-encode the
// ciphertext.
package ticketing

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/skip2/go-qrcode"

	"order-orchestrator/internal/models"
)

type QRGenerator struct {
	secret []byte
}

// NewQRGenerator derives a 32-byte AES-256 key from secret so callers
// can pass any passphrase-length configuration value.
func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret))
	return &QRGenerator{secret: hashed[:]}
}

type ticketQRPayload struct {
	TicketID int64  `json:"ticket_id"`
	OrderID  int64  `json:"order_id"`
	EventID  int64  `json:"event_id"`
	SeatID   string `json:"seat_id"`
}

// Generate returns a PNG-encoded QR code whose payload is the
// AES-encrypted, base64-encoded JSON summary of ticket.
func (q *QRGenerator) Generate(ticket models.Ticket) ([]byte, error) {
	data, err := json.Marshal(ticketQRPayload{
		TicketID: ticket.TicketID,
		OrderID:  ticket.OrderID,
		EventID:  ticket.EventID,
		SeatID:   ticket.SeatID,
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := q.encrypt(data)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

func (q *QRGenerator) encrypt(data []byte) (string, error) {
	block, err := aes.NewCipher(q.secret)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
