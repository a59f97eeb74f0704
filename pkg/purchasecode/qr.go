package purchasecode

import (
	"encoding/json"
	"time"
)

// QRPayload is the JSON object embedded in a purchase QR code. The field
// set and type tag are an external contract shared with the mobile
// clients; do not change them.
type QRPayload struct {
	Type     string  `json:"type"`
	Code     string  `json:"code"`
	Farm     string  `json:"farm"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
	Product  string  `json:"product"`
	Verified bool    `json:"verified"`
}

// QRPayloadType type tag of every purchase QR payload
const QRPayloadType = "FARM2GO_PURCHASE"

// NewQRPayload builds the QR payload for a purchase.
func NewQRPayload(code, farm, product string, amountPesos float64, date time.Time) QRPayload {
	return QRPayload{
		Type:     QRPayloadType,
		Code:     code,
		Farm:     farm,
		Amount:   amountPesos,
		Date:     date.Format("2006-01-02"),
		Product:  product,
		Verified: true,
	}
}

// Encode serializes the payload to the JSON string rendered into the QR
// image by the client.
func (p QRPayload) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
