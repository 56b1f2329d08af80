// Package messaging hands parent notifications to an external messaging app.
package messaging

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrNoContact means the student has no usable parent contact.
var ErrNoContact = errors.New("parent contact missing")

// WhatsApp opens a pre-filled compose action through a wa.me style link.
// Delivery is never confirmed; Send only builds the link.
type WhatsApp struct {
	BaseURL string
}

// NewWhatsApp returns a sender for baseURL, defaulting to https://wa.me.
func NewWhatsApp(baseURL string) *WhatsApp {
	if baseURL == "" {
		baseURL = "https://wa.me"
	}
	return &WhatsApp{BaseURL: strings.TrimRight(baseURL, "/")}
}

// Send returns the compose link for contact with body as the message text.
func (w *WhatsApp) Send(_ context.Context, contact, body string) (string, error) {
	number := digits(contact)
	if number == "" {
		return "", ErrNoContact
	}
	return w.BaseURL + "/" + number + "?text=" + url.QueryEscape(body), nil
}

// digits keeps only 0-9 so "+62 812-3456" becomes "628123456".
func digits(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
