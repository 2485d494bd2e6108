// Package mailer renders and delivers the transactional emails of the
// booking service over SMTP.
package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/gommon/log"
	"github.com/skip2/go-qrcode"
	"gopkg.in/gomail.v2"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

const dateLayout = "Mon, 02 Jan 2006"

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Mailer builds gomail messages from the embedded templates. When SMTP is
// not configured messages are logged and dropped.
type Mailer struct {
	cfg       config.MailConfig
	clientURL string
	send      func(*gomail.Message) error
}

func New(cfg config.MailConfig, clientURL string) *Mailer {
	m := &Mailer{cfg: cfg, clientURL: clientURL}
	if cfg.Enabled() {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		m.send = func(msg *gomail.Message) error { return d.DialAndSend(msg) }
	} else {
		m.send = func(msg *gomail.Message) error {
			log.Infof("mailer: smtp disabled, dropping %q to %v", msg.GetHeader("Subject"), msg.GetHeader("To"))
			return nil
		}
	}
	return m
}

// WithSender replaces the delivery function, for tests.
func (m *Mailer) WithSender(fn func(*gomail.Message) error) *Mailer {
	m.send = fn
	return m
}

func (m *Mailer) Welcome(u model.User) error {
	body, err := render("welcome.html", map[string]any{
		"Name":      u.FullName(),
		"ClientURL": m.clientURL,
	})
	if err != nil {
		return err
	}
	return m.deliver(m.message(u.Email, "Welcome to Hotel Booking", body))
}

// PasswordReset mails a link carrying the reset token.
func (m *Mailer) PasswordReset(u model.User, token string, validMinutes int) error {
	body, err := render("password_reset.html", map[string]any{
		"Name":         u.FullName(),
		"Link":         fmt.Sprintf("%s/reset-password/%s", m.clientURL, token),
		"ValidMinutes": validMinutes,
	})
	if err != nil {
		return err
	}
	return m.deliver(m.message(u.Email, "Reset your password", body))
}

// BookingConfirmed mails the booking summary with a QR code of the booking
// reference attached.
func (m *Mailer) BookingConfirmed(d model.BookingDetail) error {
	body, err := render("booking_confirmed.html", bookingData(d))
	if err != nil {
		return err
	}
	msg := m.message(d.GuestEmail, fmt.Sprintf("Booking #%d confirmed", d.ID), body)

	png, err := BookingQRCode(d.Booking, 256)
	if err != nil {
		log.Warnf("mailer: qr code for booking %d: %v", d.ID, err)
	} else {
		name := fmt.Sprintf("booking-%d.png", d.ID)
		msg.Attach(name, gomail.Rename(name), gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(png)
			return err
		}))
	}
	return m.deliver(msg)
}

func (m *Mailer) CheckInReminder(d model.BookingDetail) error {
	body, err := render("checkin_reminder.html", bookingData(d))
	if err != nil {
		return err
	}
	return m.deliver(m.message(d.GuestEmail, fmt.Sprintf("Your stay at %s starts soon", d.HotelName), body))
}

// BookingQRCode encodes a short booking reference as a PNG of size×size
// pixels.
func BookingQRCode(b model.Booking, size int) ([]byte, error) {
	return qrcode.Encode(BookingReference(b), qrcode.Medium, size)
}

// BookingReference is the text scanned at the front desk.
func BookingReference(b model.Booking) string {
	in := ""
	if b.CheckInDate != nil {
		in = b.CheckInDate.Format("2006-01-02")
	}
	return fmt.Sprintf("BOOKING:%d;ROOM:%d;CHECKIN:%s", b.ID, b.RoomID, in)
}

func (m *Mailer) message(to, subject, html string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)
	return msg
}

func (m *Mailer) deliver(msg *gomail.Message) error {
	if err := m.send(msg); err != nil {
		return fmt.Errorf("send %q: %w", msg.GetHeader("Subject"), err)
	}
	return nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func bookingData(d model.BookingDetail) map[string]any {
	data := map[string]any{
		"Name":      d.GuestName,
		"BookingID": d.ID,
		"HotelName": d.HotelName,
		"RoomType":  d.RoomType,
		"Nights":    d.Nights(),
		"Total":     model.FormatCents(d.TotalAmountCents),
	}
	if d.CheckInDate != nil {
		data["CheckIn"] = d.CheckInDate.Format(dateLayout)
	}
	if d.CheckOutDate != nil {
		data["CheckOut"] = d.CheckOutDate.Format(dateLayout)
	}
	return data
}
