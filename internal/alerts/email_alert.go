package alerts

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"food-price-tracker/internal/models"
)

// Notifier delivers a formatted spike alert out of band. Delivery
// success is the collaborator's concern; the pipeline never retries.
type Notifier interface {
	Send(to, subject, body string) error
}

// EmailNotifier sends alerts over SMTP with STARTTLS.
type EmailNotifier struct {
	Server   string
	Port     int
	Username string
	Password string
	From     string
}

func NewEmailNotifier(server string, port int, username, password, from string) *EmailNotifier {
	if from == "" {
		from = "alerts@foodpricetracker.com"
	}
	return &EmailNotifier{
		Server:   server,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
	}
}

func (n *EmailNotifier) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", n.Server, n.Port)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", n.Username, n.Password, n.Server)
	if err := smtp.SendMail(addr, auth, n.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	log.Printf("[Alerts] Alert email sent to %s", to)
	return nil
}

// FormatSpikeAlert renders a SpikeEvent into the (subject, body) pair
// the notifier consumes.
func FormatSpikeAlert(ev models.SpikeEvent) (subject, body string) {
	subject = fmt.Sprintf("Price Spike Alert: %s", ev.EntityKey)
	body = fmt.Sprintf(`<h2>Price Spike Detected!</h2>
<p><strong>Product:</strong> %s</p>
<p><strong>Current Price:</strong> %.2f</p>
<p><strong>Historical Average:</strong> %.2f</p>
<p><strong>Price Increase:</strong> %.2f%%</p>
<p><strong>Date:</strong> %s</p>
<p>This may indicate a significant market change.</p>`,
		ev.EntityKey, ev.CurrentPrice, ev.HistoricalAverage, ev.PercentChange,
		ev.AsOf.Format("2006-01-02"))
	return subject, body
}
