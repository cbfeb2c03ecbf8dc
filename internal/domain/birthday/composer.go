package birthday

import (
	"fmt"
	"html"
	"strings"

	"birthday_notifier/internal/domain/mail"
)

const subjectPrefix = "Birthday Reminder → "

// Compose builds the reminder for the given birthday names. The returned
// message has no recipient; callers fill in To per address.
func Compose(names []string) mail.Message {
	var htmlItems, textItems strings.Builder
	for _, n := range names {
		fmt.Fprintf(&htmlItems, "<li><b>%s</b></li>", html.EscapeString(n))
		fmt.Fprintf(&textItems, "• %s\n", n)
	}

	htmlBody := `<div style="font-family: sans-serif; padding: 12px;">
  <h2>🎉 Tomorrow's Birthday(s)</h2>
  <p>Team, please wish them on their special day!</p>
  <ul>` + htmlItems.String() + `</ul>
  <br/>
  <p style="font-size: 12px; color: gray;">Automated reminder from Birthday Notifier</p>
</div>`

	textBody := "🎉 Tomorrow's Birthday(s)\n\n" +
		"Team, please wish them on their special day!\n\n" +
		textItems.String()

	return mail.Message{
		Subject:  subjectPrefix + strings.Join(names, ", "),
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}
