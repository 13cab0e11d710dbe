package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"evently/internal/common"
	"evently/internal/dbpg"
)

var bodyTemplate = template.Must(template.New("notification").Parse(`<html>
<body style="font-family: sans-serif; color: #1f2933;">
  <h2>{{.Title}}</h2>
  <p>{{.Message}}</p>
  {{if .HasEvent}}
  <table cellpadding="4">
    <tr><td><strong>Event</strong></td><td>{{.EventTitle}}</td></tr>
    <tr><td><strong>Date</strong></td><td>{{.EventDate}}</td></tr>
    <tr><td><strong>Time</strong></td><td>{{.EventTime}}</td></tr>
    {{if .EventLocation}}<tr><td><strong>Location</strong></td><td>{{.EventLocation}}</td></tr>{{end}}
  </table>
  {{end}}
  <p style="color: #7b8794; font-size: 12px;">You can change which emails you receive in your notification settings.</p>
</body>
</html>`))

type bodyData struct {
	Title         string
	Message       string
	HasEvent      bool
	EventTitle    string
	EventDate     string
	EventTime     string
	EventLocation string
}

// Render builds the provider message for one notification. The event may be
// nil for notifications that no longer reference one.
func Render(n *dbpg.Notification, profile *dbpg.Profile, event *dbpg.Event) (Message, error) {
	data := bodyData{
		Title:   n.Title,
		Message: n.Message,
	}
	if event != nil {
		data.HasEvent = true
		data.EventTitle = event.Title
		data.EventDate = common.FormatEventDate(event.StartsAt)
		data.EventTime = common.FormatEventTime(event.StartsAt)
		data.EventLocation = event.Location
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("failed to render email body: %w", err)
	}

	text := n.Message
	if event != nil {
		text = fmt.Sprintf("%s\n\n%s on %s at %s", n.Message, event.Title,
			common.FormatEventDate(event.StartsAt), common.FormatEventTime(event.StartsAt))
		if event.Location != "" {
			text += fmt.Sprintf(" (%s)", event.Location)
		}
	}

	return Message{
		To:       profile.Email,
		ToName:   profile.DisplayName,
		Subject:  n.Title,
		HTMLBody: buf.String(),
		TextBody: text,
	}, nil
}
