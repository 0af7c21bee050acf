package leads

import (
	"strings"
	"time"
)

// Header is the column layout of the leads CSV, matching the CRM export the
// sales team uploads.
var Header = []string{
	"Created",
	"Name",
	"Email",
	"Phone",
	"Secondary Phone Number",
	"Stage",
	"Source",
	"Channel",
	"Owner",
	"Labels",
	"Details",
}

const (
	StageNew        = "New"
	SourceMessenger = "Messenger"
)

// Lead is one row of the leads sheet.
type Lead struct {
	Created        string `json:"time"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	SecondaryPhone string `json:"secondaryPhone"`
	Stage          string `json:"stage"`
	Source         string `json:"type"`
	Channel        string `json:"channel"`
	Owner          string `json:"owner"`
	Labels         string `json:"labels"`
	Details        string `json:"details"`
}

// NewMessengerLead builds a lead captured from a chat intent.
func NewMessengerLead(userID, label, details string, now time.Time) Lead {
	return Lead{
		Created: now.UTC().Format(time.RFC3339),
		Stage:   StageNew,
		Source:  SourceMessenger,
		Channel: "facebook:" + userID,
		Labels:  label,
		Details: details,
	}
}

// Validate checks the minimum a row needs to be useful to sales.
func (l Lead) Validate() error {
	if strings.TrimSpace(l.Channel) == "" && strings.TrimSpace(l.Email) == "" && strings.TrimSpace(l.Phone) == "" {
		return ErrMissingContact
	}
	return nil
}

func (l Lead) record() []string {
	return []string{
		l.Created,
		l.Name,
		l.Email,
		l.Phone,
		l.SecondaryPhone,
		l.Stage,
		l.Source,
		l.Channel,
		l.Owner,
		l.Labels,
		l.Details,
	}
}

// fromRecord maps a CSV row onto a Lead using the header positions, applying
// the same defaults the dashboard shows for blank cells.
func fromRecord(index map[string]int, row []string) Lead {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	lead := Lead{
		Created:        get("Created"),
		Name:           get("Name"),
		Email:          get("Email"),
		Phone:          get("Phone"),
		SecondaryPhone: get("Secondary Phone Number"),
		Stage:          get("Stage"),
		Source:         get("Source"),
		Channel:        get("Channel"),
		Owner:          get("Owner"),
		Labels:         get("Labels"),
		Details:        get("Details"),
	}
	if lead.Stage == "" {
		lead.Stage = StageNew
	}
	return lead
}
