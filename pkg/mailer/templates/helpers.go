package templates

import (
	"strings"
	"time"

	"github.com/oksasatya/phq9-intake/config"
)

// Option pattern
type Option func(*AlertData)

func WithPatient(id, name, email string) Option {
	return func(d *AlertData) {
		d.PatientID = id
		d.PatientName = strings.TrimSpace(name)
		d.PatientEmail = email
	}
}

func WithAssessment(id int64, total int, severity string, item9, mdd bool) Option {
	return func(d *AlertData) {
		d.AssessmentID = id
		d.TotalScore = total
		d.Severity = severity
		d.Item9Positive = item9
		d.MDDCriteriaMet = mdd
	}
}

func WithNotes(notes string) Option { return func(d *AlertData) { d.PatientsNotes = notes } }

func WithSubmittedAt(t time.Time) Option {
	return func(d *AlertData) {
		utc := t.UTC()
		d.SubmittedAt = utc
		d.SubmittedAtText = utc.Format("02 January 2006, 15:04 MST")
	}
}

// NewRiskAlertData fills clinic fields from config, then applies options.
func NewRiskAlertData(cfg *config.Config, opts ...Option) map[string]any {
	d := AlertData{
		ClinicName:    cfg.ClinicName,
		ClinicAddress: cfg.ClinicAddress,
		AppName:       cfg.AppName,
		DashboardURL:  cfg.DashboardURL,
		SupportURL:    cfg.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return ToMap(d)
}
