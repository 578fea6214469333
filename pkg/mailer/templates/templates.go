package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"reflect"
	"strings"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// Template names
const (
	RiskAlert = "risk_alert"
)

// AlertData defines the fields available to clinician alert templates.
type AlertData struct {
	// Clinic info
	ClinicName    string `json:"ClinicName"`
	ClinicAddress string `json:"ClinicAddress"`
	AppName       string `json:"AppName"`
	DashboardURL  string `json:"DashboardURL"`
	SupportURL    string `json:"SupportURL"`

	// Patient
	PatientID    string `json:"PatientID"`
	PatientName  string `json:"PatientName"`
	PatientEmail string `json:"PatientEmail"`

	// Assessment
	AssessmentID    int64     `json:"AssessmentID"`
	TotalScore      int       `json:"TotalScore"`
	Severity        string    `json:"Severity"`
	Item9Positive   bool      `json:"Item9Positive"`
	MDDCriteriaMet  bool      `json:"MDDCriteriaMet"`
	PatientsNotes   string    `json:"PatientsNotes"`
	SubmittedAt     time.Time `json:"SubmittedAt"`
	SubmittedAtText string    `json:"SubmittedAtText"`
}

// ToMap converts AlertData to a map[string]any for EmailJob.Data.
// Numbers are kept as json.Number so ids render without exponents.
func ToMap(d AlertData) map[string]any {
	b, _ := json.Marshal(d)
	return DecodeData(b)
}

// DecodeData decodes a JSON object the same way the worker does.
func DecodeData(b []byte) map[string]any {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	_ = dec.Decode(&m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() {
			return fallback
		}
		if rv.IsZero() {
			return fallback
		}
		return value
	}
}

func baseFuncs() map[string]any {
	return map[string]any{
		"upper":   strings.ToUpper,
		"default": defaultFn,
		"yesno": func(v any) string {
			if b, ok := v.(bool); ok && b {
				return "Yes"
			}
			return "No"
		},
	}
}

var (
	htmlFuncMap = htmpl.FuncMap(baseFuncs())
	textFuncMap = texttpl.FuncMap(baseFuncs())
)

// renderFile loads and renders a single template file from the embedded FS.
// isHTML indicates whether to use html/template (true) or text/template (false).
func renderFile(filename string, isHTML bool, data any) (string, error) {
	var (
		buf bytes.Buffer
		err error
	)

	if isHTML {
		tpl, e := htmpl.New(filename).Funcs(htmlFuncMap).ParseFS(FS, filename)
		if e != nil {
			return "", fmt.Errorf("parse html %q: %w", filename, e)
		}
		err = tpl.Execute(&buf, data)
	} else {
		tpl, e := texttpl.New(filename).Funcs(textFuncMap).ParseFS(FS, filename)
		if e != nil {
			return "", fmt.Errorf("parse text %q: %w", filename, e)
		}
		err = tpl.Execute(&buf, data)
	}
	if err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return buf.String(), nil
}

// Render loads and renders subject, text, and html templates for the given base name.
// Expects: <name>.subject.tmpl, <name>.text.tmpl, <name>.html.tmpl
func Render(name string, data any) (subject string, text string, html string, err error) {
	subject, err = renderFile(name+".subject.tmpl", false, data)
	if err != nil {
		return "", "", "", err
	}
	text, err = renderFile(name+".text.tmpl", false, data)
	if err != nil {
		return "", "", "", err
	}
	html, err = renderFile(name+".html.tmpl", true, data)
	if err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}
