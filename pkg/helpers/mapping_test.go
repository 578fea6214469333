package helpers

import (
	"errors"
	"strings"
	"testing"

	"github.com/oksasatya/phq9-intake/pkg/mailer"
	mailtpl "github.com/oksasatya/phq9-intake/pkg/mailer/templates"
)

func TestNormalizeJob(t *testing.T) {
	job := mailer.EmailJob{Template: " Risk_Alert "}
	if err := NormalizeJob(&job, "clinician@gmail.com"); err != nil {
		t.Fatalf("NormalizeJob: %v", err)
	}
	if job.To != "clinician@gmail.com" || job.Template != mailtpl.RiskAlert || job.Data == nil {
		t.Fatalf("unexpected job %+v", job)
	}

	explicit := mailer.EmailJob{To: "other@gmail.com", Subject: "hi", Text: "body"}
	if err := NormalizeJob(&explicit, "clinician@gmail.com"); err != nil || explicit.To != "other@gmail.com" {
		t.Fatalf("explicit recipient: err=%v to=%s", err, explicit.To)
	}

	if err := NormalizeJob(&mailer.EmailJob{Subject: "x"}, "c@gmail.com"); !errors.Is(err, ErrEmptyJob) {
		t.Fatalf("missing body: err=%v", err)
	}
	if err := NormalizeJob(&mailer.EmailJob{Template: "risk_alert"}, ""); err == nil {
		t.Fatalf("expected error without recipient")
	}
}

func TestRenderJobRaw(t *testing.T) {
	s, txt, html, err := RenderJob(mailer.EmailJob{Subject: "s", Text: "t"})
	if err != nil || s != "s" || txt != "t" || html != "" {
		t.Fatalf("RenderJob raw = %q %q %q %v", s, txt, html, err)
	}
	s, _, _, err = RenderJob(mailer.EmailJob{Template: mailtpl.RiskAlert, Data: map[string]any{"Severity": "Mild depression", "TotalScore": 6}})
	if err != nil || !strings.Contains(s, "Mild depression") {
		t.Fatalf("RenderJob template = %q %v", s, err)
	}
}
