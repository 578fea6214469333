package helpers

import (
	"errors"
	"strings"

	"github.com/oksasatya/phq9-intake/pkg/mailer"
	mailtpl "github.com/oksasatya/phq9-intake/pkg/mailer/templates"
)

var ErrEmptyJob = errors.New("email job has neither template nor body")

// NormalizeJob fills the recipient from defaultTo and checks that the job
// can be rendered. Jobs without a template must carry a subject and a body.
func NormalizeJob(job *mailer.EmailJob, defaultTo string) error {
	if strings.TrimSpace(job.To) == "" {
		job.To = defaultTo
	}
	if job.To == "" {
		return errors.New("email job has no recipient")
	}
	job.Template = strings.ToLower(strings.TrimSpace(job.Template))
	if job.Template == "" {
		if job.Subject == "" || (job.Text == "" && job.HTML == "") {
			return ErrEmptyJob
		}
		return nil
	}
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	return nil
}

// RenderJob returns subject, text and html for a normalized job.
func RenderJob(job mailer.EmailJob) (string, string, string, error) {
	if job.Template == "" {
		return job.Subject, job.Text, job.HTML, nil
	}
	return mailtpl.Render(job.Template, job.Data)
}
