package application

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/phq9-intake/config"
	"github.com/oksasatya/phq9-intake/internal/domain/entity"
	"github.com/oksasatya/phq9-intake/internal/domain/phq9"
	repo "github.com/oksasatya/phq9-intake/internal/domain/repository"
	"github.com/oksasatya/phq9-intake/pkg/helpers"
	"github.com/oksasatya/phq9-intake/pkg/mailer"
	tpl "github.com/oksasatya/phq9-intake/pkg/mailer/templates"
	"github.com/oksasatya/phq9-intake/pkg/validation"
)

var (
	ErrPersistence        = errors.New("failed to save assessment")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrSearchUnavailable  = errors.New("search unavailable")
	ErrExportUnavailable  = errors.New("export unavailable")
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
	exportLimit         = 1000
)

var (
	submissionsTotal = expvar.NewInt("phq9_submissions_total")
	severityTotals   = expvar.NewMap("phq9_severity_total")
	alertsPublished  = expvar.NewInt("phq9_alerts_published_total")
)

// AssessmentIndexMapping is the Elasticsearch mapping of the search index.
const AssessmentIndexMapping = `{
  "mappings": {
    "properties": {
      "assessment_id":  {"type": "long"},
      "user_id":        {"type": "keyword"},
      "totalScore":     {"type": "integer"},
      "severity":       {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "q9_flag":        {"type": "boolean"},
      "mdd_assessment": {"type": "boolean"},
      "doctors_notes":  {"type": "text"},
      "patients_notes": {"type": "text"},
      "submitted_at":   {"type": "date"}
    }
  }
}`

// JobPublisher enqueues a message for the alert worker.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// ObjectUploader stores an object and returns its URL.
type ObjectUploader interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

type AssessmentService struct {
	Repo     repo.AssessmentRepository
	Users    repo.UserRepository
	Redis    *redis.Client
	ES       *elasticsearch.Client
	ESIndex  string
	Pub      JobPublisher
	Uploader ObjectUploader
	Cfg      *config.Config
	Logger   *logrus.Logger
}

func NewAssessmentService(assessments repo.AssessmentRepository, users repo.UserRepository, cfg *config.Config, logger *logrus.Logger) *AssessmentService {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &AssessmentService{
		Repo:    assessments,
		Users:   users,
		ESIndex: cfg.ESAssessmentsIndex,
		Cfg:     cfg,
		Logger:  logger,
	}
}

// SubmitInput is the body of POST /api/phq9.
type SubmitInput struct {
	UserID        string         `json:"user_id" validate:"required,uuid"`
	Responses     map[string]int `json:"responses" validate:"required"`
	TotalScore    *int           `json:"totalScore" validate:"required"`
	DoctorsNotes  string         `json:"doctors_notes" validate:"max=5000"`
	PatientsNotes string         `json:"patients_notes" validate:"max=5000"`
}

type SubmitResult struct {
	AssessmentID int64       `json:"assessment_id"`
	DSM5ID       int64       `json:"dsm5_id"`
	Result       phq9.Result `json:"result"`
}

// AssessmentView is the read shape of a stored submission and its result.
// It is also the cached and indexed document.
type AssessmentView struct {
	ID             int64          `json:"assessment_id"`
	UserID         string         `json:"user_id"`
	Responses      map[string]int `json:"responses"`
	TotalScore     int            `json:"totalScore"`
	Severity       string         `json:"severity"`
	Item9Positive  bool           `json:"q9_flag"`
	MDDCriteriaMet bool           `json:"mdd_assessment"`
	DoctorsNotes   string         `json:"doctors_notes,omitempty"`
	PatientsNotes  string         `json:"patients_notes,omitempty"`
	SubmittedAt    time.Time      `json:"submitted_at"`
}

func NewAssessmentView(rec *entity.AssessmentRecord) AssessmentView {
	a, d := rec.Assessment, rec.Result
	return AssessmentView{
		ID:             a.ID,
		UserID:         a.UserID,
		Responses:      a.Responses.Map(),
		TotalScore:     a.TotalScore,
		Severity:       string(d.Severity),
		Item9Positive:  d.Item9Positive,
		MDDCriteriaMet: d.MDDCriteriaMet,
		DoctorsNotes:   a.DoctorsNotes,
		PatientsNotes:  a.PatientsNotes,
		SubmittedAt:    a.SubmittedAt,
	}
}

// LatestKey is the Redis key caching the newest submission of a user.
func LatestKey(userID string) string {
	return "phq9:latest:" + userID
}

// Submit validates and scores a submission, then stores the assessment and
// its DSM-5 result in one transaction.
func (s *AssessmentService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if err := validation.Struct(in); err != nil {
		return nil, &ValidationError{Message: validation.FirstMessage(err)}
	}
	responses, err := phq9.ParseResponses(in.Responses)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	total := *in.TotalScore
	if err := phq9.ValidateTotal(responses, total); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	result := phq9.Assess(responses, total)
	a := &entity.Assessment{
		UserID:        in.UserID,
		Responses:     responses,
		TotalScore:    total,
		DoctorsNotes:  strings.TrimSpace(in.DoctorsNotes),
		PatientsNotes: strings.TrimSpace(in.PatientsNotes),
	}
	d := &entity.DSM5Result{
		Severity:       result.Severity,
		Item9Positive:  result.Item9Positive,
		MDDCriteriaMet: result.MDDCriteriaMet,
	}
	if err := s.Repo.CreateWithResult(ctx, a, d); err != nil {
		if errors.Is(err, repo.ErrForeignKey) {
			return nil, ErrUserNotFound
		}
		helpers.LogError(s.Logger, "save assessment failed", err, logrus.Fields{"user_id": in.UserID})
		return nil, ErrPersistence
	}

	helpers.LogInfo(s.Logger, "assessment submitted", logrus.Fields{
		"user_id":       a.UserID,
		"assessment_id": a.ID,
		"severity":      result.Severity,
	})

	s.afterSubmit(context.WithoutCancel(ctx), &entity.AssessmentRecord{Assessment: *a, Result: *d})
	return &SubmitResult{AssessmentID: a.ID, DSM5ID: d.ID, Result: result}, nil
}

// afterSubmit runs the post-commit effects. Failures are logged only.
func (s *AssessmentService) afterSubmit(ctx context.Context, rec *entity.AssessmentRecord) {
	submissionsTotal.Add(1)
	severityTotals.Add(string(rec.Result.Severity), 1)

	view := NewAssessmentView(rec)
	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, LatestKey(view.UserID), view, s.Cfg.LatestTTL); err != nil {
			s.Logger.WithError(err).WithField("user_id", view.UserID).Warn("cache latest assessment failed")
		}
	}
	if err := s.index(ctx, view); err != nil {
		s.Logger.WithError(err).WithField("assessment_id", view.ID).Warn("index assessment failed")
	}

	res := phq9.Result{Severity: rec.Result.Severity, Item9Positive: view.Item9Positive, MDDCriteriaMet: view.MDDCriteriaMet}
	if res.NeedsAttention() {
		if err := s.publishAlert(ctx, rec); err != nil {
			s.Logger.WithError(err).WithField("assessment_id", view.ID).Warn("publish risk alert failed")
		}
	}
}

func (s *AssessmentService) publishAlert(ctx context.Context, rec *entity.AssessmentRecord) error {
	if s.Pub == nil || !s.Cfg.AlertsEnabled {
		return nil
	}
	a, d := rec.Assessment, rec.Result
	name, email := "", ""
	if s.Users != nil {
		if u, err := s.Users.GetByID(ctx, a.UserID); err == nil && u != nil {
			name, email = u.FullName(), u.Email
		}
	}
	data := tpl.NewRiskAlertData(
		s.Cfg,
		tpl.WithPatient(a.UserID, name, email),
		tpl.WithAssessment(a.ID, a.TotalScore, string(d.Severity), d.Item9Positive, d.MDDCriteriaMet),
		tpl.WithNotes(a.PatientsNotes),
		tpl.WithSubmittedAt(a.SubmittedAt),
	)
	job := mailer.EmailJob{To: s.Cfg.ClinicianAlertEmail, Template: tpl.RiskAlert, Data: data}
	if err := s.Pub.PublishJSON(ctx, job); err != nil {
		return err
	}
	alertsPublished.Add(1)
	return nil
}

func (s *AssessmentService) index(ctx context.Context, view AssessmentView) error {
	if s.ES == nil || s.ESIndex == "" {
		return nil
	}
	b, err := json.Marshal(view)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      s.ESIndex,
		DocumentID: strconv.FormatInt(view.ID, 10),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

// ClampLimit maps a requested page size into [1, MaxHistoryLimit].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// History lists a user's submissions, newest first.
func (s *AssessmentService) History(ctx context.Context, userID string, limit int) ([]AssessmentView, error) {
	recs, err := s.Repo.ListByUser(ctx, userID, ClampLimit(limit))
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Error("list assessments failed")
		return nil, err
	}
	out := make([]AssessmentView, 0, len(recs))
	for i := range recs {
		out = append(out, NewAssessmentView(&recs[i]))
	}
	return out, nil
}

// Get returns one submission. Submissions of other users are reported as
// not found.
func (s *AssessmentService) Get(ctx context.Context, userID string, id int64) (*AssessmentView, error) {
	rec, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		s.Logger.WithError(err).WithField("assessment_id", id).Error("get assessment failed")
		return nil, err
	}
	if rec.Assessment.UserID != userID {
		return nil, ErrAssessmentNotFound
	}
	v := NewAssessmentView(rec)
	return &v, nil
}

// Latest returns the newest submission, from Redis when cached.
func (s *AssessmentService) Latest(ctx context.Context, userID string) (*AssessmentView, error) {
	if s.Redis != nil {
		var v AssessmentView
		ok, err := helpers.RedisGetJSON(ctx, s.Redis, LatestKey(userID), &v)
		if err != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("read latest cache failed")
		}
		if ok {
			return &v, nil
		}
	}
	rec, err := s.Repo.LatestByUser(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Error("latest assessment failed")
		return nil, err
	}
	v := NewAssessmentView(rec)
	if s.Redis != nil {
		_ = helpers.RedisSetJSON(ctx, s.Redis, LatestKey(userID), v, s.Cfg.LatestTTL)
	}
	return &v, nil
}

func searchQuery(userID, q string, size int) map[string]any {
	var must any = map[string]any{"match_all": map[string]any{}}
	if q = strings.TrimSpace(q); q != "" {
		must = map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"severity^2", "patients_notes", "doctors_notes"},
			},
		}
	}
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   must,
				"filter": []any{map[string]any{"term": map[string]any{"user_id": userID}}},
			},
		},
		"sort": []any{map[string]any{"submitted_at": map[string]any{"order": "desc"}}},
		"size": size,
	}
}

// Search runs a full-text query over the caller's own submissions.
func (s *AssessmentService) Search(ctx context.Context, userID, q string, size int) ([]AssessmentView, error) {
	if s.ES == nil || s.ESIndex == "" {
		return nil, ErrSearchUnavailable
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	b, err := json.Marshal(searchQuery(userID, q, size))
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESIndex), s.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		s.Logger.WithError(err).Warn("es search failed")
		return nil, ErrSearchUnavailable
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		s.Logger.WithField("status", res.Status()).Warn("es search response error")
		return nil, ErrSearchUnavailable
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source AssessmentView `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]AssessmentView, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

type ExportResult struct {
	URL  string `json:"url"`
	Rows int    `json:"rows"`
}

var csvHeader = []string{
	"assessment_id", "submitted_at",
	"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8", "q9",
	"total_score", "severity", "q9_flag", "mdd_assessment", "patients_notes",
}

// WriteCSV renders records in the export format.
func WriteCSV(w io.Writer, recs []entity.AssessmentRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	row := make([]string, 0, len(csvHeader))
	for _, rec := range recs {
		a, d := rec.Assessment, rec.Result
		row = row[:0]
		row = append(row, strconv.FormatInt(a.ID, 10), a.SubmittedAt.UTC().Format(time.RFC3339))
		for _, v := range a.Responses {
			row = append(row, strconv.Itoa(v))
		}
		row = append(row,
			strconv.Itoa(a.TotalScore),
			string(d.Severity),
			strconv.FormatBool(d.Item9Positive),
			strconv.FormatBool(d.MDDCriteriaMet),
			a.PatientsNotes,
		)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export uploads the caller's history as CSV and returns the object URL.
func (s *AssessmentService) Export(ctx context.Context, userID string) (*ExportResult, error) {
	if s.Uploader == nil {
		return nil, ErrExportUnavailable
	}
	recs, err := s.Repo.ListByUser(ctx, userID, exportLimit)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Error("list assessments for export failed")
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, recs); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	objectPath := "exports/" + userID + "/" + uuid.NewString() + ".csv"
	url, err := s.Uploader.Upload(ctx, objectPath, "text/csv", &buf)
	if err != nil {
		s.Logger.WithError(err).WithField("object", objectPath).Error("upload export failed")
		return nil, ErrExportUnavailable
	}
	s.Logger.WithFields(logrus.Fields{"user_id": userID, "rows": len(recs)}).Info("assessments exported")
	return &ExportResult{URL: url, Rows: len(recs)}, nil
}
