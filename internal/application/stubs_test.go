package application

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/phq9-intake/internal/domain/entity"
	repo "github.com/oksasatya/phq9-intake/internal/domain/repository"
	"github.com/oksasatya/phq9-intake/pkg/helpers"
)

func init() {
	helpers.HashCost = bcrypt.MinCost
}

type stubUserRepo struct {
	mu        sync.Mutex
	users     map[string]*entity.User
	createErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: map[string]*entity.User{}}
}

func (s *stubUserRepo) Create(_ context.Context, u *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *stubUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repo.ErrNotFound
}

func (s *stubUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *stubUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, _ := s.GetByEmail(ctx, email)
	return u != nil, nil
}

func (s *stubUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

type stubAssessmentRepo struct {
	mu        sync.Mutex
	records   map[int64]*entity.AssessmentRecord
	nextID    int64
	known     map[string]bool // nil accepts every user id
	createErr error
	lastLimit int
}

func newStubAssessmentRepo() *stubAssessmentRepo {
	return &stubAssessmentRepo{records: map[int64]*entity.AssessmentRecord{}}
}

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func (s *stubAssessmentRepo) CreateWithResult(_ context.Context, a *entity.Assessment, d *entity.DSM5Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if s.known != nil && !s.known[a.UserID] {
		return &repo.ConstraintError{Kind: repo.ErrForeignKey, Constraint: "phq9_assessment_user_id_fkey"}
	}
	s.nextID++
	a.ID = s.nextID
	a.SubmittedAt = baseTime.Add(time.Duration(a.ID) * time.Minute)
	d.ID = 100 + a.ID
	d.AssessmentID = a.ID
	d.UserID = a.UserID
	d.CreatedAt = a.SubmittedAt
	s.records[a.ID] = &entity.AssessmentRecord{Assessment: *a, Result: *d}
	return nil
}

func (s *stubAssessmentRepo) GetByID(_ context.Context, id int64) (*entity.AssessmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, repo.ErrNotFound
}

func (s *stubAssessmentRepo) ListByUser(_ context.Context, userID string, limit int) ([]entity.AssessmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	out := []entity.AssessmentRecord{}
	for _, rec := range s.records {
		if rec.Assessment.UserID == userID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Assessment.ID > out[j].Assessment.ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubAssessmentRepo) LatestByUser(ctx context.Context, userID string) (*entity.AssessmentRecord, error) {
	recs, _ := s.ListByUser(ctx, userID, 1)
	if len(recs) == 0 {
		return nil, repo.ErrNotFound
	}
	return &recs[0], nil
}

func (s *stubAssessmentRepo) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type stubPublisher struct {
	mu   sync.Mutex
	jobs []any
	err  error
}

func (p *stubPublisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, body)
	return nil
}

type stubUploader struct {
	path        string
	contentType string
	body        []byte
	err         error
}

func (u *stubUploader) Upload(_ context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	u.path, u.contentType, u.body = objectPath, contentType, buf.Bytes()
	return "https://storage.example.test/" + objectPath, nil
}
