package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anjiri1684/driving_school/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type LearningPathParams struct {
	StudentID        string `json:"student_id"`
	Transmission     string `json:"transmission,omitempty"`
	CompletedLessons int    `json:"completed_lessons"`
	UpcomingLessons  int    `json:"upcoming_lessons"`
	Goal             string `json:"goal,omitempty"`
}

type LearningModule struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Topics           []string `json:"topics"`
	EstimatedMinutes int      `json:"estimated_minutes"`
}

// ContentProvider generates lesson plans. A nil result means "nothing to
// show" and is not an error.
type ContentProvider interface {
	Generate(ctx context.Context, params LearningPathParams) ([]LearningModule, error)
}

// HTTPContentProvider posts the params to an external generator and expects
// {"modules": [...]} back.
type HTTPContentProvider struct {
	URL    string
	Client *http.Client
}

func NewHTTPContentProvider(url string) *HTTPContentProvider {
	return &HTTPContentProvider{URL: url, Client: &http.Client{Timeout: 15 * time.Second}}
}

func (p *HTTPContentProvider) Generate(ctx context.Context, params LearningPathParams) ([]LearningModule, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach content provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("content provider returned %d: %s", resp.StatusCode, msg)
	}

	var out struct {
		Modules []LearningModule `json:"modules"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode modules: %w", err)
	}
	return out.Modules, nil
}

type LearningPath struct {
	Available        bool             `json:"available"`
	Modules          []LearningModule `json:"modules"`
	CompletedLessons int              `json:"completed_lessons"`
	UpcomingLessons  int              `json:"upcoming_lessons"`
}

// LearningPathService builds the optional dashboard section. Provider
// failures only hide the modules.
type LearningPathService struct {
	provider ContentProvider
	ledger   *Ledger
}

func NewLearningPathService(provider ContentProvider, ledger *Ledger) *LearningPathService {
	return &LearningPathService{provider: provider, ledger: ledger}
}

func (s *LearningPathService) ForStudent(ctx context.Context, studentID uuid.UUID, goal string) (LearningPath, error) {
	bookings, err := s.ledger.ListFor(ctx, studentID, models.RoleStudent)
	if err != nil {
		return LearningPath{}, err
	}

	path := LearningPath{Modules: []LearningModule{}}
	for _, b := range bookings {
		switch b.Status {
		case models.StatusCompleted:
			path.CompletedLessons++
		case models.StatusConfirmed:
			path.UpcomingLessons++
		}
	}

	if s.provider == nil {
		return path, nil
	}
	modules, err := s.provider.Generate(ctx, LearningPathParams{
		StudentID:        studentID.String(),
		CompletedLessons: path.CompletedLessons,
		UpcomingLessons:  path.UpcomingLessons,
		Goal:             goal,
	})
	if err != nil {
		log.Warn().Err(err).Str("student_id", studentID.String()).Msg("🔥 Learning path unavailable")
		return path, nil
	}
	if modules != nil {
		path.Available = true
		path.Modules = modules
	}
	return path, nil
}
