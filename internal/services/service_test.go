package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/safetyspeak/backend/internal/curriculum"
	"github.com/safetyspeak/backend/internal/models"
	"github.com/safetyspeak/backend/internal/repositories"
)

// mockUserRepository is an in-memory implementation of UserRepository that applies field updates
// the same way the document store does
type mockUserRepository struct {
	mu          sync.Mutex
	docs        map[string][]byte
	getErr      error
	createErr   error
	updateErr   error
	transactErr error
	writes      int
	createCalls int
}

func newMockUserRepository(accounts ...*models.UserAccount) *mockUserRepository {
	m := &mockUserRepository{docs: map[string][]byte{}}
	for _, account := range accounts {
		body, err := json.Marshal(account)
		if err != nil {
			panic(err)
		}
		m.docs[account.ID] = body
	}
	return m
}

func (m *mockUserRepository) decode(id string, body []byte) (*models.UserAccount, error) {
	var account models.UserAccount
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, err
	}
	account.ID = id
	if account.Topics == nil {
		account.Topics = map[string]models.TopicProgress{}
	}
	for topicID, progress := range account.Topics {
		if progress.CompletedDays == nil {
			progress.CompletedDays = []int{}
		}
		if progress.QuizScores == nil {
			progress.QuizScores = map[int]int{}
		}
		account.Topics[topicID] = progress
	}
	return &account, nil
}

func (m *mockUserRepository) account(id string) *models.UserAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.decode(id, m.docs[id])
	if err != nil {
		panic(err)
	}
	return account
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	body, ok := m.docs[id]
	if !ok {
		return nil, repositories.ErrDocumentNotFound
	}
	return m.decode(id, body)
}

func (m *mockUserRepository) Create(ctx context.Context, account *models.UserAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.docs[account.ID]; ok {
		return repositories.ErrDocumentExists
	}
	body, err := json.Marshal(account)
	if err != nil {
		return err
	}
	m.docs[account.ID] = body
	m.writes++
	return nil
}

func (m *mockUserRepository) Update(ctx context.Context, id string, fields models.FieldUpdates) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	body, ok := m.docs[id]
	if !ok {
		return repositories.ErrDocumentNotFound
	}
	updated, err := repositories.ApplyFields(body, fields)
	if err != nil {
		return err
	}
	m.docs[id] = updated
	m.writes++
	return nil
}

func (m *mockUserRepository) Transact(ctx context.Context, id string, fn func(account *models.UserAccount) (models.FieldUpdates, error)) (*models.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transactErr != nil {
		return nil, m.transactErr
	}
	body, ok := m.docs[id]
	if !ok {
		return nil, repositories.ErrDocumentNotFound
	}
	account, err := m.decode(id, body)
	if err != nil {
		return nil, err
	}
	fields, err := fn(account)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return m.decode(id, body)
	}
	updated, err := repositories.ApplyFields(body, fields)
	if err != nil {
		return nil, err
	}
	m.docs[id] = updated
	m.writes++
	return m.decode(id, updated)
}

// mockNotifier is a mock implementation of CertificateNotifier
type mockNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (m *mockNotifier) EnqueueCertificateEmail(ctx context.Context, userID, topicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, userID+"/"+topicID)
	return m.err
}

// mockLessonStore is an in-memory implementation of LessonStore
type mockLessonStore struct {
	mu        sync.Mutex
	lessons   map[string]*models.Lesson
	getErr    error
	saveErr   error
	deleteErr error
	getCalls  int
	saveCalls int
}

func newMockLessonStore() *mockLessonStore {
	return &mockLessonStore{lessons: map[string]*models.Lesson{}}
}

func (m *mockLessonStore) Get(ctx context.Context, topicID string, dayID int) (*models.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.lessons[models.LessonKey(topicID, dayID)], nil
}

func (m *mockLessonStore) Save(ctx context.Context, lesson *models.Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.lessons[models.LessonKey(lesson.TopicID, lesson.DayID)] = lesson
	return nil
}

func (m *mockLessonStore) DeleteByTopic(ctx context.Context, topicID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var deleted int64
	for day := models.FirstDay; day <= models.MaxDay; day++ {
		key := models.LessonKey(topicID, day)
		if _, ok := m.lessons[key]; ok {
			delete(m.lessons, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockLessonStore) stored(topicID string, dayID int) *models.Lesson {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lessons[models.LessonKey(topicID, dayID)]
}

// mockGenerator is a mock implementation of ContentGenerator.
// Responses are consumed in order; the last response repeats.
type mockGenerator struct {
	mu        sync.Mutex
	responses []generatorResponse
	requests  []models.GenerationRequest
	delay     time.Duration
	calls     int
}

type generatorResponse struct {
	content *models.LessonContent
	err     error
}

func (m *mockGenerator) Generate(ctx context.Context, req models.GenerationRequest) (*models.LessonContent, error) {
	m.mu.Lock()
	m.calls++
	m.requests = append(m.requests, req)
	i := m.calls - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	resp := m.responses[i]
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if resp.err != nil {
		return nil, resp.err
	}
	// Hand out a copy so validation does not change the fixture
	content := *resp.content
	content.Quiz = append([]models.QuizQuestion(nil), resp.content.Quiz...)
	return &content, nil
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// validContent builds generator output that passes validation
func validContent(questions int) *models.LessonContent {
	quiz := make([]models.QuizQuestion, questions)
	for i := range quiz {
		quiz[i] = models.QuizQuestion{
			ID:            99,
			Question:      "Question " + string(rune('A'+i)) + "?",
			Options:       []string{"Safe", "Fast", "Lazy", "Dangerous"},
			CorrectAnswer: i % models.OptionsPerQuestion,
		}
	}
	return &models.LessonContent{
		Vocabulary: []models.Vocabulary{{Term: "Helmet", Meaning: "Head protection", Example: "Wear your helmet."}},
		Dialogue:   []models.DialogueLine{{Speaker: "Tom", Role: "Worker", Text: "Where is my helmet?"}},
		Scenario:   models.Scenario{Title: "Missing Helmet", Description: "No helmet.", RiskLevel: "high"},
		Quiz:       quiz,
	}
}

// duplicatedContent builds otherwise valid generator output whose first two questions repeat
func duplicatedContent(questions int) *models.LessonContent {
	content := validContent(questions)
	content.Quiz[1].Question = "  " + content.Quiz[0].Question + " "
	return content
}

// mockEnqueuer is a mock implementation of GenerationEnqueuer
type mockEnqueuer struct {
	tasks   []enqueuedGeneration
	err     error
	failAt  int
	enqueue int
}

type enqueuedGeneration struct {
	topicID string
	dayID   int
	force   bool
	delay   time.Duration
}

func (m *mockEnqueuer) EnqueueLessonGeneration(ctx context.Context, topicID string, dayID int, force bool, delay time.Duration) error {
	m.enqueue++
	if m.err != nil && m.enqueue >= m.failAt {
		return m.err
	}
	m.tasks = append(m.tasks, enqueuedGeneration{topicID: topicID, dayID: dayID, force: force, delay: delay})
	return nil
}

var testCatalog = curriculum.Default()
