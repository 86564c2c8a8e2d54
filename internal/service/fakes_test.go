package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/shkola-api/internal/dto"
	"github.com/noah-isme/shkola-api/internal/models"
	"github.com/noah-isme/shkola-api/internal/repository"
	"github.com/noah-isme/shkola-api/internal/storage"
	"github.com/noah-isme/shkola-api/pkg/genai"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newMemoryRepos() (*memoryUserRepo, *memoryTaskRepo, *memoryStudentTaskRepo) {
	users := newMemoryUserRepo()
	records := newMemoryStudentTaskRepo()
	tasks := newMemoryTaskRepo(records)
	records.tasks = tasks
	return users, tasks, records
}

type memoryUserRepo struct {
	users  map[uint]models.User
	nextID uint
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[uint]models.User), nextID: 1}
}

func (m *memoryUserRepo) GetByID(ctx context.Context, id uint) (models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (m *memoryUserRepo) GetStudent(ctx context.Context, id uint) (models.User, error) {
	return m.getWithRole(id, models.RoleStudent)
}

func (m *memoryUserRepo) GetTeacher(ctx context.Context, id uint) (models.User, error) {
	return m.getWithRole(id, models.RoleTeacher)
}

func (m *memoryUserRepo) getWithRole(id uint, role string) (models.User, error) {
	user, ok := m.users[id]
	if !ok || user.Role != role {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = m.nextID
	m.users[user.ID] = *user
	m.nextID++
	return nil
}

func (m *memoryUserRepo) CreateBatch(ctx context.Context, users []*models.User) error {
	for _, user := range users {
		if err := m.Create(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUserRepo) DeleteStudent(ctx context.Context, id uint) error {
	user, ok := m.users[id]
	if !ok || user.Role != models.RoleStudent {
		return gorm.ErrRecordNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memoryUserRepo) ListTeachers(ctx context.Context) ([]models.User, error) {
	return m.listByRole(models.RoleTeacher, ""), nil
}

func (m *memoryUserRepo) ListStudentsByGrade(ctx context.Context, grade string) ([]models.User, error) {
	return m.listByRole(models.RoleStudent, grade), nil
}

func (m *memoryUserRepo) listByRole(role, grade string) []models.User {
	result := make([]models.User, 0)
	for _, user := range m.users {
		if user.Role != role {
			continue
		}
		if grade != "" && user.GradeLabel() != grade {
			continue
		}
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *memoryUserRepo) ListStudentsByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	result := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := m.users[id]; ok && user.Role == models.RoleStudent {
			result = append(result, user)
		}
	}
	return result, nil
}

func (m *memoryUserRepo) addStudent(name, email, grade string) models.User {
	user := models.User{FullName: name, Email: email, Role: models.RoleStudent, Grade: &grade}
	_ = m.Create(context.Background(), &user)
	return m.users[user.ID]
}

func (m *memoryUserRepo) addTeacher(name, email string, verified bool) models.User {
	user := models.User{FullName: name, Email: email, Role: models.RoleTeacher, IsVerified: verified}
	_ = m.Create(context.Background(), &user)
	return m.users[user.ID]
}

type memoryTaskRepo struct {
	tasks      map[uint]models.Task
	files      map[uint]models.TaskFile
	records    *memoryStudentTaskRepo
	nextTaskID uint
	nextFileID uint
}

func newMemoryTaskRepo(records *memoryStudentTaskRepo) *memoryTaskRepo {
	return &memoryTaskRepo{
		tasks:      make(map[uint]models.Task),
		files:      make(map[uint]models.TaskFile),
		records:    records,
		nextTaskID: 1,
		nextFileID: 1,
	}
}

func (m *memoryTaskRepo) GetByID(ctx context.Context, id uint) (models.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return models.Task{}, gorm.ErrRecordNotFound
	}
	return task, nil
}

func (m *memoryTaskRepo) GetOwned(ctx context.Context, id, teacherID uint) (models.Task, error) {
	task, ok := m.tasks[id]
	if !ok || task.TeacherID != teacherID {
		return models.Task{}, gorm.ErrRecordNotFound
	}
	if m.records != nil {
		task.StudentTasks = m.records.forTask(id)
	}
	return task, nil
}

func (m *memoryTaskRepo) Create(ctx context.Context, task *models.Task) error {
	task.ID = m.nextTaskID
	task.CreatedAt = time.Now()
	task.UpdatedAt = time.Now()
	m.tasks[task.ID] = *task
	m.nextTaskID++
	return nil
}

func (m *memoryTaskRepo) Update(ctx context.Context, task *models.Task) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	task.UpdatedAt = time.Now()
	m.tasks[task.ID] = *task
	return nil
}

func (m *memoryTaskRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.tasks[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.tasks, id)
	if m.records != nil {
		m.records.deleteForTask(id)
	}
	for fileID, file := range m.files {
		if file.TaskID == id {
			delete(m.files, fileID)
		}
	}
	return nil
}

func (m *memoryTaskRepo) ListByGrade(ctx context.Context, grade string, teacherID *uint) ([]models.Task, error) {
	result := make([]models.Task, 0)
	for _, task := range m.tasks {
		if task.Grade != grade {
			continue
		}
		if teacherID != nil && task.TeacherID != *teacherID {
			continue
		}
		result = append(result, task)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *memoryTaskRepo) ListForStudent(ctx context.Context, studentID uint, page, size int) ([]models.Task, int64, error) {
	assigned := make([]models.Task, 0)
	for _, record := range m.records.records {
		if record.StudentID != studentID {
			continue
		}
		if task, ok := m.tasks[record.TaskID]; ok {
			assigned = append(assigned, task)
		}
	}
	sort.Slice(assigned, func(i, j int) bool { return assigned[i].ID > assigned[j].ID })

	total := int64(len(assigned))
	start := (page - 1) * size
	if start >= len(assigned) {
		return []models.Task{}, total, nil
	}
	end := start + size
	if end > len(assigned) {
		end = len(assigned)
	}
	return assigned[start:end], total, nil
}

func (m *memoryTaskRepo) TeacherHasTaskForGrade(ctx context.Context, teacherID uint, grade string) (bool, error) {
	for _, task := range m.tasks {
		if task.TeacherID == teacherID && task.Grade == grade {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryTaskRepo) AddFile(ctx context.Context, file *models.TaskFile) error {
	file.ID = m.nextFileID
	m.files[file.ID] = *file
	m.nextFileID++
	return nil
}

func (m *memoryTaskRepo) ListFiles(ctx context.Context, taskID uint) ([]models.TaskFile, error) {
	result := make([]models.TaskFile, 0)
	for _, file := range m.files {
		if file.TaskID == taskID {
			result = append(result, file)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *memoryTaskRepo) GetFile(ctx context.Context, taskID uint, storedName string) (models.TaskFile, error) {
	for _, file := range m.files {
		if file.TaskID == taskID && file.StoredName == storedName {
			return file, nil
		}
	}
	return models.TaskFile{}, gorm.ErrRecordNotFound
}

func (m *memoryTaskRepo) DeleteFile(ctx context.Context, id uint) error {
	if _, ok := m.files[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.files, id)
	return nil
}

func (m *memoryTaskRepo) CountFiles(ctx context.Context, taskID uint) (int64, error) {
	var count int64
	for _, file := range m.files {
		if file.TaskID == taskID {
			count++
		}
	}
	return count, nil
}

type memoryStudentTaskRepo struct {
	mu      sync.Mutex
	records map[uint]models.StudentTask
	tasks   *memoryTaskRepo
	nextID  uint
}

func newMemoryStudentTaskRepo() *memoryStudentTaskRepo {
	return &memoryStudentTaskRepo{records: make(map[uint]models.StudentTask), nextID: 1}
}

func (m *memoryStudentTaskRepo) attach(record models.StudentTask) models.StudentTask {
	if m.tasks != nil {
		if task, ok := m.tasks.tasks[record.TaskID]; ok {
			record.Task = task
		}
	}
	return record
}

func (m *memoryStudentTaskRepo) forTask(taskID uint) []models.StudentTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.StudentTask, 0)
	for _, record := range m.records {
		if record.TaskID == taskID {
			result = append(result, record)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *memoryStudentTaskRepo) deleteForTask(taskID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, record := range m.records {
		if record.TaskID == taskID {
			delete(m.records, id)
		}
	}
}

func (m *memoryStudentTaskRepo) List(ctx context.Context, filter repository.StudentTaskFilter) ([]models.StudentTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.StudentTask, 0)
	for _, record := range m.records {
		if filter.TaskID != nil && record.TaskID != *filter.TaskID {
			continue
		}
		if filter.StudentID != nil && record.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && record.Status != *filter.Status {
			continue
		}
		result = append(result, m.attach(record))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *memoryStudentTaskRepo) GetByID(ctx context.Context, id uint) (models.StudentTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return models.StudentTask{}, gorm.ErrRecordNotFound
	}
	return m.attach(record), nil
}

func (m *memoryStudentTaskRepo) GetOwned(ctx context.Context, id, teacherID uint) (models.StudentTask, error) {
	record, err := m.GetByID(ctx, id)
	if err != nil {
		return models.StudentTask{}, err
	}
	if record.Task.TeacherID != teacherID {
		return models.StudentTask{}, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (m *memoryStudentTaskRepo) GetByTaskAndStudent(ctx context.Context, taskID, studentID uint) (models.StudentTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.records {
		if record.TaskID == taskID && record.StudentID == studentID {
			return m.attach(record), nil
		}
	}
	return models.StudentTask{}, gorm.ErrRecordNotFound
}

func (m *memoryStudentTaskRepo) Create(ctx context.Context, record *models.StudentTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.ID = m.nextID
	m.records[record.ID] = *record
	m.nextID++
	return nil
}

func (m *memoryStudentTaskRepo) CreateBatch(ctx context.Context, records []*models.StudentTask) error {
	for _, record := range records {
		if err := m.Create(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryStudentTaskRepo) Update(ctx context.Context, record *models.StudentTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *record
	stored.Task = models.Task{}
	stored.Student = models.User{}
	m.records[record.ID] = stored
	return nil
}

func (m *memoryStudentTaskRepo) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memoryStudentTaskRepo) SaveAnalysis(ctx context.Context, id uint, analysis string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	record.AIAnalysis = &analysis
	m.records[id] = record
	return nil
}

func (m *memoryStudentTaskRepo) ListPendingForTeacher(ctx context.Context, teacherID uint) ([]models.StudentTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.StudentTask, 0)
	for _, record := range m.records {
		attached := m.attach(record)
		if attached.Status != models.StudentTaskStatusSubmitted || attached.Task.TeacherID != teacherID {
			continue
		}
		result = append(result, attached)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *memoryStudentTaskRepo) ListGradedForStudent(ctx context.Context, studentID uint) ([]models.StudentTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.StudentTask, 0)
	for _, record := range m.records {
		if record.StudentID != studentID || record.Status != models.StudentTaskStatusAccepted || record.Grade == nil {
			continue
		}
		result = append(result, m.attach(record))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type fakeFileStore struct {
	taskFiles       map[uint][]string
	submissionFiles map[string][]string
	removedTrees    []uint
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{
		taskFiles:       make(map[uint][]string),
		submissionFiles: make(map[string][]string),
	}
}

func submissionKey(taskID, studentID uint) string {
	return fmt.Sprintf("%d/%d", taskID, studentID)
}

func (f *fakeFileStore) SaveTaskFile(taskID uint, file *multipart.FileHeader) (storage.StoredFile, error) {
	stored := storage.StoredFile{OriginalName: file.Filename, StoredName: "stored-" + file.Filename, Path: "/tmp/" + file.Filename}
	f.taskFiles[taskID] = append(f.taskFiles[taskID], stored.StoredName)
	return stored, nil
}

func (f *fakeFileStore) SaveSubmissionFile(taskID, studentID uint, file *multipart.FileHeader) (storage.StoredFile, error) {
	key := submissionKey(taskID, studentID)
	stored := storage.StoredFile{OriginalName: file.Filename, StoredName: "stored-" + file.Filename, Path: "/tmp/" + file.Filename}
	f.submissionFiles[key] = append(f.submissionFiles[key], stored.StoredName)
	return stored, nil
}

func (f *fakeFileStore) RemoveTaskFile(taskID uint, name string) error {
	kept := make([]string, 0)
	for _, stored := range f.taskFiles[taskID] {
		if stored != name {
			kept = append(kept, stored)
		}
	}
	f.taskFiles[taskID] = kept
	return nil
}

func (f *fakeFileStore) RemoveTaskTree(taskID uint) error {
	f.removedTrees = append(f.removedTrees, taskID)
	delete(f.taskFiles, taskID)
	return nil
}

func (f *fakeFileStore) ClearSubmissionFiles(taskID, studentID uint) error {
	delete(f.submissionFiles, submissionKey(taskID, studentID))
	return nil
}

func (f *fakeFileStore) ListTaskFiles(taskID uint) []string {
	return f.taskFiles[taskID]
}

func (f *fakeFileStore) ListSubmissionFiles(taskID, studentID uint) []string {
	return f.submissionFiles[submissionKey(taskID, studentID)]
}

type capturedEvents struct {
	mu     sync.Mutex
	events []SubmissionEvent
}

func (c *capturedEvents) PublishSubmissionEvent(event SubmissionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *capturedEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]string, 0, len(c.events))
	for _, event := range c.events {
		result = append(result, event.Type)
	}
	return result
}

type scriptedCritic struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (s *scriptedCritic) Critique(ctx context.Context, input genai.AnalysisInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.response, s.err
}

func (s *scriptedCritic) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordedSchedule struct {
	submissionIDs []uint
}

func (r *recordedSchedule) Analyze(ctx context.Context, teacherID uint, payload dto.AnalyzeRequest) (dto.AnalysisResponse, error) {
	return dto.AnalysisResponse{}, nil
}

func (r *recordedSchedule) Schedule(submissionID uint, taskDescription, studentAnswer string) {
	r.submissionIDs = append(r.submissionIDs, submissionID)
}
