package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shkola-api/internal/dto"
	"github.com/noah-isme/shkola-api/internal/models"
)

func newTaskFixture(t *testing.T) (*memoryUserRepo, *memoryTaskRepo, *memoryStudentTaskRepo, *fakeFileStore, TaskService) {
	t.Helper()

	users, tasks, records := newMemoryRepos()
	store := newFakeFileStore()
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := NewTaskService(tasks, records, users, store, validate, testLogger())
	return users, tasks, records, store, svc
}

func multipartFile(t *testing.T, name, content string) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	return req.MultipartForm.File["file"][0]
}

func taskPayload(studentIDs ...uint) dto.TaskCreateRequest {
	return dto.TaskCreateRequest{
		Title:       "Essay",
		Description: "Write about your summer",
		Subject:     "literature",
		Reason:      "practice",
		Grade:       "9",
		StudentIDs:  studentIDs,
	}
}

func TestTaskCreateFansOutToStudents(t *testing.T) {
	users, _, records, _, svc := newTaskFixture(t)
	teacher := users.addTeacher("Ivanova", "ivanova@school.local", true)
	first := users.addStudent("Petya", "petya@school.local", "9")
	second := users.addStudent("Masha", "masha@school.local", "9")

	task, err := svc.Create(context.Background(), teacher.ID, taskPayload(first.ID, second.ID))
	require.NoError(t, err)
	require.Equal(t, "9", task.Grade)
	require.Equal(t, teacher.ID, task.TeacherID)

	assigned := records.forTask(task.ID)
	require.Len(t, assigned, 2)
	for _, record := range assigned {
		require.Equal(t, models.StudentTaskStatusAssigned, record.Status)
	}
}

func TestTaskCreateRequiresVerifiedTeacher(t *testing.T) {
	users, _, _, _, svc := newTaskFixture(t)
	teacher := users.addTeacher("Ivanova", "ivanova@school.local", false)
	student := users.addStudent("Petya", "petya@school.local", "9")

	_, err := svc.Create(context.Background(), teacher.ID, taskPayload(student.ID))
	require.ErrorIs(t, err, ErrTeacherNotVerified)
}

func TestTaskCreateRejectsWrongGradeStudents(t *testing.T) {
	users, _, _, _, svc := newTaskFixture(t)
	teacher := users.addTeacher("Ivanova", "ivanova@school.local", true)
	inGrade := users.addStudent("Petya", "petya@school.local", "9")
	otherGrade := users.addStudent("Vova", "vova@school.local", "8")

	_, err := svc.Create(context.Background(), teacher.ID, taskPayload(inGrade.ID, otherGrade.ID))
	require.ErrorIs(t, err, ErrGradeMismatch)
}

func TestTaskCreateRejectsUnknownStudents(t *testing.T) {
	users, _, _, _, svc := newTaskFixture(t)
	teacher := users.addTeacher("Ivanova", "ivanova@school.local", true)

	_, err := svc.Create(context.Background(), teacher.ID, taskPayload(999))
	require.ErrorIs(t, err, ErrGradeMismatch)
}

func TestTaskUpdateAddsAndRemovesStudents(t *testing.T) {
	users, _, records, _, svc := newTaskFixture(t)
	teacher := users.addTeacher("Ivanova", "ivanova@school.local", true)
	kept := users.addStudent("Petya", "petya@school.local", "9")
	dropped := users.addStudent("Masha", "masha@school.local", "9")
	added := users.addStudent("Vova", "vova@school.local", "9")

	task, err := svc.Create(context.Background(), teacher.ID, taskPayload(kept.ID, dropped.ID))
	require.NoError(t, err)

	roster := []uint{kept.ID, added.ID}
	_, err = svc.Update(context.Background(), teacher.ID, task.ID, dto.TaskUpdateRequest{StudentIDs: &roster})
	require.NoError(t, err)

	assigned := records.forTask(task.ID)
	require.Len(t, assigned, 2)
	ids := map[uint]bool{}
	for _, record := range assigned {
		ids[record.StudentID] = true
	}
	require.True(t, ids[kept.ID])
	require.True(t, ids[added.ID])
	require.False(t, ids[dropped.ID])
}

func TestTaskUpdateBlocksRemovalAfterSubmission(t *testing.T) {
	users, _, records, _, svc := newTaskFixture(t)
	teacher := users.addTeacher("Ivanova", "ivanova@school.local", true)
	kept := users.addStudent("Petya", "petya@school.local", "9")
	submitted := users.addStudent("Masha", "masha@school.local", "9")

	task, err := svc.Create(context.Background(), teacher.ID, taskPayload(kept.ID, submitted.ID))
	require.NoError(t, err)

	for _, record := range records.forTask(task.ID) {
		if record.StudentID == submitted.ID {
			record.Status = models.StudentTaskStatusSubmitted
			require.NoError(t, records.Update(context.Background(), &record))
		}
	}

	roster := []uint{kept.ID}
	_, err = svc.Update(context.Background(), teacher.ID, task.ID, dto.TaskUpdateRequest{StudentIDs: &roster})
	require.ErrorIs(t, err, ErrStudentHasSubmission)

	// nothing was removed
	require.Len(t, records.forTask(task.ID), 2)
}

func TestTaskUpdateForeignTaskReadsAsNotFound(t *testing.T) {
	users, _, _, _, svc := newTaskFixture(t)
	teacher := users.addTeacher("Ivanova", "ivanova@school.local", true)
	student := users.addStudent("Petya", "petya@school.local", "9")

	task, err := svc.Create(context.Background(), teacher.ID, taskPayload(student.ID))
	require.NoError(t, err)

	title := "New title"
	_, err = svc.Update(context.Background(), teacher.ID+1, task.ID, dto.TaskUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskDeleteRemovesRecordsAndFiles(t *testing.T) {
	users, tasks, records, store, svc := newTaskFixture(t)
	teacher := users.addTeacher("Ivanova", "ivanova@school.local", true)
	student := users.addStudent("Petya", "petya@school.local", "9")

	task, err := svc.Create(context.Background(), teacher.ID, taskPayload(student.ID))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), teacher.ID, task.ID))

	_, err = tasks.GetByID(context.Background(), task.ID)
	require.Error(t, err)
	require.Empty(t, records.forTask(task.ID))
	require.Contains(t, store.removedTrees, task.ID)
}

func TestTaskListByGradeScopes(t *testing.T) {
	users, _, _, _, svc := newTaskFixture(t)
	mine := users.addTeacher("Ivanova", "ivanova@school.local", true)
	other := users.addTeacher("Petrova", "petrova@school.local", true)
	student := users.addStudent("Petya", "petya@school.local", "9")

	_, err := svc.Create(context.Background(), mine.ID, taskPayload(student.ID))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), other.ID, taskPayload(student.ID))
	require.NoError(t, err)

	own, err := svc.ListByGrade(context.Background(), mine.ID, "9", "mine")
	require.NoError(t, err)
	require.Len(t, own, 1)

	all, err := svc.ListByGrade(context.Background(), mine.ID, "9", "all")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestTaskFileUploadHonoursCap(t *testing.T) {
	users, _, _, _, svc := newTaskFixture(t)
	teacher := users.addTeacher("Ivanova", "ivanova@school.local", true)
	student := users.addStudent("Petya", "petya@school.local", "9")

	task, err := svc.Create(context.Background(), teacher.ID, taskPayload(student.ID))
	require.NoError(t, err)

	for i := 0; i < models.MaxTaskFiles; i++ {
		file := multipartFile(t, "worksheet.txt", "content")
		_, err := svc.UploadFile(context.Background(), teacher.ID, task.ID, file)
		require.NoError(t, err)
	}

	file := multipartFile(t, "extra.txt", "content")
	_, err = svc.UploadFile(context.Background(), teacher.ID, task.ID, file)
	require.ErrorIs(t, err, ErrTooManyFiles)
}

func TestTaskFilePathRejectsTraversal(t *testing.T) {
	_, _, _, _, svc := newTaskFixture(t)

	_, _, err := svc.FilePath(context.Background(), 1, "../secret")
	require.ErrorIs(t, err, ErrFileNotFound)
}
