package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/shkola-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}, &models.TaskFile{}, &models.StudentTask{}, &models.Attendance{}))
	return db
}

func seedTeacher(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{FullName: "Teacher " + email, Email: email, HashedPassword: "x", Role: models.RoleTeacher, IsVerified: true}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedStudent(t *testing.T, db *gorm.DB, email, grade string) models.User {
	t.Helper()
	user := models.User{FullName: "Student " + email, Email: email, HashedPassword: "x", Role: models.RoleStudent, Grade: &grade}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedTask(t *testing.T, db *gorm.DB, teacherID uint, title, grade string) models.Task {
	t.Helper()
	task := models.Task{Title: title, Description: "d", Subject: "Algebra", Reason: "homework", Grade: grade, TeacherID: teacherID}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func seedRecord(t *testing.T, db *gorm.DB, taskID, studentID uint, status string) models.StudentTask {
	t.Helper()
	record := models.StudentTask{TaskID: taskID, StudentID: studentID, Status: status}
	require.NoError(t, db.Create(&record).Error)
	return record
}

func TestStudentTaskUniquePerTaskAndStudent(t *testing.T) {
	db := setupTestDB(t)
	teacher := seedTeacher(t, db, "ivanova@school.local")
	student := seedStudent(t, db, "petya@school.local", "9")
	task := seedTask(t, db, teacher.ID, "Quadratic equations", "9")

	repo := NewStudentTaskRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.StudentTask{TaskID: task.ID, StudentID: student.ID, Status: models.StudentTaskStatusAssigned}))
	err := repo.Create(ctx, &models.StudentTask{TaskID: task.ID, StudentID: student.ID, Status: models.StudentTaskStatusAssigned})
	require.Error(t, err, "duplicate assignment must hit the composite unique index")
}

func TestStudentTaskGetOwnedFoldsOwnership(t *testing.T) {
	db := setupTestDB(t)
	owner := seedTeacher(t, db, "ivanova@school.local")
	other := seedTeacher(t, db, "sidorov@school.local")
	student := seedStudent(t, db, "petya@school.local", "9")
	task := seedTask(t, db, owner.ID, "Quadratic equations", "9")
	record := seedRecord(t, db, task.ID, student.ID, models.StudentTaskStatusSubmitted)

	repo := NewStudentTaskRepository(db)
	ctx := context.Background()

	found, err := repo.GetOwned(ctx, record.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, task.ID, found.Task.ID)
	require.Equal(t, student.ID, found.Student.ID)

	_, err = repo.GetOwned(ctx, record.ID, other.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStudentTaskSaveAnalysisTouchesOneColumn(t *testing.T) {
	db := setupTestDB(t)
	teacher := seedTeacher(t, db, "ivanova@school.local")
	student := seedStudent(t, db, "petya@school.local", "9")
	task := seedTask(t, db, teacher.ID, "Quadratic equations", "9")
	record := seedRecord(t, db, task.ID, student.ID, models.StudentTaskStatusSubmitted)

	repo := NewStudentTaskRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveAnalysis(ctx, record.ID, "solid reasoning"))

	stored, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AIAnalysis)
	require.Equal(t, "solid reasoning", *stored.AIAnalysis)
	require.Equal(t, models.StudentTaskStatusSubmitted, stored.Status)

	require.ErrorIs(t, repo.SaveAnalysis(ctx, 999, "x"), gorm.ErrRecordNotFound)
}

func TestStudentTaskListPendingForTeacher(t *testing.T) {
	db := setupTestDB(t)
	owner := seedTeacher(t, db, "ivanova@school.local")
	other := seedTeacher(t, db, "sidorov@school.local")
	petya := seedStudent(t, db, "petya@school.local", "9")
	masha := seedStudent(t, db, "masha@school.local", "9")
	ownTask := seedTask(t, db, owner.ID, "Quadratic equations", "9")
	otherTask := seedTask(t, db, other.ID, "Essay", "9")

	seedRecord(t, db, ownTask.ID, petya.ID, models.StudentTaskStatusSubmitted)
	seedRecord(t, db, ownTask.ID, masha.ID, models.StudentTaskStatusAssigned)
	seedRecord(t, db, otherTask.ID, petya.ID, models.StudentTaskStatusSubmitted)

	repo := NewStudentTaskRepository(db)
	pending, err := repo.ListPendingForTeacher(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, petya.ID, pending[0].StudentID)
}

func TestTaskDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	teacher := seedTeacher(t, db, "ivanova@school.local")
	student := seedStudent(t, db, "petya@school.local", "9")
	task := seedTask(t, db, teacher.ID, "Quadratic equations", "9")
	seedRecord(t, db, task.ID, student.ID, models.StudentTaskStatusAssigned)

	repo := NewTaskRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.AddFile(ctx, &models.TaskFile{TaskID: task.ID, OriginalName: "sheet.pdf", StoredName: "abc.pdf", Path: "/tmp/abc.pdf"}))
	require.NoError(t, repo.Delete(ctx, task.ID))

	var records, files int64
	require.NoError(t, db.Model(&models.StudentTask{}).Where("task_id = ?", task.ID).Count(&records).Error)
	require.NoError(t, db.Model(&models.TaskFile{}).Where("task_id = ?", task.ID).Count(&files).Error)
	require.Zero(t, records)
	require.Zero(t, files)

	require.ErrorIs(t, repo.Delete(ctx, task.ID), gorm.ErrRecordNotFound)
}

func TestTaskGetOwnedRequiresOwnership(t *testing.T) {
	db := setupTestDB(t)
	owner := seedTeacher(t, db, "ivanova@school.local")
	other := seedTeacher(t, db, "sidorov@school.local")
	task := seedTask(t, db, owner.ID, "Quadratic equations", "9")

	repo := NewTaskRepository(db)
	ctx := context.Background()

	_, err := repo.GetOwned(ctx, task.ID, owner.ID)
	require.NoError(t, err)

	_, err = repo.GetOwned(ctx, task.ID, other.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTaskListForStudentPaginates(t *testing.T) {
	db := setupTestDB(t)
	teacher := seedTeacher(t, db, "ivanova@school.local")
	student := seedStudent(t, db, "petya@school.local", "9")

	for i := 0; i < 7; i++ {
		task := seedTask(t, db, teacher.ID, fmt.Sprintf("Task %d", i+1), "9")
		seedRecord(t, db, task.ID, student.ID, models.StudentTaskStatusAssigned)
	}

	repo := NewTaskRepository(db)
	ctx := context.Background()

	first, total, err := repo.ListForStudent(ctx, student.ID, 1, 5)
	require.NoError(t, err)
	require.Equal(t, int64(7), total)
	require.Len(t, first, 5)
	require.Equal(t, "Task 7", first[0].Title, "expected newest task first")

	second, _, err := repo.ListForStudent(ctx, student.ID, 2, 5)
	require.NoError(t, err)
	require.Len(t, second, 2)
}

func TestUserGetByEmailNormalizes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := models.User{FullName: "Ivanova", Email: "ivanova@school.local", HashedPassword: "x", Role: models.RoleTeacher}
	require.NoError(t, repo.Create(ctx, &user))

	found, err := repo.GetByEmail(ctx, "  Ivanova@School.Local ")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)
}

func TestUserDeleteStudentSparesTeachers(t *testing.T) {
	db := setupTestDB(t)
	teacher := seedTeacher(t, db, "ivanova@school.local")
	student := seedStudent(t, db, "petya@school.local", "9")

	repo := NewUserRepository(db)
	ctx := context.Background()

	require.ErrorIs(t, repo.DeleteStudent(ctx, teacher.ID), gorm.ErrRecordNotFound)
	require.NoError(t, repo.DeleteStudent(ctx, student.ID))
	require.ErrorIs(t, repo.DeleteStudent(ctx, student.ID), gorm.ErrRecordNotFound)
}

func TestUserListStudentsByGrade(t *testing.T) {
	db := setupTestDB(t)
	seedStudent(t, db, "petya@school.local", "9")
	seedStudent(t, db, "masha@school.local", "9")
	seedStudent(t, db, "kolya@school.local", "10")
	seedTeacher(t, db, "ivanova@school.local")

	repo := NewUserRepository(db)
	ctx := context.Background()

	ninth, err := repo.ListStudentsByGrade(ctx, "9")
	require.NoError(t, err)
	require.Len(t, ninth, 2)

	all, err := repo.ListStudentsByGrade(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
}
