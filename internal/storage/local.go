package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrFileTooLarge indicates the upload exceeded the configured limit.
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrFileTypeNotAllowed indicates the sniffed MIME type is not permitted.
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	// ErrUnsafeFilename indicates a name that would escape the storage tree.
	ErrUnsafeFilename = errors.New("unsafe file name")
)

var allowedMIMETypes = []string{
	"application/pdf",
	"application/zip",
	"application/x-zip-compressed",
	"text/plain",
	"image/png",
	"image/jpeg",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// StoredFile describes a file persisted under the upload tree.
type StoredFile struct {
	OriginalName string
	StoredName   string
	Path         string
}

// Store writes uploaded artifacts to the local disk: task attachments under
// <root>/tasks/<task_id>/ and submission files under
// <root>/submissions/<task_id>/<student_id>/. Stored names are random, so
// concurrent uploads never collide.
type Store struct {
	root     string
	maxBytes int64
	logger   zerolog.Logger
}

// NewStore builds a Store rooted at dir.
func NewStore(dir string, maxSizeMB int, logger zerolog.Logger) *Store {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &Store{
		root:     dir,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		logger:   logger.With().Str("component", "file_store").Logger(),
	}
}

// SaveTaskFile persists one task attachment and returns its stored identity.
func (s *Store) SaveTaskFile(taskID uint, file *multipart.FileHeader) (StoredFile, error) {
	return s.save(s.taskDir(taskID), file)
}

// SaveSubmissionFile persists one file from a student's submission.
func (s *Store) SaveSubmissionFile(taskID, studentID uint, file *multipart.FileHeader) (StoredFile, error) {
	return s.save(s.submissionDir(taskID, studentID), file)
}

// RemoveTaskFile deletes one stored task attachment.
func (s *Store) RemoveTaskFile(taskID uint, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	return os.Remove(filepath.Join(s.taskDir(taskID), name))
}

// RemoveTaskTree deletes every artifact belonging to a task, including all
// student submission files. Used when the owning teacher deletes the task.
func (s *Store) RemoveTaskTree(taskID uint) error {
	if err := os.RemoveAll(s.taskDir(taskID)); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.root, "submissions", strconv.FormatUint(uint64(taskID), 10)))
}

// ClearSubmissionFiles removes a student's previously uploaded files so a
// resubmission fully replaces them.
func (s *Store) ClearSubmissionFiles(taskID, studentID uint) error {
	return os.RemoveAll(s.submissionDir(taskID, studentID))
}

// ListTaskFiles returns stored attachment names for a task.
func (s *Store) ListTaskFiles(taskID uint) []string {
	return listNames(s.taskDir(taskID))
}

// ListSubmissionFiles returns stored file names for one student's submission.
func (s *Store) ListSubmissionFiles(taskID, studentID uint) []string {
	return listNames(s.submissionDir(taskID, studentID))
}

func (s *Store) save(dir string, file *multipart.FileHeader) (StoredFile, error) {
	if file.Size > s.maxBytes {
		return StoredFile{}, ErrFileTooLarge
	}

	reader, err := file.Open()
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := false
	for _, a := range allowedMIMETypes {
		if mime.Is(a) {
			allowed = true
			break
		}
	}
	if !allowed {
		return StoredFile{}, fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, mime.String())
	}

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return StoredFile{}, fmt.Errorf("failed to rewind upload: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("failed to create upload dir: %w", err)
	}

	storedName := randomName(file.Filename)
	path := filepath.Join(dir, storedName)

	dst, err := os.Create(path)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, reader); err != nil {
		os.Remove(path)
		return StoredFile{}, fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug().Str("path", path).Str("original", file.Filename).Msg("file stored")

	return StoredFile{
		OriginalName: file.Filename,
		StoredName:   storedName,
		Path:         path,
	}, nil
}

func (s *Store) taskDir(taskID uint) string {
	return filepath.Join(s.root, "tasks", strconv.FormatUint(uint64(taskID), 10))
}

func (s *Store) submissionDir(taskID, studentID uint) string {
	return filepath.Join(s.root, "submissions",
		strconv.FormatUint(uint64(taskID), 10),
		strconv.FormatUint(uint64(studentID), 10))
}

// ValidateName rejects names that could traverse outside the storage tree.
func ValidateName(name string) error {
	if name == "" ||
		strings.Contains(name, "..") ||
		strings.HasPrefix(name, "/") ||
		strings.ContainsAny(name, `/\`) {
		return ErrUnsafeFilename
	}
	return nil
}

func randomName(original string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" || ext == "." {
		return random
	}
	return random + ext
}

func listNames(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names
}
