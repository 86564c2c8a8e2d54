package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/shkola-api/internal/config"
	"github.com/noah-isme/shkola-api/internal/dto"
	"github.com/noah-isme/shkola-api/pkg/lms"
)

// ErrLMSNotConfigured indicates no LMS credentials were provided.
var ErrLMSNotConfigured = errors.New("lms integration is not configured")

// ErrLMSAccountNotFound indicates no LMS account is mapped to the teacher.
var ErrLMSAccountNotFound = errors.New("no lms account for this teacher")

// ErrLMSUnavailable wraps upstream LMS failures.
var ErrLMSUnavailable = errors.New("lms is unavailable")

const lmsReportKeyPrefix = "lms:report:"

// LMSGateway is the slice of the LMS client the report service needs.
type LMSGateway interface {
	Login(ctx context.Context, username, password string) (string, error)
	ListCourses(ctx context.Context, token string) ([]lms.Course, error)
	ListMarks(ctx context.Context, token string, courseID int) ([]lms.Mark, error)
	ActivityDate(ctx context.Context, token string, activityID int) (string, error)
}

// LMSReportService aggregates, per course, how long ago the last grade was
// recorded in the external LMS. Reports are cached in Redis because one
// report costs dozens of upstream round trips.
type LMSReportService interface {
	CoursesWithLastGrade(ctx context.Context, teacherID *uint) ([]dto.CourseGradeInfo, error)
}

type lmsReportService struct {
	gateway  LMSGateway
	cache    *redis.Client
	cacheTTL time.Duration
	username string
	password string
	accounts map[uint]config.LMSAccount
	logger   zerolog.Logger
	now      func() time.Time
}

// NewLMSReportService constructs an LMSReportService instance. cache may be
// nil; reports are then recomputed on every call.
func NewLMSReportService(gateway LMSGateway, cache *redis.Client, cfg config.Config, logger zerolog.Logger) LMSReportService {
	return &lmsReportService{
		gateway:  gateway,
		cache:    cache,
		cacheTTL: cfg.LMSCacheTTL,
		username: cfg.LMSUsername,
		password: cfg.LMSPassword,
		accounts: cfg.LMSAccounts,
		logger:   logger.With().Str("component", "lms_report_service").Logger(),
		now:      time.Now,
	}
}

func (s *lmsReportService) CoursesWithLastGrade(ctx context.Context, teacherID *uint) ([]dto.CourseGradeInfo, error) {
	username, password, prefixes, cacheKey, err := s.resolveAccount(teacherID)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.fromCache(ctx, cacheKey); ok {
		return cached, nil
	}

	report, err := s.buildReport(ctx, username, password, prefixes)
	if err != nil {
		return nil, err
	}

	s.toCache(ctx, cacheKey, report)

	return report, nil
}

func (s *lmsReportService) resolveAccount(teacherID *uint) (username, password string, prefixes []string, cacheKey string, err error) {
	if teacherID != nil {
		account, ok := s.accounts[*teacherID]
		if !ok {
			return "", "", nil, "", ErrLMSAccountNotFound
		}
		return account.Username, account.Password, account.ClassPrefixes, fmt.Sprintf("%steacher:%d", lmsReportKeyPrefix, *teacherID), nil
	}

	if s.username == "" || s.password == "" {
		return "", "", nil, "", ErrLMSNotConfigured
	}

	return s.username, s.password, nil, lmsReportKeyPrefix + "default", nil
}

func (s *lmsReportService) buildReport(ctx context.Context, username, password string, prefixes []string) ([]dto.CourseGradeInfo, error) {
	token, err := s.gateway.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLMSUnavailable, err)
	}

	courses, err := s.gateway.ListCourses(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLMSUnavailable, err)
	}

	today := s.now().Truncate(24 * time.Hour)

	report := make([]dto.CourseGradeInfo, 0, len(courses))
	for _, course := range courses {
		if !matchesPrefix(course.ForClass, prefixes) {
			continue
		}

		info := dto.CourseGradeInfo{
			CourseTitle: course.Title,
			ClassName:   course.ForClass,
		}

		last, err := s.lastGradeDate(ctx, token, course.ID, today)
		if err != nil {
			return nil, err
		}
		if last != nil {
			formatted := last.Format("2006-01-02")
			days := int(today.Sub(*last).Hours() / 24)
			info.LastGradeDate = &formatted
			info.DaysSinceLastGrade = &days
		}

		report = append(report, info)
	}

	return report, nil
}

// lastGradeDate finds the most recent activity date among real grades of one
// course. Dates in the future are ignored; they belong to scheduled, not
// taught, lessons.
func (s *lmsReportService) lastGradeDate(ctx context.Context, token string, courseID int, today time.Time) (*time.Time, error) {
	marks, err := s.gateway.ListMarks(ctx, token, courseID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLMSUnavailable, err)
	}

	seen := make(map[int]struct{})
	var last *time.Time
	for _, mark := range marks {
		if !mark.IsGrade() {
			continue
		}
		activityID := *mark.Activity
		if _, done := seen[activityID]; done {
			continue
		}
		seen[activityID] = struct{}{}

		raw, err := s.gateway.ActivityDate(ctx, token, activityID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLMSUnavailable, err)
		}
		if raw == "" {
			continue
		}

		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			s.logger.Warn().Str("date", raw).Int("activity_id", activityID).Msg("unparseable activity date")
			continue
		}
		if date.After(today) {
			continue
		}
		if last == nil || date.After(*last) {
			last = &date
		}
	}

	return last, nil
}

func matchesPrefix(class *string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	if class == nil {
		return false
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(*class, prefix) {
			return true
		}
	}
	return false
}

func (s *lmsReportService) fromCache(ctx context.Context, key string) ([]dto.CourseGradeInfo, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("lms report cache read failed")
		}
		return nil, false
	}

	var report []dto.CourseGradeInfo
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("corrupt lms report cache entry")
		return nil, false
	}

	return report, true
}

func (s *lmsReportService) toCache(ctx context.Context, key string, report []dto.CourseGradeInfo) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("lms report cache write failed")
	}
}
