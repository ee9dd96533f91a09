package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/manuelcattigobetti/provaANPI/internal/domain/entity"
	"github.com/manuelcattigobetti/provaANPI/internal/domain/repository"
	"github.com/manuelcattigobetti/provaANPI/internal/infrastructure/elastic"
	"github.com/manuelcattigobetti/provaANPI/pkg/validation"
)

const (
	emailMaxCreate = 70
	emailMaxUpdate = 100

	maxAgeYears = 120

	searchLimit = 50
)

// UserInput carries the raw client-supplied fields of a create or update.
// Validation normalizes every field before anything touches storage.
type UserInput struct {
	Surname     string `json:"surname"`
	GivenName   string `json:"given_name"`
	DateOfBirth string `json:"date_of_birth"`
	Email       string `json:"email"`
	Level       int    `json:"level"`
}

// UserService implements the validated user CRUD. All writes go through full
// field validation first; the first failing field aborts the operation.
type UserService struct {
	repo  repository.UserRepository
	index *elastic.UserIndex
	log   *logrus.Logger

	now func() time.Time
}

func NewUserService(repo repository.UserRepository, index *elastic.UserIndex, log *logrus.Logger) *UserService {
	return &UserService{repo: repo, index: index, log: log, now: time.Now}
}

// validate normalizes all fields and returns the entity to persist, stopping
// at the first invalid field.
func (s *UserService) validate(in UserInput, emailMax int) (*entity.User, error) {
	surname, err := validation.PersonName(in.Surname, true)
	if err != nil {
		return nil, err
	}
	givenName, err := validation.PersonName(in.GivenName, true)
	if err != nil {
		return nil, err
	}

	now := s.now()
	dob, err := validation.BirthDate(in.DateOfBirth, validation.DateUnbounded, now)
	if err != nil {
		return nil, err
	}
	if dob.After(now) || now.Year()-dob.Year() > maxAgeYears {
		return nil, &validation.Error{Field: "date_of_birth", Reason: "date outside the allowed range"}
	}

	email, err := validation.NormalizeEmail(in.Email, emailMax)
	if err != nil {
		return nil, err
	}
	if err := validation.Level(in.Level); err != nil {
		return nil, err
	}

	return &entity.User{
		Surname:     surname,
		GivenName:   givenName,
		DateOfBirth: dob,
		Email:       email,
		Level:       in.Level,
	}, nil
}

// Create validates and inserts a new user. Email uniqueness is enforced by the
// storage constraint, so a losing concurrent insert surfaces as ErrEmailTaken.
func (s *UserService) Create(ctx context.Context, in UserInput) (*entity.User, error) {
	u, err := s.validate(in, emailMaxCreate)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		if s.log != nil {
			s.log.WithError(err).Error("user insert failed")
		}
		return nil, err
	}
	s.index.Index(ctx, u)
	return u, nil
}

// Register creates a self-service account at the lowest level regardless of
// what the client sent.
func (s *UserService) Register(ctx context.Context, in UserInput) (*entity.User, error) {
	in.Level = entity.LevelMember
	return s.Create(ctx, in)
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

// GetByEmail looks up by the storage form of the address, so callers can pass
// whatever the user typed.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	norm, err := validation.NormalizeEmail(email, emailMaxUpdate)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.GetByEmail(ctx, norm)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

// List returns all users ordered by surname, then given name.
func (s *UserService) List(ctx context.Context) ([]*entity.User, error) {
	return s.repo.ListAll(ctx)
}

// Update re-validates every field and persists them together or not at all.
// Changing the email to one held by another record fails with ErrEmailTaken
// and leaves the row untouched.
func (s *UserService) Update(ctx context.Context, id int64, in UserInput) (*entity.User, error) {
	u, err := s.validate(in, emailMaxUpdate)
	if err != nil {
		return nil, err
	}
	u.ID = id
	if err := s.repo.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		}
		if s.log != nil {
			s.log.WithError(err).Error("user update failed")
		}
		return nil, err
	}
	s.index.Index(ctx, u)
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		if s.log != nil {
			s.log.WithError(err).Error("user delete failed")
		}
		return err
	}
	s.index.Remove(ctx, id)
	return nil
}

// Search finds users by fuzzy name/email match. With the search mirror
// enabled the ids come from Elasticsearch and the rows from Postgres; without
// it the list is scanned with a plain substring match so the endpoint keeps
// working on a minimal deployment.
func (s *UserService) Search(ctx context.Context, query string) ([]*entity.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx)
	}

	if s.index.Enabled() {
		ids, err := s.index.Search(ctx, query, searchLimit)
		if err != nil {
			return nil, err
		}
		users := make([]*entity.User, 0, len(ids))
		for _, id := range ids {
			u, err := s.repo.GetByID(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				continue // mirror lag, row already gone
			}
			if err != nil {
				return nil, err
			}
			users = append(users, u)
		}
		return users, nil
	}

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var users []*entity.User
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Surname), q) ||
			strings.Contains(strings.ToLower(u.GivenName), q) ||
			strings.Contains(u.Email, q) {
			users = append(users, u)
		}
	}
	return users, nil
}
