package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

var ErrCourseNotFound = fmt.Errorf("course not found")

type PostgresCourseRepository struct {
	db *sql.DB
}

func NewPostgresCourseRepository(db *sql.DB) *PostgresCourseRepository {
	return &PostgresCourseRepository{db: db}
}

func (r *PostgresCourseRepository) CourseName(ctx context.Context, courseID string) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx, `SELECT name FROM courses WHERE id = $1`, courseID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrCourseNotFound
		}
		return "", fmt.Errorf("error getting course name: %w", err)
	}
	return name, nil
}

type courseNameSource interface {
	CourseName(ctx context.Context, courseID string) (string, error)
}

// CachedCourseNames keeps course names in memory for ttl. Course names change
// rarely and every snapshot needs one.
type CachedCourseNames struct {
	next  courseNameSource
	cache *cache.Cache
}

func NewCachedCourseNames(next courseNameSource, ttl time.Duration) *CachedCourseNames {
	return &CachedCourseNames{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedCourseNames) CourseName(ctx context.Context, courseID string) (string, error) {
	if name, found := c.cache.Get(courseID); found {
		return name.(string), nil
	}
	name, err := c.next.CourseName(ctx, courseID)
	if err != nil {
		return "", err
	}
	c.cache.Set(courseID, name, cache.DefaultExpiration)
	return name, nil
}
