package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ BlogRepository = (*BlogRepositoryImpl)(nil)

type BlogRepositoryImpl struct {
	db *DB
}

func NewBlogRepository(db *DB) *BlogRepositoryImpl {
	return &BlogRepositoryImpl{db: db}
}

func (r *BlogRepositoryImpl) CreateBlogPost(post *BlogPost) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO blog_posts (id, user_id, video_id, video_url, video_title, slug, title, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, post.ID, post.UserID, post.VideoID, post.VideoURL, post.VideoTitle, post.Slug, post.Title, post.Body, post.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create blog post: %w", err)
	}

	return nil
}

func (r *BlogRepositoryImpl) GetBlogPost(id string) (*BlogPost, error) {
	var post BlogPost

	err := r.db.QueryRow(`
		SELECT id, user_id, video_id, video_url, video_title, slug, title, body, created_at
		FROM blog_posts WHERE id = ?
	`, id).Scan(&post.ID, &post.UserID, &post.VideoID, &post.VideoURL, &post.VideoTitle,
		&post.Slug, &post.Title, &post.Body, &post.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blog post: %w", err)
	}

	return &post, nil
}

func (r *BlogRepositoryImpl) ListBlogPosts(userID string, limit int) ([]BlogPost, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, video_id, video_url, video_title, slug, title, body, created_at
		FROM blog_posts
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list blog posts: %w", err)
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		var post BlogPost
		err := rows.Scan(&post.ID, &post.UserID, &post.VideoID, &post.VideoURL, &post.VideoTitle,
			&post.Slug, &post.Title, &post.Body, &post.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blog post: %w", err)
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

// DeleteBlogPost removes a post only when it belongs to the given user.
func (r *BlogRepositoryImpl) DeleteBlogPost(id, userID string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM blog_posts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete blog post: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *BlogRepositoryImpl) HasBlogForVideo(userID, videoID string) (bool, error) {
	var id string

	err := r.db.QueryRow(`
		SELECT id FROM blog_posts WHERE user_id = ? AND video_id = ? LIMIT 1
	`, userID, videoID).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check blog for video: %w", err)
	}

	return true, nil
}

func (r *BlogRepositoryImpl) GetBlogPostCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM blog_posts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count blog posts: %w", err)
	}
	return count, nil
}
