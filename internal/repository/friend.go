package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/withyou-app/withyou/internal/model"
)

var (
	ErrFriendRequestNotFound = errors.New("friend request not found")
)

type FriendRepository interface {
	CreateRequest(req *model.FriendRequest) error
	RequestByID(id string) (*model.FriendRequest, error)
	PendingRequests(userID string) ([]*model.FriendRequest, error)
	HasPendingRequest(fromUserID, toUserID string) (bool, error)
	Accept(req *model.FriendRequest) error
	DeleteRequest(userID, id string) error
	Friends(userID string) ([]*model.Friend, error)
	FriendIDs(userID string) ([]string, error)
	AreFriends(userID, otherID string) (bool, error)
}

type friendRepository struct {
	db *sqlx.DB
}

func NewFriendRepository(db *sqlx.DB) FriendRepository {
	return &friendRepository{db: db}
}

func (r *friendRepository) CreateRequest(req *model.FriendRequest) error {
	_, err := r.db.Exec(`INSERT INTO friend_requests (id, from_user_id, to_user_id, status, created_at)
	                     VALUES ($1, $2, $3, $4, $5)`,
		req.ID, req.FromUserID, req.ToUserID, req.Status, req.CreatedAt)
	return err
}

func (r *friendRepository) RequestByID(id string) (*model.FriendRequest, error) {
	req := &model.FriendRequest{}
	err := r.db.Get(req, `SELECT * FROM friend_requests WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrFriendRequestNotFound
	}
	if err != nil {
		return nil, err
	}

	return req, nil
}

// PendingRequests lists requests addressed to userID with the sender's username.
func (r *friendRepository) PendingRequests(userID string) ([]*model.FriendRequest, error) {
	var requests []*model.FriendRequest
	query := `SELECT fr.id, fr.from_user_id, fr.to_user_id, fr.status, fr.created_at,
	                 COALESCE(NULLIF(p.username, ''), fr.from_user_id) AS from_username
	          FROM friend_requests fr
	          LEFT JOIN profiles p ON p.user_id = fr.from_user_id
	          WHERE fr.to_user_id = $1 AND fr.status = $2
	          ORDER BY fr.created_at DESC`

	err := r.db.Select(&requests, query, userID, model.FriendRequestStatusPending)
	if err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *friendRepository) HasPendingRequest(fromUserID, toUserID string) (bool, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM friend_requests
	                         WHERE from_user_id = $1 AND to_user_id = $2 AND status = $3`,
		fromUserID, toUserID, model.FriendRequestStatusPending)
	return count > 0, err
}

// Accept writes both friendship edges and consumes the request, or none of it.
func (r *friendRepository) Accept(req *model.FriendRequest) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	edge := `INSERT INTO friendships (user_id, friend_id, created_at) VALUES ($1, $2, $3)
	         ON CONFLICT (user_id, friend_id) DO NOTHING`

	_, err = tx.Exec(edge, req.FromUserID, req.ToUserID, now)
	if err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	_, err = tx.Exec(edge, req.ToUserID, req.FromUserID, now)
	if err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM friend_requests WHERE id = $1`, req.ID)
	if err != nil {
		return err
	}
	err = expectRows(result, ErrFriendRequestNotFound)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteRequest removes a request addressed to userID.
func (r *friendRepository) DeleteRequest(userID, id string) error {
	result, err := r.db.Exec(`DELETE FROM friend_requests WHERE id = $1 AND to_user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	return expectRows(result, ErrFriendRequestNotFound)
}

func (r *friendRepository) Friends(userID string) ([]*model.Friend, error) {
	var friends []*model.Friend
	query := `SELECT f.friend_id, COALESCE(p.username, '') AS username, f.created_at
	          FROM friendships f
	          LEFT JOIN profiles p ON p.user_id = f.friend_id
	          WHERE f.user_id = $1
	          ORDER BY f.created_at ASC`

	err := r.db.Select(&friends, query, userID)
	if err != nil {
		return nil, err
	}

	return friends, nil
}

func (r *friendRepository) FriendIDs(userID string) ([]string, error) {
	var ids []string
	err := r.db.Select(&ids, `SELECT friend_id FROM friendships WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *friendRepository) AreFriends(userID, otherID string) (bool, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM friendships WHERE user_id = $1 AND friend_id = $2`, userID, otherID)
	return count > 0, err
}
