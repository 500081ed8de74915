package repository

import (
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/withyou-app/withyou/internal/model"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// NotificationFilter narrows a recipient's feed.
type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
}

type NotificationRepository interface {
	Create(n *model.Notification) error
	Notifications(userID string, filter NotificationFilter) ([]*model.Notification, error)
	CountUnread(userID string) (int, error)
	MarkRead(userID, id string) error
	Delete(userID, id string) error
}

type notificationRepository struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

func NewNotificationRepository(db *sqlx.DB, dialect goqu.DialectWrapper) NotificationRepository {
	return &notificationRepository{db: db, dialect: dialect}
}

func (r *notificationRepository) Create(n *model.Notification) error {
	query := `INSERT INTO notifications (id, to_user_id, from_user_id, from_name, type, message, read, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query, n.ID, n.ToUserID, n.FromUserID, n.FromName, n.Type, n.Message, n.Read, n.CreatedAt)
	return err
}

// Notifications returns the recipient's feed, newest first.
func (r *notificationRepository) Notifications(userID string, filter NotificationFilter) ([]*model.Notification, error) {
	ds := r.dialect.From("notifications").Prepared(true).
		Where(goqu.C("to_user_id").Eq(userID)).
		Order(goqu.C("created_at").Desc())
	if filter.UnreadOnly {
		ds = ds.Where(goqu.C("read").IsFalse())
	}
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}

	var notifications []*model.Notification
	err = r.db.Select(&notifications, query, args...)
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *notificationRepository) CountUnread(userID string) (int, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM notifications WHERE to_user_id = $1 AND read = false`, userID)
	return count, err
}

func (r *notificationRepository) MarkRead(userID, id string) error {
	result, err := r.db.Exec(`UPDATE notifications SET read = true WHERE id = $1 AND to_user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	return expectRows(result, ErrNotificationNotFound)
}

func (r *notificationRepository) Delete(userID, id string) error {
	result, err := r.db.Exec(`DELETE FROM notifications WHERE id = $1 AND to_user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	return expectRows(result, ErrNotificationNotFound)
}
