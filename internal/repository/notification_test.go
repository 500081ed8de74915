package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/withyou-app/withyou/internal/model"
)

var notificationColumns = []string{"id", "to_user_id", "from_user_id", "from_name", "type", "message", "read", "created_at"}

func TestNotificationsFilter(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		filter NotificationFilter
		query  string
	}{
		{
			name:   "all",
			filter: NotificationFilter{},
			query:  `SELECT \* FROM "notifications" WHERE .*"to_user_id" = \$1.* ORDER BY "created_at" DESC$`,
		},
		{
			name:   "unread with limit",
			filter: NotificationFilter{UnreadOnly: true, Limit: 20},
			query:  `SELECT \* FROM "notifications" WHERE .*"read" IS FALSE.* ORDER BY "created_at" DESC LIMIT`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupMockDB(t)
			defer cleanup()

			mock.ExpectQuery(tt.query).
				WillReturnRows(sqlmock.NewRows(notificationColumns).
					AddRow("n1", "u1", "s1", "sam", model.NotificationMissionReceived, "New mission: Run", false, now))

			notifications, err := NewNotificationRepository(db, mockDialect).Notifications("u1", tt.filter)

			require.NoError(t, err)
			require.Len(t, notifications, 1)
			assert.Equal(t, "New mission: Run", notifications[0].Message)
		})
	}
}

func TestNotificationMarkReadScopedToRecipient(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE notifications SET read = true WHERE id = \\$1 AND to_user_id = \\$2").
		WithArgs("n1", "someone-else").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewNotificationRepository(db, mockDialect).MarkRead("someone-else", "n1")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}
