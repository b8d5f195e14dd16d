package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenQuery = "SELECT user_id, expires_at, revoked_at FROM refresh_tokens"

func TestValidateRefresh(t *testing.T) {
	future := time.Now().UTC().Add(time.Hour)
	past := time.Now().UTC().Add(-time.Hour)

	cases := []struct {
		name      string
		expiresAt time.Time
		revokedAt any
		wantUser  uint64
		wantErr   error
	}{
		{"live token", future, nil, 7, nil},
		{"revoked token", future, past, 0, sql.ErrNoRows},
		{"expired token", past, nil, 0, sql.ErrNoRows},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			repo := NewTokenRepo(db)

			mock.ExpectQuery(tokenQuery).
				WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
					AddRow(7, tc.expiresAt, tc.revokedAt))

			uid, err := repo.ValidateRefresh(context.Background(), "somehash")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.wantUser, uid)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestValidateRefreshUnknownToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepo(db)

	mock.ExpectQuery(tokenQuery).WillReturnError(sql.ErrNoRows)

	_, err = repo.ValidateRefresh(context.Background(), "unknown")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRevokeByHashOnlyTouchesLiveRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepo(db)

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=\\? WHERE token_hash=\\? AND revoked_at IS NULL").
		WithArgs(sqlmock.AnyArg(), "somehash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RevokeByHash(context.Background(), "somehash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
