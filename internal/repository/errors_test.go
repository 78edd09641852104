package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/d60-Lab/warbler/internal/testutil"
)

func TestTranslateError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"pg unique", &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_username"}, ErrDuplicate},
		{"pg foreign key", &pgconn.PgError{Code: "23503", ConstraintName: "fk_messages_user"}, ErrForeignKey},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, ErrDuplicate},
		{"sqlite primary key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, ErrDuplicate},
		{"sqlite foreign key", fmt.Errorf("exec: %w", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}), ErrForeignKey},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := translateError(tc.in)
			if tc.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tc.want)
		})
	}

	other := errors.New("connection reset")
	assert.Equal(t, other, translateError(other))
}

func TestLikeRepository_RequiresExistingRows(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "alice")
	m := testutil.CreateMessage(t, db, a.ID, "hi")

	assert.ErrorIs(t, repo.Create(ctx, uuid.NewString(), m.ID), ErrForeignKey)
	assert.ErrorIs(t, repo.Create(ctx, a.ID, uuid.NewString()), ErrForeignKey)
}
