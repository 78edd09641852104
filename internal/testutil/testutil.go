// Package testutil holds fixtures shared by package tests: an in-memory
// sqlite database with the schema applied and a miniredis-backed client.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/warbler/internal/model"
)

// NewDB opens a private in-memory database. A single connection keeps every
// query on the same sqlite handle.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewRedis starts a miniredis server torn down with the test.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// CreateUser inserts a user whose password is "password".
func CreateUser(t testing.TB, db *gorm.DB, username string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &model.User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          fmt.Sprintf("%s@test.com", username),
		Password:       string(hash),
		ImageURL:       model.DefaultImageURL,
		HeaderImageURL: model.DefaultHeaderImageURL,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

// CreateMessage inserts a message; successive calls get increasing timestamps.
func CreateMessage(t testing.TB, db *gorm.DB, userID, text string) *model.Message {
	t.Helper()
	m := &model.Message{ID: uuid.NewString(), UserID: userID, Text: text, Timestamp: nextTimestamp()}
	if err := db.Omit("User").Create(m).Error; err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return m
}

var clock = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func nextTimestamp() time.Time {
	clock = clock.Add(time.Second)
	return clock
}
