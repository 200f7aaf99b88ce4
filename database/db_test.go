package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/postscript-blog/postscript/database/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "blog.db")
	require.NoError(t, InitDB(dbPath))
	t.Cleanup(func() { _ = CloseDB() })
	return dbPath
}

func TestInitDBMigratesSchema(t *testing.T) {
	setup(t)
	m := GetDB().Migrator()
	for _, table := range []any{&model.User{}, &model.Post{}, &model.PostTag{}, &model.PostLike{}, &model.Comment{}} {
		assert.True(t, m.HasTable(table))
	}
	assert.True(t, m.HasIndex(&model.PostLike{}, "idx_post_user"))
}

func TestLikeUniqueIndex(t *testing.T) {
	setup(t)
	db := GetDB()
	u := model.User{Username: "alice", Email: "a@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	p := model.Post{Title: "Hello", Slug: "hello", Content: "some content", AuthorId: u.Id}
	require.NoError(t, db.Create(&p).Error)

	require.NoError(t, db.Create(&model.PostLike{PostId: p.Id, UserId: u.Id}).Error)
	err := db.Create(&model.PostLike{PostId: p.Id, UserId: u.Id}).Error
	assert.True(t, IsUniqueViolation(err))
}

func TestIsNotFound(t *testing.T) {
	setup(t)
	var u model.User
	err := GetDB().Where("username = ?", "ghost").First(&u).Error
	assert.True(t, IsNotFound(err))
}

func TestIsSQLiteDB(t *testing.T) {
	dbPath := setup(t)
	require.NoError(t, Checkpoint())
	f, err := os.Open(dbPath)
	require.NoError(t, err)
	defer f.Close()
	ok, err := IsSQLiteDB(f)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInitDBRefusesForeignFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "notes.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("just some text, not a database"), 0o644))
	err := InitDB(dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a sqlite database")
}
