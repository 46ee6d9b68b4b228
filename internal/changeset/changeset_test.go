package changeset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSlugRejectsPathTraversal(t *testing.T) {
	assert.Error(t, ValidateSlug("../escape"))
	assert.Error(t, ValidateSlug("a/b"))
	assert.Error(t, ValidateSlug(""))
	assert.NoError(t, ValidateSlug("fix-login-bug"))
}

func TestFilesystemRegistrarRegisterAndLoad(t *testing.T) {
	dir := t.TempDir()
	r := NewFilesystemRegistrar(dir)

	cs := Changeset{
		TraceID:     "trace-1",
		Portal:      "main-repo",
		Branch:      "add-retry-policy",
		Status:      StatusPending,
		Description: "implement retry policy",
		Created:     time.Now().UTC(),
		CreatedBy:   "plan-executor",
	}

	sha, err := r.Register(context.Background(), cs)
	require.NoError(t, err)
	assert.NotEmpty(t, sha)

	loaded, err := r.Load("add-retry-policy")
	require.NoError(t, err)
	assert.Equal(t, "trace-1", loaded.TraceID)
	assert.Equal(t, sha, loaded.CommitSHA)
}

func TestFilesystemRegistrarRejectsUnsafeBranch(t *testing.T) {
	dir := t.TempDir()
	r := NewFilesystemRegistrar(dir)

	_, err := r.Register(context.Background(), Changeset{Branch: "../escape"})
	assert.Error(t, err)
}
