package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/compozy/releasetag/internal/domain"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSignature() *object.Signature {
	return &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// setupTestRepo creates a repository whose first commit tracks a .gitignore
// excluding /dist and node_modules.
func setupTestRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	writeFile(t, dir, ".gitignore", "/dist\nnode_modules\n")
	writeFile(t, dir, "README.md", "# test\n")
	_, err = wt.Add(".gitignore")
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("Initial commit", &git.CommitOptions{Author: testSignature()})
	require.NoError(t, err)
	return dir, repo
}

func openTestRepo(t *testing.T, dir string) GitExtendedRepository {
	t.Helper()
	gitRepo, err := NewGitExtendedRepository(dir)
	require.NoError(t, err)
	require.NoError(t, gitRepo.ConfigureUser(context.Background(), "Release Bot", "bot@example.com"))
	return gitRepo
}

func TestNewGitRepository(t *testing.T) {
	t.Run("Should create git repository for existing repo", func(t *testing.T) {
		dir, _ := setupTestRepo(t)
		gitRepo, err := NewGitRepository(dir, WithToken("token"))
		assert.NoError(t, err)
		assert.NotNil(t, gitRepo)
	})
	t.Run("Should return error for non-git directory", func(t *testing.T) {
		gitRepo, err := NewGitRepository(t.TempDir())
		assert.Error(t, err)
		assert.Nil(t, gitRepo)
	})
}

func TestGitRepository_RefChecks(t *testing.T) {
	ctx := context.Background()
	t.Run("Should detect existing tags and branches", func(t *testing.T) {
		dir, repo := setupTestRepo(t)
		head, err := repo.Head()
		require.NoError(t, err)
		_, err = repo.CreateTag("v1.0.0", head.Hash(), nil)
		require.NoError(t, err)
		require.NoError(t, repo.Storer.SetReference(
			plumbing.NewHashReference(plumbing.NewBranchReferenceName("v2.0.0"), head.Hash())))
		gitRepo := openTestRepo(t, dir)
		exists, err := gitRepo.TagExists(ctx, "v1.0.0")
		require.NoError(t, err)
		assert.True(t, exists)
		exists, err = gitRepo.BranchExists(ctx, "v2.0.0")
		require.NoError(t, err)
		assert.True(t, exists)
	})
	t.Run("Should keep tags and branches apart", func(t *testing.T) {
		dir, repo := setupTestRepo(t)
		head, err := repo.Head()
		require.NoError(t, err)
		_, err = repo.CreateTag("v1.0.0", head.Hash(), nil)
		require.NoError(t, err)
		gitRepo := openTestRepo(t, dir)
		exists, err := gitRepo.BranchExists(ctx, "v1.0.0")
		require.NoError(t, err)
		assert.False(t, exists)
		exists, err = gitRepo.TagExists(ctx, "v9.9.9")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestGitRepository_LatestVersionTag(t *testing.T) {
	ctx := context.Background()
	t.Run("Should return the highest semantic version tag", func(t *testing.T) {
		dir, repo := setupTestRepo(t)
		head, err := repo.Head()
		require.NoError(t, err)
		for _, tag := range []string{"v1.2.0", "v1.10.0", "v1.9.3", "nightly"} {
			_, err = repo.CreateTag(tag, head.Hash(), nil)
			require.NoError(t, err)
		}
		latest, err := openTestRepo(t, dir).LatestVersionTag(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v1.10.0", latest)
	})
	t.Run("Should return empty string when no tags exist", func(t *testing.T) {
		dir, _ := setupTestRepo(t)
		latest, err := openTestRepo(t, dir).LatestVersionTag(ctx)
		require.NoError(t, err)
		assert.Equal(t, "", latest)
	})
}

func TestGitRepository_UntrackedFiles(t *testing.T) {
	ctx := context.Background()
	t.Run("Should honor ignore rules", func(t *testing.T) {
		dir, _ := setupTestRepo(t)
		writeFile(t, dir, "dist/app.js", "console.log(1)")
		writeFile(t, dir, "node_modules/dep/index.js", "")
		writeFile(t, dir, "docs/new.md", "new")
		files, err := openTestRepo(t, dir).UntrackedFiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"docs/new.md"}, files)
	})
	t.Run("Should list previously ignored files once the rule is gone", func(t *testing.T) {
		dir, _ := setupTestRepo(t)
		writeFile(t, dir, "dist/app.js", "console.log(1)")
		writeFile(t, dir, "zz.txt", "z")
		writeFile(t, dir, ".gitignore", "\nnode_modules\n")
		files, err := openTestRepo(t, dir).UntrackedFiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"dist/app.js", "zz.txt"}, files)
	})
	t.Run("Should honor core.excludesfile from the repository config", func(t *testing.T) {
		isolateGitConfig(t)
		dir, repo := setupTestRepo(t)
		excludes := filepath.Join(t.TempDir(), "ignore")
		require.NoError(t, os.WriteFile(excludes, []byte("# local\n*.log\n"), 0o644))
		cfg, err := repo.Config()
		require.NoError(t, err)
		cfg.Raw.Section("core").SetOption("excludesfile", excludes)
		require.NoError(t, repo.SetConfig(cfg))
		writeFile(t, dir, "debug.log", "trace")
		writeFile(t, dir, "keep.txt", "keep")
		files, err := openTestRepo(t, dir).UntrackedFiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"keep.txt"}, files)
	})
	t.Run("Should honor the global excludes file", func(t *testing.T) {
		home := isolateGitConfig(t)
		excludes := filepath.Join(home, "global-ignore")
		require.NoError(t, os.WriteFile(excludes, []byte(".env\n"), 0o644))
		writeFile(t, home, ".gitconfig", "[core]\n\texcludesfile = "+excludes+"\n")
		dir, _ := setupTestRepo(t)
		writeFile(t, dir, ".env", "SECRET=1")
		writeFile(t, dir, "keep.txt", "keep")
		files, err := openTestRepo(t, dir).UntrackedFiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"keep.txt"}, files)
	})
	t.Run("Should fall back to the default git/ignore file", func(t *testing.T) {
		home := isolateGitConfig(t)
		writeFile(t, home, ".config/git/ignore", ".DS_Store\n")
		dir, _ := setupTestRepo(t)
		writeFile(t, dir, ".DS_Store", "")
		writeFile(t, dir, "keep.txt", "keep")
		files, err := openTestRepo(t, dir).UntrackedFiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"keep.txt"}, files)
	})
}

// isolateGitConfig points HOME at an empty directory so user git config does not leak in.
func isolateGitConfig(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	return home
}

func TestGitRepository_CommitAndTag(t *testing.T) {
	ctx := context.Background()
	t.Run("Should commit untracked and modified files", func(t *testing.T) {
		dir, repo := setupTestRepo(t)
		gitRepo := openTestRepo(t, dir)
		writeFile(t, dir, ".gitignore", "\nnode_modules\n")
		writeFile(t, dir, "dist/app.js", "bundle")
		files, err := gitRepo.UntrackedFiles(ctx)
		require.NoError(t, err)
		require.NoError(t, gitRepo.AddFiles(ctx, files))
		hash, err := gitRepo.Commit(ctx, "chore release: new release v1.2.0")
		require.NoError(t, err)
		commit, err := repo.CommitObject(plumbing.NewHash(hash))
		require.NoError(t, err)
		assert.Equal(t, "chore release: new release v1.2.0", commit.Message)
		assert.Equal(t, "Release Bot", commit.Author.Name)
		ignore, err := commit.File(".gitignore")
		require.NoError(t, err)
		content, err := ignore.Contents()
		require.NoError(t, err)
		assert.Equal(t, "\nnode_modules\n", content)
		_, err = commit.File("dist/app.js")
		assert.NoError(t, err)
	})
	t.Run("Should report an empty commit", func(t *testing.T) {
		dir, _ := setupTestRepo(t)
		_, err := openTestRepo(t, dir).Commit(ctx, "nothing")
		assert.ErrorIs(t, err, domain.ErrNothingToCommit)
	})
	t.Run("Should create lightweight and annotated tags on HEAD", func(t *testing.T) {
		dir, repo := setupTestRepo(t)
		gitRepo := openTestRepo(t, dir)
		head, err := repo.Head()
		require.NoError(t, err)
		require.NoError(t, gitRepo.CreateTag(ctx, "v1.0.0", ""))
		require.NoError(t, gitRepo.CreateTag(ctx, "v1.0.1", "Release v1.0.1"))
		for _, tag := range []string{"v1.0.0", "v1.0.1"} {
			target, err := gitRepo.TagTarget(ctx, tag)
			require.NoError(t, err)
			assert.Equal(t, head.Hash().String(), target)
		}
		ref, err := repo.Tag("v1.0.1")
		require.NoError(t, err)
		tagObj, err := repo.TagObject(ref.Hash())
		require.NoError(t, err)
		assert.Equal(t, "Release v1.0.1\n", tagObj.Message)
	})
	t.Run("Should return error for duplicate tag", func(t *testing.T) {
		dir, _ := setupTestRepo(t)
		gitRepo := openTestRepo(t, dir)
		require.NoError(t, gitRepo.CreateTag(ctx, "v1.0.0", ""))
		assert.Error(t, gitRepo.CreateTag(ctx, "v1.0.0", ""))
	})
}

func TestGitRepository_Compensation(t *testing.T) {
	ctx := context.Background()
	t.Run("Should undo a commit with a mixed reset", func(t *testing.T) {
		dir, repo := setupTestRepo(t)
		gitRepo := openTestRepo(t, dir)
		original, err := gitRepo.GetHeadCommit(ctx)
		require.NoError(t, err)
		writeFile(t, dir, "new.txt", "new")
		require.NoError(t, gitRepo.AddFiles(ctx, []string{"new.txt"}))
		_, err = gitRepo.Commit(ctx, "release")
		require.NoError(t, err)
		require.NoError(t, gitRepo.ResetMixed(ctx, original))
		head, err := gitRepo.GetHeadCommit(ctx)
		require.NoError(t, err)
		assert.Equal(t, original, head)
		wt, err := repo.Worktree()
		require.NoError(t, err)
		status, err := wt.Status()
		require.NoError(t, err)
		assert.Equal(t, git.Untracked, status.File("new.txt").Worktree)
		_, err = os.Stat(filepath.Join(dir, "new.txt"))
		assert.NoError(t, err)
	})
	t.Run("Should delete tags idempotently", func(t *testing.T) {
		dir, _ := setupTestRepo(t)
		gitRepo := openTestRepo(t, dir)
		require.NoError(t, gitRepo.CreateTag(ctx, "v1.0.0", ""))
		require.NoError(t, gitRepo.DeleteTag(ctx, "v1.0.0"))
		require.NoError(t, gitRepo.DeleteTag(ctx, "v1.0.0"))
		exists, err := gitRepo.TagExists(ctx, "v1.0.0")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestGitRepository_Remotes(t *testing.T) {
	ctx := context.Background()
	t.Run("Should fail to push to a missing remote", func(t *testing.T) {
		dir, _ := setupTestRepo(t)
		gitRepo := openTestRepo(t, dir)
		require.NoError(t, gitRepo.CreateTag(ctx, "v1.0.0", ""))
		err := gitRepo.PushTag(ctx, "origin", "v1.0.0")
		assert.ErrorIs(t, err, domain.ErrRemoteNotFound)
	})
	t.Run("Should push and delete a tag on a remote", func(t *testing.T) {
		dir, repo := setupTestRepo(t)
		bareDir := t.TempDir()
		_, err := git.PlainInit(bareDir, true)
		require.NoError(t, err)
		_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{bareDir}})
		require.NoError(t, err)
		gitRepo := openTestRepo(t, dir)
		writeFile(t, dir, "dist/app.js", "bundle")
		require.NoError(t, gitRepo.AddFiles(ctx, []string{"dist/app.js"}))
		hash, err := gitRepo.Commit(ctx, "chore release: new release v1.0.0")
		require.NoError(t, err)
		require.NoError(t, gitRepo.CreateTag(ctx, "v1.0.0", ""))

		require.NoError(t, gitRepo.PushTag(ctx, "origin", "v1.0.0"))

		bare, err := git.PlainOpen(bareDir)
		require.NoError(t, err)
		ref, err := bare.Tag("v1.0.0")
		require.NoError(t, err)
		assert.Equal(t, hash, ref.Hash().String())
		_, err = bare.CommitObject(ref.Hash())
		assert.NoError(t, err)

		require.NoError(t, gitRepo.DeleteRemoteTag(ctx, "origin", "v1.0.0"))
		_, err = bare.Tag("v1.0.0")
		assert.ErrorIs(t, err, git.ErrTagNotFound)
	})
	t.Run("Should report configured remotes", func(t *testing.T) {
		dir, repo := setupTestRepo(t)
		_, err := repo.CreateRemote(&gitconfig.RemoteConfig{
			Name: "origin",
			URLs: []string{"https://github.com/acme/widgets.git"},
		})
		require.NoError(t, err)
		gitRepo := openTestRepo(t, dir)
		exists, err := gitRepo.RemoteExists(ctx, "origin")
		require.NoError(t, err)
		assert.True(t, exists)
		exists, err = gitRepo.RemoteExists(ctx, "upstream")
		require.NoError(t, err)
		assert.False(t, exists)
		branch, err := gitRepo.GetCurrentBranch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "master", branch)
	})
}
