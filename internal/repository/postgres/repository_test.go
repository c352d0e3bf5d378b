package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"taskkeeper/internal/domain"
	"taskkeeper/internal/repository"
)

// openTestPool connects to TASKKEEPER_TEST_POSTGRES_DSN and resets the schema.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TASKKEEPER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TASKKEEPER_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS tasks`); err != nil {
		t.Fatalf("drop tasks: %v", err)
	}
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS users`); err != nil {
		t.Fatalf("drop users: %v", err)
	}
	if err := NewUserRepository(pool).Init(ctx); err != nil {
		t.Fatalf("init users: %v", err)
	}
	if err := NewTaskRepository(pool).Init(ctx); err != nil {
		t.Fatalf("init tasks: %v", err)
	}
	return pool
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("escapeLike = %q", got)
	}
}

func TestPostgresRepositories(t *testing.T) {
	pool := openTestPool(t)
	users := NewUserRepository(pool)
	tasks := NewTaskRepository(pool)
	ctx := context.Background()

	alice := &domain.User{Username: "alice", Email: "a@x.com", PasswordHash: "h"}
	if _, err := users.Create(ctx, alice); err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob := &domain.User{Username: "bob", Email: "b@x.com", PasswordHash: "h"}
	if _, err := users.Create(ctx, bob); err != nil {
		t.Fatalf("create bob: %v", err)
	}
	dup := &domain.User{Username: "alice", Email: "c@x.com", PasswordHash: "h"}
	if _, err := users.Create(ctx, dup); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("duplicate username err = %v, want ErrConflict", err)
	}

	task := &domain.Task{Title: "Buy Milk", Description: "2%", Priority: 1, OwnerID: alice.ID}
	if _, err := tasks.Create(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	priority := 2
	updated, err := tasks.Update(ctx, alice.ID, task.ID, repository.TaskPatch{Priority: &priority})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Buy Milk" || updated.Priority != 2 {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if _, err := tasks.Update(ctx, bob.ID, task.ID, repository.TaskPatch{Priority: &priority}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("foreign update err = %v, want ErrNotFound", err)
	}

	found, err := tasks.Search(ctx, alice.ID, "milk")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("search found %d, want 1", len(found))
	}
	foreign, err := tasks.List(ctx, bob.ID, repository.TaskFilter{})
	if err != nil {
		t.Fatalf("list bob: %v", err)
	}
	if len(foreign) != 0 {
		t.Fatalf("bob sees %d tasks, want 0", len(foreign))
	}
	if err := tasks.Delete(ctx, alice.ID, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestPostgresStoresWideValues(t *testing.T) {
	pool := openTestPool(t)
	users := NewUserRepository(pool)
	tasks := NewTaskRepository(pool)
	ctx := context.Background()

	owner := &domain.User{Username: strings.Repeat("u", 150), Email: "long@x.com", PasswordHash: "h"}
	if _, err := users.Create(ctx, owner); err != nil {
		t.Fatalf("create long username: %v", err)
	}

	title := strings.Repeat("t", 300)
	task := &domain.Task{Title: title, Priority: 3_000_000_000, OwnerID: owner.ID}
	if _, err := tasks.Create(ctx, task); err != nil {
		t.Fatalf("create wide task: %v", err)
	}

	priority := 3_000_000_000
	got, err := tasks.List(ctx, owner.ID, repository.TaskFilter{Priority: &priority})
	if err != nil {
		t.Fatalf("list by wide priority: %v", err)
	}
	if len(got) != 1 || got[0].Title != title || got[0].Priority != priority {
		t.Fatalf("unexpected list result %+v", got)
	}

	lower := -4_000_000_000
	updated, err := tasks.Update(ctx, owner.ID, task.ID, repository.TaskPatch{Priority: &lower})
	if err != nil {
		t.Fatalf("update wide priority: %v", err)
	}
	if updated.Priority != lower {
		t.Fatalf("priority = %d, want %d", updated.Priority, lower)
	}
}
