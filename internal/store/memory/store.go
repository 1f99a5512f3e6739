// Package memory is an embedded store for tests and single-process
// deployments. Row locks are emulated with one lock per task id.
package memory

import (
	"github.com/gosuda/gofer/internal/domain"
)

type Store struct {
	tasks *TaskRepo
	users *UserRepo
}

func New() *Store {
	return &Store{
		tasks: NewTaskRepo(),
		users: NewUserRepo(),
	}
}

func (s *Store) Close() {}

func (s *Store) Tasks() domain.TaskRepository { return s.tasks }
func (s *Store) Users() domain.UserRepository { return s.users }
