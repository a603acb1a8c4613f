package servicetest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-catalog-service/entity"
	"gorm.io/gorm"
)

type ProjectRepo struct {
	mu       sync.Mutex
	projects map[uuid.UUID]entity.Project
	order    []uuid.UUID

	CreateErr error
	UpdateErr error
	DeleteErr error
}

func NewProjectRepo() *ProjectRepo {
	return &ProjectRepo{projects: make(map[uuid.UUID]entity.Project)}
}

func (r *ProjectRepo) Create(ctx context.Context, project *entity.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}
	stored := *project
	stored.Media = nil
	r.projects[project.ID] = stored
	r.order = append(r.order, project.ID)
	return nil
}

func (r *ProjectRepo) Update(ctx context.Context, project *entity.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	if _, ok := r.projects[project.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *project
	stored.Media = nil
	r.projects[project.ID] = stored
	return nil
}

func (r *ProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	project.MediaIDs = append(project.MediaIDs[:0:0], project.MediaIDs...)
	return &project, nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]entity.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Project
	for _, id := range r.order {
		if project, ok := r.projects[id]; ok {
			out = append(out, project)
		}
	}
	return out, nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	if _, ok := r.projects[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.projects, id)
	return nil
}

func (r *ProjectRepo) CountByCategory(ctx context.Context, category string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, project := range r.projects {
		if project.Category == category {
			count++
		}
	}
	return count, nil
}

func (r *ProjectRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.projects)
}

type MediaRepo struct {
	mu    sync.Mutex
	media map[uuid.UUID]entity.Media

	// CreateHook runs before a record is stored; a non-nil error fails the create.
	CreateHook func(media *entity.Media) error
	DeleteErr  error
	Deleted    []uuid.UUID
}

func NewMediaRepo() *MediaRepo {
	return &MediaRepo{media: make(map[uuid.UUID]entity.Media)}
}

func (r *MediaRepo) Create(ctx context.Context, media *entity.Media) error {
	if r.CreateHook != nil {
		if err := r.CreateHook(media); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.media[media.ID] = *media
	return nil
}

func (r *MediaRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Media
	for _, id := range ids {
		if media, ok := r.media[id]; ok {
			out = append(out, media)
		}
	}
	return out, nil
}

func (r *MediaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	r.Deleted = append(r.Deleted, id)
	if _, ok := r.media[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.media, id)
	return nil
}

// Seed stores a record directly.
func (r *MediaRepo) Seed(media entity.Media) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.media[media.ID] = media
}

func (r *MediaRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.media)
}

func (r *MediaRepo) DeletedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Deleted)
}

type CategoryRepo struct {
	mu         sync.Mutex
	categories map[uuid.UUID]entity.Category
}

func NewCategoryRepo() *CategoryRepo {
	return &CategoryRepo{categories: make(map[uuid.UUID]entity.Category)}
}

func (r *CategoryRepo) Create(ctx context.Context, category *entity.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[category.ID] = *category
	return nil
}

func (r *CategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	category, ok := r.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &category, nil
}

func (r *CategoryRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, category := range r.categories {
		if category.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *CategoryRepo) List(ctx context.Context) ([]entity.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Category
	for _, category := range r.categories {
		out = append(out, category)
	}
	return out, nil
}

func (r *CategoryRepo) Update(ctx context.Context, category *entity.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[category.ID] = *category
	return nil
}

func (r *CategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.categories, id)
	return nil
}

type UserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]entity.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[uuid.UUID]entity.User)}
}

func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepo) List(ctx context.Context) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.User
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, nil
}

func (r *UserRepo) Update(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, id)
	return nil
}
