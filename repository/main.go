package repository

import (
	"github.com/tnqbao/gau-catalog-service/entity"
	"github.com/tnqbao/gau-catalog-service/infra"
	"gorm.io/gorm"
)

type Repository struct {
	ProjectRepo  *ProjectRepository
	MediaRepo    *MediaRepository
	CategoryRepo *CategoryRepository
	UserRepo     *UserRepository
}

var repository *Repository

func InitRepository(infra *infra.Infra) *Repository {
	if err := Migrate(infra.Postgres.DB); err != nil {
		panic("Failed to migrate database: " + err.Error())
	}
	repository = NewRepository(infra.Postgres.DB)
	return repository
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		ProjectRepo:  NewProjectRepository(db),
		MediaRepo:    NewMediaRepository(db),
		CategoryRepo: NewCategoryRepository(db),
		UserRepo:     NewUserRepository(db),
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Project{},
		&entity.Media{},
		&entity.Category{},
		&entity.User{},
	)
}
