package dto

type CreateUserRequestDTO struct {
	Name           string `json:"name" binding:"max=255"`
	Email          string `json:"email" binding:"max=320"`
	Password       string `json:"password" binding:"max=128"`
	Role           string `json:"role"`
	Bio            string `json:"bio" binding:"max=2000"`
	ProfilePicture string `json:"profilePicture" binding:"max=2048"`
}

type UpdateUserRequestDTO struct {
	Name           *string `json:"name" binding:"omitempty,max=255"`
	Email          *string `json:"email" binding:"omitempty,max=320"`
	Password       *string `json:"password" binding:"omitempty,max=128"`
	Role           *string `json:"role"`
	Bio            *string `json:"bio" binding:"omitempty,max=2000"`
	ProfilePicture *string `json:"profilePicture" binding:"omitempty,max=2048"`
}
