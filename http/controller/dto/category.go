package dto

type CreateCategoryRequestDTO struct {
	Name        string `json:"name" binding:"max=255"`
	Description string `json:"description" binding:"max=2000"`
}

type UpdateCategoryRequestDTO struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}
