package dto

type CreateProjectRequestDTO struct {
	Title       string `form:"title" json:"title" binding:"max=255"`
	Description string `form:"description" json:"description"`
	PowerSource string `form:"powerSource" json:"powerSource" binding:"max=255"`
	Category    string `form:"category" json:"category" binding:"max=255"`
}

// UpdateProjectRequestDTO leaves absent form fields nil.
type UpdateProjectRequestDTO struct {
	Title       *string `form:"title" json:"title" binding:"omitempty,max=255"`
	Description *string `form:"description" json:"description"`
	PowerSource *string `form:"powerSource" json:"powerSource" binding:"omitempty,max=255"`
	Category    *string `form:"category" json:"category" binding:"omitempty,max=255"`
}
