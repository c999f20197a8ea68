package dto

// CreateCategoryDTO is read from a JSON body or from the "data" field of a
// multipart form carrying an optional "image" file.
type CreateCategoryDTO struct {
	Name        string `json:"name" binding:"required,min=2,max=120"`
	Slug        string `json:"slug" binding:"omitempty,max=140"` // generated from Name when empty
	Description string `json:"description" binding:"max=2000"`
	SortOrder   int    `json:"sortOrder"`
	ParentId    string `json:"parentId"`
	IsActive    *bool  `json:"isActive"`
}

// UpdateCategoryDTO: nil fields are left unchanged. ParentId "" moves the
// category to the root. Slug is only declared so a change attempt can be
// rejected.
type UpdateCategoryDTO struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=120"`
	Slug        *string `json:"slug"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	SortOrder   *int    `json:"sortOrder"`
	ParentId    *string `json:"parentId"`
	IsActive    *bool   `json:"isActive"`
	RemoveImage bool    `json:"removeImage"`
}
