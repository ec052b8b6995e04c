package models

import (
	"encoding/json"
	"time"
)

// Recipe is the shared resource users create, edit and like.
// UserID is the author and never changes after creation.
type Recipe struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Contents    string    `gorm:"type:text" json:"contents"`
	Ingredients []string  `gorm:"serializer:json;type:text" json:"ingredients"`
	ImageURL    string    `json:"image_url,omitempty"`
	UserID      uint      `gorm:"not null;index" json:"author"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"index" json:"updated_at"`

	// Tags and Likes live in their own tables and are loaded by the repository.
	Tags  []string `gorm:"-" json:"tags"`
	Likes []uint   `gorm:"-" json:"likes"`
}

// LikesCount is derived from Likes and never stored.
func (r *Recipe) LikesCount() int {
	if r == nil {
		return 0
	}
	return len(r.Likes)
}

// HasTag reports whether tag is in the recipe's tag set (exact match).
func (r *Recipe) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MarshalJSON adds the computed likes_count to the serialized recipe.
func (r Recipe) MarshalJSON() ([]byte, error) {
	type recipeAlias Recipe
	return json.Marshal(struct {
		recipeAlias
		LikesCount int `json:"likes_count"`
	}{
		recipeAlias: recipeAlias(r),
		LikesCount:  len(r.Likes),
	})
}

// RecipeLike is one member of a recipe's like set. The composite primary key
// keeps membership unique.
type RecipeLike struct {
	RecipeID  uint      `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName pins the table used by the raw like/unlike statements.
func (RecipeLike) TableName() string { return "recipe_likes" }

// RecipeTag is one member of a recipe's tag set.
type RecipeTag struct {
	RecipeID uint   `gorm:"primaryKey;autoIncrement:false"`
	Tag      string `gorm:"primaryKey;size:64;index"`
}

// TableName pins the table used by the tag filter subquery.
func (RecipeTag) TableName() string { return "recipe_tags" }
