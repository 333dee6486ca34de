package db

import (
	"gorm.io/gorm"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Users returns the user repository
func (r *Repository) Users() *UserRepository {
	return &UserRepository{Repository: r}
}

// Tokens returns the auth token repository
func (r *Repository) Tokens() *TokenRepository {
	return &TokenRepository{Repository: r}
}

// Devices returns the device repository
func (r *Repository) Devices() *DeviceRepository {
	return &DeviceRepository{Repository: r}
}

// Follows returns the follow repository
func (r *Repository) Follows() *FollowRepository {
	return &FollowRepository{Repository: r}
}

// Cubes returns the cube repository
func (r *Repository) Cubes() *CubeRepository {
	return &CubeRepository{Repository: r}
}

// Tiles returns the tile repository
func (r *Repository) Tiles() *TileRepository {
	return &TileRepository{Repository: r}
}

// Comments returns the comment repository
func (r *Repository) Comments() *CommentRepository {
	return &CommentRepository{Repository: r}
}

// Favorites returns the favorite repository
func (r *Repository) Favorites() *FavoriteRepository {
	return &FavoriteRepository{Repository: r}
}

// Histories returns the history repository
func (r *Repository) Histories() *HistoryRepository {
	return &HistoryRepository{Repository: r}
}
