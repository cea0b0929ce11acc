package domain

import (
	"context"
	"errors"
	"time"
)

// Package is a purchasable visibility tier for a listing.
type Package struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name"`
	DurationDays int       `json:"duration_days"`
	Price        int64     `json:"price"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Package) TableName() string { return "packages" }

type Service interface {
	Get(ctx context.Context, id string) (*Package, error)
	// GetActive returns ErrNotFound for unknown ids and ErrInactive for
	// packages withdrawn from sale.
	GetActive(ctx context.Context, id string) (*Package, error)
	DurationDays(ctx context.Context, id string) (int, error)
	List(ctx context.Context) ([]Package, error)
}

var (
	ErrNotFound  = errors.New("package_not_found")
	ErrInactive  = errors.New("package_inactive")
	ErrInvalidID = errors.New("invalid_package_id")
)
